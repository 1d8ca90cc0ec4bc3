package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noobiecoder75/bookinggpt-api/internal/common"
	"github.com/noobiecoder75/bookinggpt-api/internal/config"
	"github.com/noobiecoder75/bookinggpt-api/internal/lock"
	"github.com/noobiecoder75/bookinggpt-api/internal/mail"
	"github.com/noobiecoder75/bookinggpt-api/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "bookinggpt"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	var sender common.EmailSender
	gmailCfg := mail.GmailConfig{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		RefreshToken: cfg.GmailRefreshToken,
		From:         cfg.GmailFromAddress,
	}
	if gmailCfg.Configured() {
		gmailSender, err := mail.NewGmailSender(ctx, gmailCfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise gmail sender")
		}
		sender = gmailSender
		logger.Info().Str("from", cfg.GmailFromAddress).Msg("gmail delivery enabled")
	} else {
		sender = common.NopEmailSender{}
		logger.Warn().Msg("gmail credentials missing, emails will be dropped")
	}

	drainer := &mail.Drainer{
		Store:          &mail.PGOutbox{Pool: pool},
		Sender:         sender,
		Locker:         &lock.Locker{R: redisClient},
		Logger:         logger,
		BackoffBaseSec: int(cfg.OutboxBackoffBase / time.Second),
		LockTTL:        2 * cfg.OutboxDrainInterval,
	}

	logger.Info().
		Dur("interval", cfg.OutboxDrainInterval).
		Int("batch", cfg.OutboxBatchSize).
		Msg("outbox drainer starting")
	if err := drainer.Run(ctx, cfg.OutboxDrainInterval, int32(cfg.OutboxBatchSize)); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("drainer stopped with error")
	} else {
		logger.Info().Msg("drainer shutdown complete")
	}
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/noobiecoder75/bookinggpt-api/internal/auth"
	"github.com/noobiecoder75/bookinggpt-api/internal/booking"
	"github.com/noobiecoder75/bookinggpt-api/internal/common"
	"github.com/noobiecoder75/bookinggpt-api/internal/config"
	"github.com/noobiecoder75/bookinggpt-api/internal/customer"
	"github.com/noobiecoder75/bookinggpt-api/internal/events"
	"github.com/noobiecoder75/bookinggpt-api/internal/health"
	"github.com/noobiecoder75/bookinggpt-api/internal/mail"
	"github.com/noobiecoder75/bookinggpt-api/internal/notify"
	"github.com/noobiecoder75/bookinggpt-api/internal/obs"
	"github.com/noobiecoder75/bookinggpt-api/internal/quote"
	"github.com/noobiecoder75/bookinggpt-api/internal/ratelimit"
	"github.com/noobiecoder75/bookinggpt-api/internal/security"
	"github.com/noobiecoder75/bookinggpt-api/internal/template"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "bookinggpt")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "bookinggpt-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "bookinggpt-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	authService, err := auth.NewService(auth.Config{
		Store:           &auth.PGStore{Pool: pool},
		Secret:          cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{Service: authService}
	requireAuth := auth.RequireAuth(authService)

	customerService := customer.NewService(&customer.PGStore{Pool: pool})
	customerHandler := &customer.Handler{Service: customerService, Validate: validator.New()}

	templateService := template.NewService(
		&template.PGStore{Pool: pool},
		template.NewCache(redisClient, cfg.TemplateCacheTTL),
	)
	templateHandler := &template.Handler{Service: templateService}

	notifyStore := &notify.PGStore{Pool: pool}
	notifyHandler := &notify.Handler{Store: notifyStore}

	bus := &events.Bus{
		Store:     &events.PGStore{Pool: pool},
		Notifiers: []events.Notifier{notify.EventNotifier{Store: notifyStore}},
	}

	outbox := &mail.PGOutbox{Pool: pool}

	quoteService := quote.NewService(quote.ServiceConfig{
		Store:           &quote.PGStore{Pool: pool},
		Customers:       customerService,
		Templates:       templateService,
		Mailer:          outboxMailer{outbox},
		Bus:             bus,
		MinMarkup:       cfg.MinMarkupFor,
		DefaultMarkup:   cfg.QuoteDefaultMarkup,
		Currency:        cfg.CurrencyCode,
		MailMaxAttempts: int32(cfg.OutboxMaxAttempts),
	})
	quoteHandler := &quote.Handler{Service: quoteService}

	bookingService := booking.NewService(&booking.PGStore{Pool: pool}, quoteService, bus)
	bookingHandler := &booking.Handler{Service: bookingService}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	limiterStore, err := ratelimit.NewStore(redisClient, "ratelimit")
	if err != nil {
		logger.Error().Err(err).Msg("initialise rate limit store")
	}
	authLimiter := ratelimit.Handler{
		Store: limiterStore,
		Config: ratelimit.Config{
			Key:    common.ClientIP,
			Window: cfg.AuthRateLimitWindow,
			Max:    int64(cfg.AuthRateLimitMax),
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limit check failed")
		},
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: envBool("SECURE_HEADERS", true)}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("SECURE_MAX_BODY_BYTES", 1<<20))}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/auth", func(a chi.Router) {
			a.Group(func(limited chi.Router) {
				limited.Use(authLimiter.Middleware)
				limited.Post("/register", authHandler.Register)
				limited.Post("/login", authHandler.Login)
				limited.Post("/refresh", authHandler.Refresh)
			})
			a.Post("/logout", authHandler.Logout)
			a.With(requireAuth).Get("/me", authHandler.Me)
		})

		// Customer-facing portal view, shared by link without a session.
		v.Get("/portal/quotes/{quoteID}", quoteHandler.Portal)

		v.Group(func(protected chi.Router) {
			protected.Use(requireAuth)

			protected.Route("/customers", func(c chi.Router) {
				c.Get("/", customerHandler.List)
				c.Post("/", customerHandler.Create)
				c.Route("/{customerID}", func(child chi.Router) {
					child.Get("/", customerHandler.Get)
					child.Put("/", customerHandler.Update)
					child.Delete("/", customerHandler.Delete)
				})
			})

			protected.Route("/quotes", func(q chi.Router) {
				q.Get("/", quoteHandler.List)
				q.Post("/", quoteHandler.Create)
				q.Route("/{quoteID}", func(child chi.Router) {
					child.Get("/", quoteHandler.Get)
					child.Patch("/", quoteHandler.Update)
					child.Delete("/", quoteHandler.Delete)
					child.Post("/items", quoteHandler.AddItem)
					child.Put("/items/order", quoteHandler.ReorderItems)
					child.Put("/items/{itemID}", quoteHandler.UpdateItem)
					child.Delete("/items/{itemID}", quoteHandler.RemoveItem)
					child.With(authLimiter.Middleware, idem.Middleware).Post("/send", quoteHandler.Send)
					child.Post("/expire", quoteHandler.Expire)
					child.Get("/portal", quoteHandler.Portal)
				})
			})

			protected.Route("/bookings", func(b chi.Router) {
				b.Get("/", bookingHandler.List)
				b.With(idem.Middleware).Post("/", bookingHandler.Convert)
				b.Get("/counts", bookingHandler.Counts)
				b.Route("/{bookingID}", func(child chi.Router) {
					child.Get("/", bookingHandler.Get)
					child.Patch("/status", bookingHandler.PatchStatus)
				})
			})

			protected.Route("/templates", func(t chi.Router) {
				t.Get("/", templateHandler.List)
				t.Post("/", templateHandler.Create)
				t.Route("/{templateID}", func(child chi.Router) {
					child.Get("/", templateHandler.Get)
					child.Put("/", templateHandler.Update)
					child.Delete("/", templateHandler.Delete)
					child.Post("/preview", templateHandler.Preview)
				})
			})

			protected.Route("/notifications", func(n chi.Router) {
				n.Get("/", notifyHandler.List)
				n.Post("/{notificationID}/read", notifyHandler.MarkRead)
			})
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		serverErr <- srv.ListenAndServe()
	}()

	stop, stopCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopCancel()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-stop.Done():
		health.SetReady(false)
		grace := envDurationMillis("SHUTDOWN_GRACE_MS", 15000)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), grace)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
		logger.Info().Msg("server stopped")
	}
}

// outboxMailer adapts the persistent outbox to the quote send flow, which only
// cares that the message was accepted.
type outboxMailer struct {
	outbox *mail.PGOutbox
}

func (m outboxMailer) Enqueue(ctx context.Context, recipients []string, subject, body string, maxAttempt int32) error {
	_, err := m.outbox.Enqueue(ctx, recipients, subject, body, maxAttempt)
	return err
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
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

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noobiecoder75/bookinggpt-api/internal/common"
	"github.com/noobiecoder75/bookinggpt-api/internal/lock"
	"github.com/noobiecoder75/bookinggpt-api/internal/obs"
)

// Drainer periodically delivers pending outbox mail through an EmailSender.
type Drainer struct {
	Store          OutboxStore
	Sender         common.EmailSender
	Locker         *lock.Locker
	Logger         zerolog.Logger
	BackoffBaseSec int
	LockTTL        time.Duration
}

// Run drains the outbox on the given interval until ctx is cancelled.
func (d *Drainer) Run(ctx context.Context, interval time.Duration, batch int32) error {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.WorkOnce(ctx, batch); err != nil {
				d.Logger.Error().Err(err).Msg("outbox drain failed")
			}
		}
	}
}

// WorkOnce claims due messages and attempts delivery. When a Locker is
// configured, only one drainer instance works the queue at a time.
func (d *Drainer) WorkOnce(ctx context.Context, batch int32) error {
	if d == nil || d.Store == nil || d.Sender == nil {
		return errors.New("mail: drainer not configured")
	}
	if d.Locker == nil {
		return d.drain(ctx, batch)
	}
	ttl := d.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return d.Locker.WithLock(ctx, "lock:email-outbox", ttl, func(ctx context.Context) error {
		return d.drain(ctx, batch)
	})
}

func (d *Drainer) drain(ctx context.Context, batch int32) error {
	if batch <= 0 {
		batch = 10
	}
	messages, err := d.Store.DequeueDue(ctx, batch)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		start := time.Now()
		result, sendErr := d.Sender.Send(ctx, common.EmailMessage{
			To:      msg.Recipients,
			Subject: msg.Subject,
			Body:    msg.Body,
		})
		if sendErr == nil && result.Success {
			observeSend("sent", start)
			if err := d.Store.MarkSent(ctx, msg.ID, result.MessageID); err != nil {
				return err
			}
			continue
		}
		reason := "provider reported failure without error"
		if sendErr != nil {
			reason = fmt.Sprintf("err=%v", sendErr)
		}
		if msg.Attempt >= msg.MaxAttempt {
			observeSend("dead", start)
			d.Logger.Warn().Str("subject", msg.Subject).Str("reason", reason).Msg("outbox message exhausted retries")
			_ = d.Store.MoveToDead(ctx, msg.ID, reason)
			continue
		}
		observeSend("failed", start)
		_ = d.Store.MarkFailedWithBackoff(ctx, msg.ID, int32(d.nextDelay(msg.Attempt)), reason)
	}
	return nil
}

func (d *Drainer) nextDelay(attempt int32) int {
	base := d.BackoffBaseSec
	if base <= 0 {
		base = 5
	}
	factor := 1 << int(attempt)
	if factor < 1 {
		factor = 1
	}
	return base * factor
}

func observeSend(result string, start time.Time) {
	if obs.EmailSendTotal != nil {
		obs.EmailSendTotal.WithLabelValues(result).Inc()
	}
	if obs.EmailSendLatency != nil {
		obs.EmailSendLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
}

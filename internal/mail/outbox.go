package mail

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Outbox message statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusDead    = "dead"
)

// OutboxMessage is a queued email row.
type OutboxMessage struct {
	ID         pgtype.UUID
	Recipients []string
	Subject    string
	Body       string
	Status     string
	Attempt    int32
	MaxAttempt int32
	LastError  pgtype.Text
	NextRunAt  pgtype.Timestamptz
	CreatedAt  pgtype.Timestamptz
}

// OutboxStore abstracts email queue persistence.
type OutboxStore interface {
	Enqueue(ctx context.Context, recipients []string, subject, body string, maxAttempt int32) (OutboxMessage, error)
	DequeueDue(ctx context.Context, batch int32) ([]OutboxMessage, error)
	MarkSent(ctx context.Context, id pgtype.UUID, messageID string) error
	MarkFailedWithBackoff(ctx context.Context, id pgtype.UUID, delaySec int32, lastError string) error
	MoveToDead(ctx context.Context, id pgtype.UUID, lastError string) error
}

// PGOutbox persists queued mail in the email_outbox table.
type PGOutbox struct {
	Pool *pgxpool.Pool
}

const outboxColumns = `id, recipients, subject, body, status, attempt, max_attempt, last_error, next_run_at, created_at`

func (s *PGOutbox) Enqueue(ctx context.Context, recipients []string, subject, body string, maxAttempt int32) (OutboxMessage, error) {
	const q = `
INSERT INTO email_outbox (recipients, subject, body, max_attempt)
VALUES ($1, $2, $3, $4)
RETURNING ` + outboxColumns
	row := s.Pool.QueryRow(ctx, q, recipients, subject, body, maxAttempt)
	return scanOutbox(row)
}

// DequeueDue claims due pending messages using SKIP LOCKED so concurrent
// drainers never double-send.
func (s *PGOutbox) DequeueDue(ctx context.Context, batch int32) ([]OutboxMessage, error) {
	const q = `
UPDATE email_outbox
SET attempt = attempt + 1
WHERE id IN (
	SELECT id FROM email_outbox
	WHERE status = 'pending' AND next_run_at <= now()
	ORDER BY next_run_at
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)
RETURNING ` + outboxColumns
	rows, err := s.Pool.Query(ctx, q, batch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OutboxMessage
	for rows.Next() {
		msg, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *PGOutbox) MarkSent(ctx context.Context, id pgtype.UUID, messageID string) error {
	const q = `UPDATE email_outbox SET status = 'sent', provider_message_id = $2, sent_at = now() WHERE id = $1`
	_, err := s.Pool.Exec(ctx, q, id, messageID)
	return err
}

func (s *PGOutbox) MarkFailedWithBackoff(ctx context.Context, id pgtype.UUID, delaySec int32, lastError string) error {
	const q = `
UPDATE email_outbox
SET last_error = $3, next_run_at = now() + make_interval(secs => $2)
WHERE id = $1`
	_, err := s.Pool.Exec(ctx, q, id, delaySec, truncateError(lastError))
	return err
}

func (s *PGOutbox) MoveToDead(ctx context.Context, id pgtype.UUID, lastError string) error {
	const q = `UPDATE email_outbox SET status = 'dead', last_error = $2 WHERE id = $1`
	_, err := s.Pool.Exec(ctx, q, id, truncateError(lastError))
	return err
}

func truncateError(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) > 1000 {
		return msg[:1000]
	}
	return msg
}

type outboxRow interface {
	Scan(dest ...any) error
}

func scanOutbox(row outboxRow) (OutboxMessage, error) {
	var m OutboxMessage
	err := row.Scan(&m.ID, &m.Recipients, &m.Subject, &m.Body, &m.Status, &m.Attempt, &m.MaxAttempt, &m.LastError, &m.NextRunAt, &m.CreatedAt)
	return m, err
}

package notify

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Row mirrors a notifications table row.
type Row struct {
	ID          pgtype.UUID
	Topic       string
	Title       string
	Body        string
	AggregateID pgtype.UUID
	Read        bool
	CreatedAt   pgtype.Timestamptz
}

// Store abstracts notification persistence.
type Store interface {
	Insert(ctx context.Context, r Row) (Row, error)
	List(ctx context.Context, unreadOnly bool, limit, offset int32) ([]Row, error)
	Count(ctx context.Context, unreadOnly bool) (int64, error)
	MarkRead(ctx context.Context, id pgtype.UUID) (int64, error)
}

// PGStore is the pgx-backed Store implementation.
type PGStore struct {
	Pool *pgxpool.Pool
}

const notificationColumns = `id, topic, title, body, aggregate_id, read, created_at`

func (s *PGStore) Insert(ctx context.Context, r Row) (Row, error) {
	const q = `
INSERT INTO notifications (topic, title, body, aggregate_id)
VALUES ($1, $2, $3, $4)
RETURNING ` + notificationColumns
	return scanNotification(s.Pool.QueryRow(ctx, q, r.Topic, r.Title, r.Body, r.AggregateID))
}

func (s *PGStore) List(ctx context.Context, unreadOnly bool, limit, offset int32) ([]Row, error) {
	const q = `
SELECT ` + notificationColumns + `
FROM notifications
WHERE (NOT $1 OR read = false)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := s.Pool.Query(ctx, q, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) Count(ctx context.Context, unreadOnly bool) (int64, error) {
	const q = `SELECT COUNT(*) FROM notifications WHERE (NOT $1 OR read = false)`
	var total int64
	err := s.Pool.QueryRow(ctx, q, unreadOnly).Scan(&total)
	return total, err
}

func (s *PGStore) MarkRead(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `UPDATE notifications SET read = true WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(&r.ID, &r.Topic, &r.Title, &r.Body, &r.AggregateID, &r.Read, &r.CreatedAt)
	return r, err
}

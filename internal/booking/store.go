package booking

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Row mirrors a bookings table row.
type Row struct {
	ID         pgtype.UUID
	QuoteID    pgtype.UUID
	CustomerID pgtype.UUID
	Reference  string
	Status     string
	Total      float64
	Currency   string
	CreatedAt  pgtype.Timestamptz
	UpdatedAt  pgtype.Timestamptz
}

// Store abstracts booking persistence.
type Store interface {
	Create(ctx context.Context, r Row) (Row, error)
	Get(ctx context.Context, id pgtype.UUID) (Row, error)
	GetByQuote(ctx context.Context, quoteID pgtype.UUID) (Row, error)
	List(ctx context.Context, status string, limit, offset int32) ([]Row, error)
	Count(ctx context.Context, status string) (int64, error)
	UpdateStatus(ctx context.Context, id pgtype.UUID, from []string, to string) (int64, error)
	CountsByStatus(ctx context.Context) (map[string]int64, error)
}

// PGStore is the pgx-backed Store implementation.
type PGStore struct {
	Pool *pgxpool.Pool
}

const bookingColumns = `id, quote_id, customer_id, reference, status, total, currency, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, r Row) (Row, error) {
	const q = `
INSERT INTO bookings (quote_id, customer_id, reference, status, total, currency)
VALUES ($1, $2, $3, 'pending', $4, $5)
RETURNING ` + bookingColumns
	return scanBooking(s.Pool.QueryRow(ctx, q, r.QuoteID, r.CustomerID, r.Reference, r.Total, r.Currency))
}

func (s *PGStore) Get(ctx context.Context, id pgtype.UUID) (Row, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(s.Pool.QueryRow(ctx, q, id))
}

func (s *PGStore) GetByQuote(ctx context.Context, quoteID pgtype.UUID) (Row, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE quote_id = $1`
	return scanBooking(s.Pool.QueryRow(ctx, q, quoteID))
}

func (s *PGStore) List(ctx context.Context, status string, limit, offset int32) ([]Row, error) {
	const q = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE ($1 = '' OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := s.Pool.Query(ctx, q, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) Count(ctx context.Context, status string) (int64, error) {
	const q = `SELECT COUNT(*) FROM bookings WHERE ($1 = '' OR status = $1)`
	var total int64
	err := s.Pool.QueryRow(ctx, q, status).Scan(&total)
	return total, err
}

func (s *PGStore) UpdateStatus(ctx context.Context, id pgtype.UUID, from []string, to string) (int64, error) {
	const q = `
UPDATE bookings
SET status = $3, updated_at = now()
WHERE id = $1 AND status = ANY($2)`
	tag, err := s.Pool.Exec(ctx, q, id, from, to)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) CountsByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := s.Pool.Query(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanBooking(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(&r.ID, &r.QuoteID, &r.CustomerID, &r.Reference, &r.Status, &r.Total, &r.Currency, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

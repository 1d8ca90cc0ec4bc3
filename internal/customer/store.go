package customer

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Row mirrors a customers table row.
type Row struct {
	ID        pgtype.UUID
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Notes     string
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

// QuoteSummaryRow is the lightweight quote projection embedded in customer detail.
type QuoteSummaryRow struct {
	ID        pgtype.UUID
	Reference string
	Status    string
	CreatedAt pgtype.Timestamptz
}

// Store abstracts customer persistence so handlers can be tested against fakes.
type Store interface {
	List(ctx context.Context, query string, limit, offset int32) ([]Row, error)
	Count(ctx context.Context, query string) (int64, error)
	Get(ctx context.Context, id pgtype.UUID) (Row, error)
	Create(ctx context.Context, r Row) (Row, error)
	Update(ctx context.Context, r Row) (Row, error)
	Delete(ctx context.Context, id pgtype.UUID) (int64, error)
	QuoteSummaries(ctx context.Context, customerID pgtype.UUID) ([]QuoteSummaryRow, error)
}

// PGStore is the pgx-backed Store implementation.
type PGStore struct {
	Pool *pgxpool.Pool
}

const customerColumns = `id, first_name, last_name, email, phone, notes, created_at, updated_at`

func (s *PGStore) List(ctx context.Context, query string, limit, offset int32) ([]Row, error) {
	const q = `
SELECT ` + customerColumns + `
FROM customers
WHERE ($1 = '' OR first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
ORDER BY last_name, first_name
LIMIT $2 OFFSET $3`
	rows, err := s.Pool.Query(ctx, q, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) Count(ctx context.Context, query string) (int64, error) {
	const q = `
SELECT COUNT(*)
FROM customers
WHERE ($1 = '' OR first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')`
	var total int64
	err := s.Pool.QueryRow(ctx, q, query).Scan(&total)
	return total, err
}

func (s *PGStore) Get(ctx context.Context, id pgtype.UUID) (Row, error) {
	const q = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	return scanCustomer(s.Pool.QueryRow(ctx, q, id))
}

func (s *PGStore) Create(ctx context.Context, r Row) (Row, error) {
	const q = `
INSERT INTO customers (first_name, last_name, email, phone, notes)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + customerColumns
	return scanCustomer(s.Pool.QueryRow(ctx, q, r.FirstName, r.LastName, r.Email, r.Phone, r.Notes))
}

func (s *PGStore) Update(ctx context.Context, r Row) (Row, error) {
	const q = `
UPDATE customers
SET first_name = $2, last_name = $3, email = $4, phone = $5, notes = $6, updated_at = now()
WHERE id = $1
RETURNING ` + customerColumns
	return scanCustomer(s.Pool.QueryRow(ctx, q, r.ID, r.FirstName, r.LastName, r.Email, r.Phone, r.Notes))
}

func (s *PGStore) Delete(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) QuoteSummaries(ctx context.Context, customerID pgtype.UUID) ([]QuoteSummaryRow, error) {
	const q = `
SELECT id, reference, status, created_at
FROM quotes
WHERE customer_id = $1
ORDER BY created_at DESC`
	rows, err := s.Pool.Query(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QuoteSummaryRow
	for rows.Next() {
		var r QuoteSummaryRow
		if err := rows.Scan(&r.ID, &r.Reference, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanCustomer(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(&r.ID, &r.FirstName, &r.LastName, &r.Email, &r.Phone, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

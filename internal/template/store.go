package template

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Row mirrors a templates table row.
type Row struct {
	ID        pgtype.UUID
	Name      string
	Category  string
	Subject   string
	Body      string
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

// Store abstracts template persistence.
type Store interface {
	List(ctx context.Context, category string) ([]Row, error)
	Get(ctx context.Context, id pgtype.UUID) (Row, error)
	GetByName(ctx context.Context, name string) (Row, error)
	Create(ctx context.Context, r Row) (Row, error)
	Update(ctx context.Context, r Row) (Row, error)
	Delete(ctx context.Context, id pgtype.UUID) (int64, error)
}

// PGStore is the pgx-backed Store implementation.
type PGStore struct {
	Pool *pgxpool.Pool
}

const templateColumns = `id, name, category, subject, body, created_at, updated_at`

func (s *PGStore) List(ctx context.Context, category string) ([]Row, error) {
	const q = `
SELECT ` + templateColumns + `
FROM templates
WHERE ($1 = '' OR category = $1)
ORDER BY name`
	rows, err := s.Pool.Query(ctx, q, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) Get(ctx context.Context, id pgtype.UUID) (Row, error) {
	const q = `SELECT ` + templateColumns + ` FROM templates WHERE id = $1`
	return scanTemplate(s.Pool.QueryRow(ctx, q, id))
}

func (s *PGStore) GetByName(ctx context.Context, name string) (Row, error) {
	const q = `SELECT ` + templateColumns + ` FROM templates WHERE name = $1`
	return scanTemplate(s.Pool.QueryRow(ctx, q, name))
}

func (s *PGStore) Create(ctx context.Context, r Row) (Row, error) {
	const q = `
INSERT INTO templates (name, category, subject, body)
VALUES ($1, $2, $3, $4)
RETURNING ` + templateColumns
	return scanTemplate(s.Pool.QueryRow(ctx, q, r.Name, r.Category, r.Subject, r.Body))
}

func (s *PGStore) Update(ctx context.Context, r Row) (Row, error) {
	const q = `
UPDATE templates
SET name = $2, category = $3, subject = $4, body = $5, updated_at = now()
WHERE id = $1
RETURNING ` + templateColumns
	return scanTemplate(s.Pool.QueryRow(ctx, q, r.ID, r.Name, r.Category, r.Subject, r.Body))
}

func (s *PGStore) Delete(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanTemplate(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(&r.ID, &r.Name, &r.Category, &r.Subject, &r.Body, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

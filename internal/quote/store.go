package quote

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Row mirrors a quotes table row.
type Row struct {
	ID         pgtype.UUID
	CustomerID pgtype.UUID
	Reference  string
	Status     string
	Markup     float64
	Discount   float64
	Strategy   pgtype.Text
	TripStart  pgtype.Date
	TripDays   int32
	Currency   string
	CreatedAt  pgtype.Timestamptz
	UpdatedAt  pgtype.Timestamptz
}

// ItemRow mirrors a quote_items table row.
type ItemRow struct {
	ID         pgtype.UUID
	QuoteID    pgtype.UUID
	ItemType   string
	Name       string
	Cost       float64
	Markup     float64
	MarkupType string
	Quantity   int32
	DayIndex   int32
	Details    []byte
	SortOrder  int32
}

// ListFilter narrows quote listings.
type ListFilter struct {
	CustomerID pgtype.UUID
	Status     string
	Limit      int32
	Offset     int32
}

// Store abstracts quote persistence.
type Store interface {
	CreateQuote(ctx context.Context, r Row) (Row, error)
	GetQuote(ctx context.Context, id pgtype.UUID) (Row, error)
	ListQuotes(ctx context.Context, filter ListFilter) ([]Row, error)
	CountQuotes(ctx context.Context, filter ListFilter) (int64, error)
	UpdateQuote(ctx context.Context, r Row) (Row, error)
	UpdateStatus(ctx context.Context, id pgtype.UUID, from []string, to string) (int64, error)
	DeleteQuote(ctx context.Context, id pgtype.UUID) (int64, error)

	ListItems(ctx context.Context, quoteID pgtype.UUID) ([]ItemRow, error)
	GetItem(ctx context.Context, id pgtype.UUID) (ItemRow, error)
	InsertItem(ctx context.Context, r ItemRow) (ItemRow, error)
	UpdateItem(ctx context.Context, r ItemRow) (ItemRow, error)
	DeleteItem(ctx context.Context, id pgtype.UUID) (int64, error)
	ReorderItems(ctx context.Context, quoteID pgtype.UUID, orderedIDs []pgtype.UUID) error
}

// PGStore is the pgx-backed Store implementation.
type PGStore struct {
	Pool *pgxpool.Pool
}

const quoteColumns = `id, customer_id, reference, status, markup, discount, markup_strategy, trip_start, trip_days, currency, created_at, updated_at`

const itemColumns = `id, quote_id, item_type, name, cost, markup, markup_type, quantity, day_index, details, sort_order`

func (s *PGStore) CreateQuote(ctx context.Context, r Row) (Row, error) {
	const q = `
INSERT INTO quotes (customer_id, reference, status, markup, discount, markup_strategy, trip_start, trip_days, currency)
VALUES ($1, $2, 'draft', $3, $4, $5, $6, $7, $8)
RETURNING ` + quoteColumns
	return scanQuote(s.Pool.QueryRow(ctx, q,
		r.CustomerID, r.Reference, r.Markup, r.Discount, r.Strategy, r.TripStart, r.TripDays, r.Currency))
}

func (s *PGStore) GetQuote(ctx context.Context, id pgtype.UUID) (Row, error) {
	const q = `SELECT ` + quoteColumns + ` FROM quotes WHERE id = $1`
	return scanQuote(s.Pool.QueryRow(ctx, q, id))
}

func (s *PGStore) ListQuotes(ctx context.Context, filter ListFilter) ([]Row, error) {
	const q = `
SELECT ` + quoteColumns + `
FROM quotes
WHERE ($1::uuid IS NULL OR customer_id = $1)
  AND ($2 = '' OR status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`
	rows, err := s.Pool.Query(ctx, q, filter.CustomerID, filter.Status, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) CountQuotes(ctx context.Context, filter ListFilter) (int64, error) {
	const q = `
SELECT COUNT(*) FROM quotes
WHERE ($1::uuid IS NULL OR customer_id = $1)
  AND ($2 = '' OR status = $2)`
	var total int64
	err := s.Pool.QueryRow(ctx, q, filter.CustomerID, filter.Status).Scan(&total)
	return total, err
}

func (s *PGStore) UpdateQuote(ctx context.Context, r Row) (Row, error) {
	const q = `
UPDATE quotes
SET markup = $2, discount = $3, markup_strategy = $4, reference = $5,
    trip_start = $6, trip_days = $7, currency = $8, updated_at = now()
WHERE id = $1
RETURNING ` + quoteColumns
	return scanQuote(s.Pool.QueryRow(ctx, q,
		r.ID, r.Markup, r.Discount, r.Strategy, r.Reference, r.TripStart, r.TripDays, r.Currency))
}

// UpdateStatus transitions a quote only when its current status is in from.
func (s *PGStore) UpdateStatus(ctx context.Context, id pgtype.UUID, from []string, to string) (int64, error) {
	const q = `
UPDATE quotes
SET status = $3, updated_at = now()
WHERE id = $1 AND status = ANY($2)`
	tag, err := s.Pool.Exec(ctx, q, id, from, to)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) DeleteQuote(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) ListItems(ctx context.Context, quoteID pgtype.UUID) ([]ItemRow, error) {
	const q = `SELECT ` + itemColumns + ` FROM quote_items WHERE quote_id = $1 ORDER BY sort_order, id`
	rows, err := s.Pool.Query(ctx, q, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ItemRow
	for rows.Next() {
		r, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) GetItem(ctx context.Context, id pgtype.UUID) (ItemRow, error) {
	const q = `SELECT ` + itemColumns + ` FROM quote_items WHERE id = $1`
	return scanItem(s.Pool.QueryRow(ctx, q, id))
}

func (s *PGStore) InsertItem(ctx context.Context, r ItemRow) (ItemRow, error) {
	const q = `
INSERT INTO quote_items (quote_id, item_type, name, cost, markup, markup_type, quantity, day_index, details, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
        COALESCE((SELECT MAX(sort_order) + 1 FROM quote_items WHERE quote_id = $1), 0))
RETURNING ` + itemColumns
	return scanItem(s.Pool.QueryRow(ctx, q,
		r.QuoteID, r.ItemType, r.Name, r.Cost, r.Markup, r.MarkupType, r.Quantity, r.DayIndex, r.Details))
}

func (s *PGStore) UpdateItem(ctx context.Context, r ItemRow) (ItemRow, error) {
	const q = `
UPDATE quote_items
SET item_type = $2, name = $3, cost = $4, markup = $5, markup_type = $6, quantity = $7, day_index = $8, details = $9
WHERE id = $1
RETURNING ` + itemColumns
	return scanItem(s.Pool.QueryRow(ctx, q,
		r.ID, r.ItemType, r.Name, r.Cost, r.Markup, r.MarkupType, r.Quantity, r.DayIndex, r.Details))
}

func (s *PGStore) DeleteItem(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM quote_items WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ReorderItems rewrites sort_order to match the supplied ID order.
func (s *PGStore) ReorderItems(ctx context.Context, quoteID pgtype.UUID, orderedIDs []pgtype.UUID) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	const q = `UPDATE quote_items SET sort_order = $3 WHERE id = $1 AND quote_id = $2`
	for position, id := range orderedIDs {
		if _, err := tx.Exec(ctx, q, id, quoteID, int32(position)); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func scanQuote(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(&r.ID, &r.CustomerID, &r.Reference, &r.Status, &r.Markup, &r.Discount,
		&r.Strategy, &r.TripStart, &r.TripDays, &r.Currency, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func scanItem(row pgx.Row) (ItemRow, error) {
	var r ItemRow
	err := row.Scan(&r.ID, &r.QuoteID, &r.ItemType, &r.Name, &r.Cost, &r.Markup,
		&r.MarkupType, &r.Quantity, &r.DayIndex, &r.Details, &r.SortOrder)
	return r, err
}

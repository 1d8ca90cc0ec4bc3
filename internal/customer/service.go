package customer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noobiecoder75/bookinggpt-api/internal/common"
)

// Customer is the API representation of a customer record.
type Customer struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuoteSummary is the compact quote listing embedded in a customer detail view.
type QuoteSummary struct {
	ID        string    `json:"id"`
	Reference string    `json:"reference"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Detail is a customer together with their quote history.
type Detail struct {
	Customer
	Quotes []QuoteSummary `json:"quotes"`
}

// Input captures payload for creating or updating a customer.
type Input struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Notes     string
}

// Service orchestrates customer CRUD.
type Service struct {
	store Store
}

// NewService constructs a customer service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns paginated customers matching an optional search query.
func (s *Service) List(ctx context.Context, query string, page, perPage int) ([]Customer, int64, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	query = strings.TrimSpace(query)

	rows, err := s.store.List(ctx, query, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	customers := make([]Customer, 0, len(rows))
	for _, r := range rows {
		customers = append(customers, convert(r))
	}
	return customers, total, nil
}

// Get returns a customer with their quote summaries.
func (s *Service) Get(ctx context.Context, id string) (Detail, error) {
	uid, err := toUUID(id)
	if err != nil {
		return Detail{}, common.NotFound("customer")
	}
	row, err := s.store.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Detail{}, common.NotFound("customer")
		}
		return Detail{}, err
	}
	summaries, err := s.store.QuoteSummaries(ctx, uid)
	if err != nil {
		return Detail{}, err
	}
	detail := Detail{Customer: convert(row), Quotes: make([]QuoteSummary, 0, len(summaries))}
	for _, q := range summaries {
		summary := QuoteSummary{
			ID:        uuidString(q.ID),
			Reference: q.Reference,
			Status:    q.Status,
		}
		if q.CreatedAt.Valid {
			summary.CreatedAt = q.CreatedAt.Time
		}
		detail.Quotes = append(detail.Quotes, summary)
	}
	return detail, nil
}

// Create inserts a new customer.
func (s *Service) Create(ctx context.Context, input Input) (Customer, error) {
	if err := validateInput(input); err != nil {
		return Customer{}, err
	}
	row, err := s.store.Create(ctx, rowFromInput(input))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Customer{}, common.Conflict("a customer with this email already exists")
		}
		return Customer{}, err
	}
	return convert(row), nil
}

// Update modifies an existing customer.
func (s *Service) Update(ctx context.Context, id string, input Input) (Customer, error) {
	uid, err := toUUID(id)
	if err != nil {
		return Customer{}, common.NotFound("customer")
	}
	if err := validateInput(input); err != nil {
		return Customer{}, err
	}
	r := rowFromInput(input)
	r.ID = uid
	row, err := s.store.Update(ctx, r)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, common.NotFound("customer")
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Customer{}, common.Conflict("a customer with this email already exists")
		}
		return Customer{}, err
	}
	return convert(row), nil
}

// Delete removes a customer.
func (s *Service) Delete(ctx context.Context, id string) error {
	uid, err := toUUID(id)
	if err != nil {
		return common.NotFound("customer")
	}
	affected, err := s.store.Delete(ctx, uid)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return common.Conflict("customer has quotes and cannot be deleted")
		}
		return err
	}
	if affected == 0 {
		return common.NotFound("customer")
	}
	return nil
}

func validateInput(input Input) error {
	if strings.TrimSpace(input.FirstName) == "" {
		return common.ValidationError("first_name is required")
	}
	if strings.TrimSpace(input.LastName) == "" {
		return common.ValidationError("last_name is required")
	}
	if strings.TrimSpace(input.Email) == "" {
		return common.ValidationError("email is required")
	}
	return nil
}

func rowFromInput(input Input) Row {
	return Row{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     strings.TrimSpace(strings.ToLower(input.Email)),
		Phone:     strings.TrimSpace(input.Phone),
		Notes:     strings.TrimSpace(input.Notes),
	}
}

func convert(r Row) Customer {
	c := Customer{
		ID:        uuidString(r.ID),
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Notes:     r.Notes,
	}
	if r.CreatedAt.Valid {
		c.CreatedAt = r.CreatedAt.Time
	}
	if r.UpdatedAt.Valid {
		c.UpdatedAt = r.UpdatedAt.Time
	}
	return c
}

func toUUID(value string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return pgtype.UUID{}, err
	}
	var id pgtype.UUID
	copy(id.Bytes[:], parsed[:])
	id.Valid = true
	return id, nil
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	u, err := uuid.FromBytes(id.Bytes[:])
	if err != nil {
		return ""
	}
	return u.String()
}

package template

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noobiecoder75/bookinggpt-api/internal/common"
)

// Template is the API representation of a message template.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input captures payload for creating or updating a template.
type Input struct {
	Name     string
	Category string
	Subject  string
	Body     string
}

// Rendered is a template with all placeholders substituted.
type Rendered struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Service orchestrates template CRUD, rendering, and caching.
type Service struct {
	store Store
	cache *Cache
}

// NewService constructs a template service. cache may be nil.
func NewService(store Store, cache *Cache) *Service {
	return &Service{store: store, cache: cache}
}

const listCacheKey = "templates:list:"

// List returns templates, optionally filtered by category.
func (s *Service) List(ctx context.Context, category string) ([]Template, error) {
	category = strings.TrimSpace(category)
	key := listCacheKey + category
	var cached []Template
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	rows, err := s.store.List(ctx, category)
	if err != nil {
		return nil, err
	}
	templates := make([]Template, 0, len(rows))
	for _, r := range rows {
		templates = append(templates, convert(r))
	}
	_ = s.cache.SetJSON(ctx, key, templates)
	return templates, nil
}

// Get returns a single template by ID.
func (s *Service) Get(ctx context.Context, id string) (Template, error) {
	uid, err := toUUID(id)
	if err != nil {
		return Template{}, common.NotFound("template")
	}
	row, err := s.store.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, common.NotFound("template")
		}
		return Template{}, err
	}
	return convert(row), nil
}

// GetByName returns a template by its unique name. Used by the quote send flow.
func (s *Service) GetByName(ctx context.Context, name string) (Template, error) {
	row, err := s.store.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, common.NotFound("template")
		}
		return Template{}, err
	}
	return convert(row), nil
}

// Create inserts a new template.
func (s *Service) Create(ctx context.Context, input Input) (Template, error) {
	if err := validateInput(input); err != nil {
		return Template{}, err
	}
	row, err := s.store.Create(ctx, rowFromInput(input))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Template{}, common.Conflict("a template with this name already exists")
		}
		return Template{}, err
	}
	s.invalidate(ctx)
	return convert(row), nil
}

// Update modifies an existing template.
func (s *Service) Update(ctx context.Context, id string, input Input) (Template, error) {
	uid, err := toUUID(id)
	if err != nil {
		return Template{}, common.NotFound("template")
	}
	if err := validateInput(input); err != nil {
		return Template{}, err
	}
	r := rowFromInput(input)
	r.ID = uid
	row, err := s.store.Update(ctx, r)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, common.NotFound("template")
		}
		return Template{}, err
	}
	s.invalidate(ctx)
	return convert(row), nil
}

// Delete removes a template.
func (s *Service) Delete(ctx context.Context, id string) error {
	uid, err := toUUID(id)
	if err != nil {
		return common.NotFound("template")
	}
	affected, err := s.store.Delete(ctx, uid)
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.NotFound("template")
	}
	s.invalidate(ctx)
	return nil
}

// Preview renders a template by ID against the supplied variables.
func (s *Service) Preview(ctx context.Context, id string, vars map[string]string) (Rendered, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return Rendered{}, err
	}
	return RenderTemplate(tpl, vars), nil
}

// Render substitutes {{variable}} placeholders in the input string. Unknown
// placeholders are left untouched so gaps are visible in previews.
func Render(input string, vars map[string]string) string {
	if len(vars) == 0 {
		return input
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, fmt.Sprintf("{{%s}}", name), value)
	}
	return strings.NewReplacer(pairs...).Replace(input)
}

// RenderTemplate renders both subject and body of a template.
func RenderTemplate(tpl Template, vars map[string]string) Rendered {
	return Rendered{
		Subject: Render(tpl.Subject, vars),
		Body:    Render(tpl.Body, vars),
	}
}

func (s *Service) invalidate(ctx context.Context) {
	_ = s.cache.DeletePrefix(ctx, listCacheKey)
}

func validateInput(input Input) error {
	if strings.TrimSpace(input.Name) == "" {
		return common.ValidationError("name is required")
	}
	if strings.TrimSpace(input.Subject) == "" {
		return common.ValidationError("subject is required")
	}
	if strings.TrimSpace(input.Body) == "" {
		return common.ValidationError("body is required")
	}
	return nil
}

func rowFromInput(input Input) Row {
	return Row{
		Name:     strings.TrimSpace(input.Name),
		Category: strings.TrimSpace(input.Category),
		Subject:  input.Subject,
		Body:     input.Body,
	}
}

func convert(r Row) Template {
	t := Template{
		ID:       uuidString(r.ID),
		Name:     r.Name,
		Category: r.Category,
		Subject:  r.Subject,
		Body:     r.Body,
	}
	if r.CreatedAt.Valid {
		t.CreatedAt = r.CreatedAt.Time
	}
	if r.UpdatedAt.Valid {
		t.UpdatedAt = r.UpdatedAt.Time
	}
	return t
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

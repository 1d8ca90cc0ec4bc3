package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noobiecoder75/bookinggpt-api/internal/common"
	"github.com/noobiecoder75/bookinggpt-api/internal/events"
	"github.com/noobiecoder75/bookinggpt-api/internal/obs"
	"github.com/noobiecoder75/bookinggpt-api/internal/pricing"
	"github.com/noobiecoder75/bookinggpt-api/internal/quote"
)

// Operational booking statuses.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// transitions lists the allowed predecessor statuses for each target status.
var transitions = map[string][]string{
	StatusConfirmed:  {StatusPending},
	StatusInProgress: {StatusConfirmed},
	StatusCompleted:  {StatusInProgress},
	StatusCancelled:  {StatusPending, StatusConfirmed, StatusInProgress},
}

// Booking is the API representation of a booking.
type Booking struct {
	ID         string    `json:"id"`
	QuoteID    string    `json:"quote_id"`
	CustomerID string    `json:"customer_id"`
	Reference  string    `json:"reference"`
	Status     string    `json:"status"`
	Total      float64   `json:"total"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// QuoteConverter is the subset of the quote service the conversion flow needs.
type QuoteConverter interface {
	EngineQuote(ctx context.Context, id string) (quote.Row, pricing.Quote, error)
	MarkConverted(ctx context.Context, id pgtype.UUID) error
}

// Service orchestrates quote conversion and the operations board.
type Service struct {
	store  Store
	quotes QuoteConverter
	bus    *events.Bus
}

// NewService constructs a booking service.
func NewService(store Store, quotes QuoteConverter, bus *events.Bus) *Service {
	return &Service{store: store, quotes: quotes, bus: bus}
}

// Convert turns a sent quote into a pending booking. The stored total is the
// engine's quote total, so the booking shows exactly the number the customer
// was quoted.
func (s *Service) Convert(ctx context.Context, quoteID string) (Booking, error) {
	row, engineQuote, err := s.quotes.EngineQuote(ctx, quoteID)
	if err != nil {
		observeConversion("error")
		return Booking{}, err
	}
	if row.Status != quote.StatusSent {
		observeConversion("conflict")
		return Booking{}, common.Conflict("only sent quotes can be converted")
	}
	total := pricing.QuoteTotal(engineQuote, pricing.Options{})

	if err := s.quotes.MarkConverted(ctx, row.ID); err != nil {
		observeConversion("conflict")
		return Booking{}, err
	}
	created, err := s.store.Create(ctx, Row{
		QuoteID:    row.ID,
		CustomerID: row.CustomerID,
		Reference:  newReference(),
		Total:      total,
		Currency:   row.Currency,
	})
	if err != nil {
		observeConversion("error")
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Booking{}, common.Conflict("quote is already converted")
		}
		return Booking{}, err
	}
	s.emit(ctx, events.TopicQuoteConverted, row.ID, map[string]any{
		"bookingId": uuidString(created.ID),
		"reference": created.Reference,
		"total":     created.Total,
		"currency":  created.Currency,
	})
	observeConversion("converted")
	return convert(created), nil
}

// Get returns a booking by ID.
func (s *Service) Get(ctx context.Context, id string) (Booking, error) {
	uid, err := toUUID(id)
	if err != nil {
		return Booking{}, common.NotFound("booking")
	}
	row, err := s.store.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, common.NotFound("booking")
		}
		return Booking{}, err
	}
	return convert(row), nil
}

// List returns paginated bookings, optionally filtered by status.
func (s *Service) List(ctx context.Context, status string, page, perPage int) ([]Booking, int64, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	status = strings.TrimSpace(status)
	if status != "" && !validStatus(status) {
		return nil, 0, common.ValidationError("unknown booking status")
	}
	rows, err := s.store.List(ctx, status, int32(perPage), int32((page-1)*perPage))
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx, status)
	if err != nil {
		return nil, 0, err
	}
	bookings := make([]Booking, 0, len(rows))
	for _, r := range rows {
		bookings = append(bookings, convert(r))
	}
	return bookings, total, nil
}

// PatchStatus moves a booking along the operational pipeline.
func (s *Service) PatchStatus(ctx context.Context, id, to string) (Booking, error) {
	uid, err := toUUID(id)
	if err != nil {
		return Booking{}, common.NotFound("booking")
	}
	to = strings.TrimSpace(to)
	from, ok := transitions[to]
	if !ok {
		return Booking{}, common.ValidationError("unknown booking status")
	}
	current, err := s.store.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, common.NotFound("booking")
		}
		return Booking{}, err
	}
	affected, err := s.store.UpdateStatus(ctx, uid, from, to)
	if err != nil {
		return Booking{}, err
	}
	if affected == 0 {
		return Booking{}, common.Conflict(fmt.Sprintf("cannot move booking from %s to %s", current.Status, to))
	}
	s.emit(ctx, events.TopicBookingStatusChanged, uid, map[string]any{
		"reference": current.Reference,
		"from":      current.Status,
		"to":        to,
	})
	current.Status = to
	return convert(current), nil
}

// Counts returns the per-status totals for the operations board.
func (s *Service) Counts(ctx context.Context) (map[string]int64, error) {
	counts, err := s.store.CountsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for _, status := range []string{StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled} {
		if _, ok := counts[status]; !ok {
			counts[status] = 0
		}
	}
	return counts, nil
}

func (s *Service) emit(ctx context.Context, topic string, aggregateID pgtype.UUID, payload any) {
	if s.bus == nil {
		return
	}
	_, _ = s.bus.Emit(ctx, topic, aggregateID, payload)
}

func observeConversion(result string) {
	if obs.BookingConversionTotal != nil {
		obs.BookingConversionTotal.WithLabelValues(result).Inc()
	}
}

func validStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func convert(r Row) Booking {
	b := Booking{
		ID:         uuidString(r.ID),
		QuoteID:    uuidString(r.QuoteID),
		CustomerID: uuidString(r.CustomerID),
		Reference:  r.Reference,
		Status:     r.Status,
		Total:      r.Total,
		Currency:   r.Currency,
	}
	if r.CreatedAt.Valid {
		b.CreatedAt = r.CreatedAt.Time
	}
	if r.UpdatedAt.Valid {
		b.UpdatedAt = r.UpdatedAt.Time
	}
	return b
}

func newReference() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("B-%d-%s", time.Now().Year(), strings.ToUpper(hex.EncodeToString(buf)))
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

package quote

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noobiecoder75/bookinggpt-api/internal/common"
	"github.com/noobiecoder75/bookinggpt-api/internal/customer"
	"github.com/noobiecoder75/bookinggpt-api/internal/events"
	"github.com/noobiecoder75/bookinggpt-api/internal/obs"
	"github.com/noobiecoder75/bookinggpt-api/internal/pricing"
	"github.com/noobiecoder75/bookinggpt-api/internal/template"
)

// Quote statuses.
const (
	StatusDraft     = "draft"
	StatusSent      = "sent"
	StatusConverted = "converted"
	StatusExpired   = "expired"
)

// DefaultSendTemplate is the template used when a send request names none.
const DefaultSendTemplate = "quote-send"

// Item is the API representation of a quote line item with computed prices.
type Item struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Name       string          `json:"name"`
	Cost       float64         `json:"cost"`
	Markup     float64         `json:"markup"`
	MarkupType string          `json:"markup_type"`
	Quantity   int             `json:"quantity"`
	Day        int             `json:"day"`
	Details    json.RawMessage `json:"details,omitempty"`
	SortOrder  int             `json:"sort_order"`
	UnitPrice  float64         `json:"unit_price"`
	Total      float64         `json:"total"`
}

// Pricing is the computed money block attached to quote responses.
type Pricing struct {
	Strategy      string  `json:"strategy"`
	Subtotal      float64 `json:"subtotal"`
	GrandTotal    float64 `json:"grand_total"`
	AverageMarkup float64 `json:"average_markup"`
	Currency      string  `json:"currency"`
}

// Quote is the API representation of a quote with items and pricing.
type Quote struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Reference  string    `json:"reference"`
	Status     string    `json:"status"`
	Markup     float64   `json:"markup"`
	Discount   float64   `json:"discount"`
	Strategy   string    `json:"strategy,omitempty"`
	TripStart  string    `json:"trip_start,omitempty"`
	TripDays   int       `json:"trip_days"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Items      []Item    `json:"items"`
	Pricing    Pricing   `json:"pricing"`
}

// Summary is the compact listing shape without items.
type Summary struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Reference  string    `json:"reference"`
	Status     string    `json:"status"`
	TripDays   int       `json:"trip_days"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateInput captures payload for creating a draft quote.
type CreateInput struct {
	CustomerID string
	Markup     *float64
	Discount   float64
	Strategy   string
	TripStart  string
	TripDays   int
	Currency   string
}

// UpdateInput captures a partial quote update. Nil pointers leave fields untouched.
type UpdateInput struct {
	Markup    *float64
	Discount  *float64
	Strategy  *string
	Reference *string
	TripStart *string
	TripDays  *int
	Currency  *string
}

// ItemInput captures payload for adding or updating a line item.
type ItemInput struct {
	Type       string
	Name       string
	Cost       float64
	Markup     float64
	MarkupType string
	Quantity   int
	Day        int
	Details    json.RawMessage
}

// SendInput configures the send flow.
type SendInput struct {
	TemplateName string
	Variables    map[string]string
}

// CustomerDirectory is the subset of the customer service the quote flow needs.
type CustomerDirectory interface {
	Get(ctx context.Context, id string) (customer.Detail, error)
}

// TemplateSource resolves templates by name for the send flow.
type TemplateSource interface {
	GetByName(ctx context.Context, name string) (template.Template, error)
}

// Mailer is the subset of the mail outbox the quote flow needs.
type Mailer interface {
	Enqueue(ctx context.Context, recipients []string, subject, body string, maxAttempt int32) error
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store           Store
	Customers       CustomerDirectory
	Templates       TemplateSource
	Mailer          Mailer
	Bus             *events.Bus
	MinMarkup       func(itemType string) float64
	DefaultMarkup   float64
	Currency        string
	MailMaxAttempts int32
}

// Service orchestrates quote CRUD, item management, pricing and the send flow.
type Service struct {
	store           Store
	customers       CustomerDirectory
	templates       TemplateSource
	mailer          Mailer
	bus             *events.Bus
	minMarkup       func(itemType string) float64
	defaultMarkup   float64
	currency        string
	mailMaxAttempts int32
}

// NewService constructs a quote service.
func NewService(cfg ServiceConfig) *Service {
	minMarkup := cfg.MinMarkup
	if minMarkup == nil {
		minMarkup = func(string) float64 { return 0 }
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "USD"
	}
	maxAttempts := cfg.MailMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Service{
		store:           cfg.Store,
		customers:       cfg.Customers,
		templates:       cfg.Templates,
		mailer:          cfg.Mailer,
		bus:             cfg.Bus,
		minMarkup:       minMarkup,
		defaultMarkup:   cfg.DefaultMarkup,
		currency:        currency,
		mailMaxAttempts: maxAttempts,
	}
}

// Create opens a new draft quote for a customer.
func (s *Service) Create(ctx context.Context, input CreateInput) (Quote, error) {
	customerID, err := toUUID(input.CustomerID)
	if err != nil {
		return Quote{}, common.ValidationError("customer_id is required")
	}
	if s.customers != nil {
		if _, err := s.customers.Get(ctx, input.CustomerID); err != nil {
			return Quote{}, err
		}
	}
	if err := validateStrategy(input.Strategy); err != nil {
		return Quote{}, err
	}
	if err := validateDiscount(input.Discount); err != nil {
		return Quote{}, err
	}
	markup := s.defaultMarkup
	if input.Markup != nil {
		markup = *input.Markup
	}
	if markup < 0 {
		return Quote{}, common.ValidationError("markup must not be negative")
	}
	tripStart, err := parseTripStart(input.TripStart)
	if err != nil {
		return Quote{}, err
	}
	if input.TripDays < 0 {
		return Quote{}, common.ValidationError("trip_days must not be negative")
	}
	currency := input.Currency
	if currency == "" {
		currency = s.currency
	}

	row, err := s.store.CreateQuote(ctx, Row{
		CustomerID: customerID,
		Reference:  newReference(),
		Markup:     markup,
		Discount:   input.Discount,
		Strategy:   strategyText(input.Strategy),
		TripStart:  tripStart,
		TripDays:   int32(input.TripDays),
		Currency:   currency,
	})
	if err != nil {
		return Quote{}, err
	}
	return s.assemble(ctx, row)
}

// Get returns a quote with items and computed pricing.
func (s *Service) Get(ctx context.Context, id string) (Quote, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	return s.assemble(ctx, row)
}

// List returns paginated quote summaries, optionally filtered.
func (s *Service) List(ctx context.Context, customerID, status string, page, perPage int) ([]Summary, int64, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	filter := ListFilter{
		Status: strings.TrimSpace(status),
		Limit:  int32(perPage),
		Offset: int32((page - 1) * perPage),
	}
	if strings.TrimSpace(customerID) != "" {
		cid, err := toUUID(customerID)
		if err != nil {
			return nil, 0, common.ValidationError("customer_id is not a valid id")
		}
		filter.CustomerID = cid
	}
	rows, err := s.store.ListQuotes(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountQuotes(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	summaries := make([]Summary, 0, len(rows))
	for _, r := range rows {
		summary := Summary{
			ID:         uuidString(r.ID),
			CustomerID: uuidString(r.CustomerID),
			Reference:  r.Reference,
			Status:     r.Status,
			TripDays:   int(r.TripDays),
			Currency:   r.Currency,
		}
		if r.CreatedAt.Valid {
			summary.CreatedAt = r.CreatedAt.Time
		}
		summaries = append(summaries, summary)
	}
	return summaries, total, nil
}

// Update modifies pricing fields on a draft quote.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (Quote, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if row.Status != StatusDraft {
		return Quote{}, common.Conflict("only draft quotes can be edited")
	}
	if input.Markup != nil {
		if *input.Markup < 0 {
			return Quote{}, common.ValidationError("markup must not be negative")
		}
		row.Markup = *input.Markup
	}
	if input.Discount != nil {
		if err := validateDiscount(*input.Discount); err != nil {
			return Quote{}, err
		}
		row.Discount = *input.Discount
	}
	if input.Strategy != nil {
		if err := validateStrategy(*input.Strategy); err != nil {
			return Quote{}, err
		}
		row.Strategy = strategyText(*input.Strategy)
	}
	if input.Reference != nil {
		ref := strings.TrimSpace(*input.Reference)
		if ref == "" {
			return Quote{}, common.ValidationError("reference must not be empty")
		}
		row.Reference = ref
	}
	if input.TripStart != nil {
		tripStart, err := parseTripStart(*input.TripStart)
		if err != nil {
			return Quote{}, err
		}
		row.TripStart = tripStart
	}
	if input.TripDays != nil {
		if *input.TripDays < 0 {
			return Quote{}, common.ValidationError("trip_days must not be negative")
		}
		row.TripDays = int32(*input.TripDays)
	}
	if input.Currency != nil && *input.Currency != "" {
		row.Currency = *input.Currency
	}
	updated, err := s.store.UpdateQuote(ctx, row)
	if err != nil {
		return Quote{}, err
	}
	return s.assemble(ctx, updated)
}

// Delete removes a quote. Converted quotes are kept for booking history.
func (s *Service) Delete(ctx context.Context, id string) error {
	row, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if row.Status == StatusConverted {
		return common.Conflict("converted quotes cannot be deleted")
	}
	affected, err := s.store.DeleteQuote(ctx, row.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.NotFound("quote")
	}
	return nil
}

// AddItem appends a line item to a draft quote.
func (s *Service) AddItem(ctx context.Context, quoteID string, input ItemInput) (Quote, error) {
	row, err := s.requireDraft(ctx, quoteID)
	if err != nil {
		return Quote{}, err
	}
	itemRow, err := s.itemRowFromInput(input)
	if err != nil {
		return Quote{}, err
	}
	itemRow.QuoteID = row.ID
	if _, err := s.store.InsertItem(ctx, itemRow); err != nil {
		return Quote{}, err
	}
	return s.assemble(ctx, row)
}

// UpdateItem replaces a line item on a draft quote.
func (s *Service) UpdateItem(ctx context.Context, quoteID, itemID string, input ItemInput) (Quote, error) {
	row, err := s.requireDraft(ctx, quoteID)
	if err != nil {
		return Quote{}, err
	}
	existing, err := s.loadItem(ctx, row.ID, itemID)
	if err != nil {
		return Quote{}, err
	}
	itemRow, err := s.itemRowFromInput(input)
	if err != nil {
		return Quote{}, err
	}
	itemRow.ID = existing.ID
	itemRow.QuoteID = row.ID
	if _, err := s.store.UpdateItem(ctx, itemRow); err != nil {
		return Quote{}, err
	}
	return s.assemble(ctx, row)
}

// RemoveItem deletes a line item from a draft quote.
func (s *Service) RemoveItem(ctx context.Context, quoteID, itemID string) (Quote, error) {
	row, err := s.requireDraft(ctx, quoteID)
	if err != nil {
		return Quote{}, err
	}
	existing, err := s.loadItem(ctx, row.ID, itemID)
	if err != nil {
		return Quote{}, err
	}
	if _, err := s.store.DeleteItem(ctx, existing.ID); err != nil {
		return Quote{}, err
	}
	return s.assemble(ctx, row)
}

// ReorderItems applies a new item ordering on a draft quote.
func (s *Service) ReorderItems(ctx context.Context, quoteID string, orderedIDs []string) (Quote, error) {
	row, err := s.requireDraft(ctx, quoteID)
	if err != nil {
		return Quote{}, err
	}
	items, err := s.store.ListItems(ctx, row.ID)
	if err != nil {
		return Quote{}, err
	}
	if len(orderedIDs) != len(items) {
		return Quote{}, common.ValidationError("ordering must include every item exactly once")
	}
	known := make(map[string]bool, len(items))
	for _, it := range items {
		known[uuidString(it.ID)] = true
	}
	ids := make([]pgtype.UUID, 0, len(orderedIDs))
	for _, raw := range orderedIDs {
		if !known[raw] {
			return Quote{}, common.ValidationError("ordering references an unknown item")
		}
		delete(known, raw)
		id, err := toUUID(raw)
		if err != nil {
			return Quote{}, common.ValidationError("ordering references an invalid id")
		}
		ids = append(ids, id)
	}
	if err := s.store.ReorderItems(ctx, row.ID, ids); err != nil {
		return Quote{}, err
	}
	return s.assemble(ctx, row)
}

// Send emails the quote to its customer and transitions draft -> sent.
func (s *Service) Send(ctx context.Context, id string, input SendInput) (Quote, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if row.Status != StatusDraft {
		return Quote{}, common.Conflict("only draft quotes can be sent")
	}
	detail, err := s.customers.Get(ctx, uuidString(row.CustomerID))
	if err != nil {
		return Quote{}, err
	}
	assembled, err := s.assemble(ctx, row)
	if err != nil {
		return Quote{}, err
	}

	templateName := strings.TrimSpace(input.TemplateName)
	if templateName == "" {
		templateName = DefaultSendTemplate
	}
	tpl, err := s.templates.GetByName(ctx, templateName)
	if err != nil {
		return Quote{}, err
	}
	vars := map[string]string{
		"first_name": detail.FirstName,
		"last_name":  detail.LastName,
		"reference":  assembled.Reference,
		"total":      fmt.Sprintf("%.2f %s", assembled.Pricing.GrandTotal, assembled.Currency),
	}
	for name, value := range input.Variables {
		vars[name] = value
	}
	rendered := template.RenderTemplate(tpl, vars)

	affected, err := s.store.UpdateStatus(ctx, row.ID, []string{StatusDraft}, StatusSent)
	if err != nil {
		return Quote{}, err
	}
	if affected == 0 {
		observeSend("conflict")
		return Quote{}, common.Conflict("quote is no longer in draft")
	}

	if err := s.mailer.Enqueue(ctx, []string{detail.Email}, rendered.Subject, rendered.Body, s.mailMaxAttempts); err != nil {
		observeSend("error")
		return Quote{}, fmt.Errorf("enqueue quote email: %w", err)
	}
	s.emit(ctx, events.TopicQuoteSent, row.ID, map[string]any{
		"reference":   assembled.Reference,
		"customerId":  uuidString(row.CustomerID),
		"grandTotal":  assembled.Pricing.GrandTotal,
		"currency":    assembled.Currency,
		"strategy":    assembled.Pricing.Strategy,
	})
	observeSend("sent")

	assembled.Status = StatusSent
	return assembled, nil
}

// Expire transitions a sent quote to expired.
func (s *Service) Expire(ctx context.Context, id string) (Quote, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	affected, err := s.store.UpdateStatus(ctx, row.ID, []string{StatusSent}, StatusExpired)
	if err != nil {
		return Quote{}, err
	}
	if affected == 0 {
		return Quote{}, common.Conflict("only sent quotes can expire")
	}
	s.emit(ctx, events.TopicQuoteExpired, row.ID, map[string]any{"reference": row.Reference})
	row.Status = StatusExpired
	return s.assemble(ctx, row)
}

// MarkConverted transitions a sent quote to converted. Called by the booking flow.
func (s *Service) MarkConverted(ctx context.Context, id pgtype.UUID) error {
	affected, err := s.store.UpdateStatus(ctx, id, []string{StatusSent}, StatusConverted)
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.Conflict("only sent quotes can be converted")
	}
	return nil
}

// EngineQuote loads a quote and returns its pricing-engine projection.
// The booking flow snapshots totals through this so the number it stores is
// the same one the quote endpoints display.
func (s *Service) EngineQuote(ctx context.Context, id string) (Row, pricing.Quote, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return Row{}, pricing.Quote{}, err
	}
	items, err := s.store.ListItems(ctx, row.ID)
	if err != nil {
		return Row{}, pricing.Quote{}, err
	}
	return row, toEngine(row, items), nil
}

func (s *Service) requireDraft(ctx context.Context, id string) (Row, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return Row{}, err
	}
	if row.Status != StatusDraft {
		return Row{}, common.Conflict("only draft quotes can be edited")
	}
	return row, nil
}

func (s *Service) load(ctx context.Context, id string) (Row, error) {
	uid, err := toUUID(id)
	if err != nil {
		return Row{}, common.NotFound("quote")
	}
	row, err := s.store.GetQuote(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Row{}, common.NotFound("quote")
		}
		return Row{}, err
	}
	return row, nil
}

func (s *Service) loadItem(ctx context.Context, quoteID pgtype.UUID, itemID string) (ItemRow, error) {
	uid, err := toUUID(itemID)
	if err != nil {
		return ItemRow{}, common.NotFound("quote item")
	}
	row, err := s.store.GetItem(ctx, uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ItemRow{}, common.NotFound("quote item")
		}
		return ItemRow{}, err
	}
	if row.QuoteID != quoteID {
		return ItemRow{}, common.NotFound("quote item")
	}
	return row, nil
}

func (s *Service) itemRowFromInput(input ItemInput) (ItemRow, error) {
	itemType := strings.TrimSpace(strings.ToLower(input.Type))
	switch pricing.ItemType(itemType) {
	case pricing.ItemFlight, pricing.ItemHotel, pricing.ItemTour, pricing.ItemTransfer:
	default:
		return ItemRow{}, common.ValidationError("type must be one of flight, hotel, tour, transfer")
	}
	if strings.TrimSpace(input.Name) == "" {
		return ItemRow{}, common.ValidationError("name is required")
	}
	if input.Cost < 0 {
		return ItemRow{}, common.ValidationError("cost must not be negative")
	}
	markupType := strings.TrimSpace(strings.ToLower(input.MarkupType))
	if markupType == "" {
		markupType = string(pricing.MarkupPercentage)
	}
	if markupType != string(pricing.MarkupPercentage) && markupType != string(pricing.MarkupFixed) {
		return ItemRow{}, common.ValidationError("markup_type must be percentage or fixed")
	}
	if input.Markup < 0 {
		return ItemRow{}, common.ValidationError("markup must not be negative")
	}
	if err := s.checkMinimumMarkup(itemType, input.Cost, input.Markup, markupType); err != nil {
		return ItemRow{}, err
	}
	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	if input.Day < 0 {
		return ItemRow{}, common.ValidationError("day must not be negative")
	}
	details := input.Details
	if len(details) == 0 {
		details = json.RawMessage("{}")
	} else if !json.Valid(details) {
		return ItemRow{}, common.ValidationError("details must be valid JSON")
	}
	return ItemRow{
		ItemType:   itemType,
		Name:       strings.TrimSpace(input.Name),
		Cost:       input.Cost,
		Markup:     input.Markup,
		MarkupType: markupType,
		Quantity:   int32(quantity),
		DayIndex:   int32(input.Day),
		Details:    details,
	}, nil
}

// checkMinimumMarkup enforces the per-type markup floor. Fixed markups are
// compared through their implied percentage; a zero markup is allowed because
// mixed-strategy items fall back to the quote markup.
func (s *Service) checkMinimumMarkup(itemType string, cost, markup float64, markupType string) error {
	minimum := s.minMarkup(itemType)
	if minimum <= 0 || markup == 0 {
		return nil
	}
	percent := markup
	if markupType == string(pricing.MarkupFixed) {
		if cost <= 0 {
			return nil
		}
		percent = markup / cost * 100
	}
	if percent < minimum {
		return common.ValidationError(fmt.Sprintf("markup for %s items must be at least %.2f%%", itemType, minimum))
	}
	return nil
}

func (s *Service) assemble(ctx context.Context, row Row) (Quote, error) {
	items, err := s.store.ListItems(ctx, row.ID)
	if err != nil {
		return Quote{}, err
	}
	engineQuote := toEngine(row, items)
	strategy := pricing.ResolveStrategy(engineQuote, pricing.Options{})
	if obs.QuoteCalcTotal != nil {
		obs.QuoteCalcTotal.WithLabelValues(string(strategy)).Inc()
	}

	out := Quote{
		ID:         uuidString(row.ID),
		CustomerID: uuidString(row.CustomerID),
		Reference:  row.Reference,
		Status:     row.Status,
		Markup:     row.Markup,
		Discount:   row.Discount,
		TripDays:   int(row.TripDays),
		Currency:   row.Currency,
		Items:      make([]Item, 0, len(items)),
		Pricing: Pricing{
			Strategy:      string(strategy),
			Subtotal:      pricing.Subtotal(engineQuote, pricing.Options{}),
			GrandTotal:    pricing.QuoteTotal(engineQuote, pricing.Options{}),
			AverageMarkup: pricing.AverageMarkup(engineQuote),
			Currency:      row.Currency,
		},
	}
	if row.Strategy.Valid {
		out.Strategy = row.Strategy.String
	}
	if row.TripStart.Valid {
		out.TripStart = row.TripStart.Time.Format("2006-01-02")
	}
	if row.CreatedAt.Valid {
		out.CreatedAt = row.CreatedAt.Time
	}
	if row.UpdatedAt.Valid {
		out.UpdatedAt = row.UpdatedAt.Time
	}
	for i, it := range items {
		engineItem := engineQuote.Items[i]
		out.Items = append(out.Items, Item{
			ID:         uuidString(it.ID),
			Type:       it.ItemType,
			Name:       it.Name,
			Cost:       it.Cost,
			Markup:     it.Markup,
			MarkupType: it.MarkupType,
			Quantity:   int(it.Quantity),
			Day:        int(it.DayIndex),
			Details:    json.RawMessage(it.Details),
			SortOrder:  int(it.SortOrder),
			UnitPrice:  pricing.ItemPrice(engineItem, engineQuote, pricing.Options{}),
			Total:      pricing.ItemTotal(engineItem, engineQuote, pricing.Options{}),
		})
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, topic string, aggregateID pgtype.UUID, payload any) {
	if s.bus == nil {
		return
	}
	// event fan-out is best effort; the state transition already committed
	_, _ = s.bus.Emit(ctx, topic, aggregateID, payload)
}

func observeSend(result string) {
	if obs.QuoteSendTotal != nil {
		obs.QuoteSendTotal.WithLabelValues(result).Inc()
	}
}

func toEngine(row Row, items []ItemRow) pricing.Quote {
	q := pricing.Quote{
		Markup:   row.Markup,
		Discount: row.Discount,
		Items:    make([]pricing.Item, 0, len(items)),
	}
	if row.Strategy.Valid {
		q.Strategy = pricing.Strategy(row.Strategy.String)
	}
	for _, it := range items {
		q.Items = append(q.Items, pricing.Item{
			Cost:       it.Cost,
			Markup:     it.Markup,
			MarkupType: pricing.MarkupType(it.MarkupType),
			Quantity:   int(it.Quantity),
			Type:       pricing.ItemType(it.ItemType),
			Day:        int(it.DayIndex),
		})
	}
	return q
}

func validateStrategy(value string) error {
	switch pricing.Strategy(value) {
	case pricing.StrategyUnset, pricing.StrategyGlobal, pricing.StrategyIndividual, pricing.StrategyMixed:
		return nil
	default:
		return common.ValidationError("strategy must be one of global, individual, mixed")
	}
}

func validateDiscount(value float64) error {
	if value < 0 || value >= 100 {
		return common.ValidationError("discount must be at least 0 and below 100")
	}
	return nil
}

func strategyText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}

func parseTripStart(value string) (pgtype.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return pgtype.Date{}, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return pgtype.Date{}, common.ValidationError("trip_start must be YYYY-MM-DD")
	}
	return pgtype.Date{Time: parsed, Valid: true}, nil
}

func newReference() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("Q-%d-%s", time.Now().Year(), strings.ToUpper(hex.EncodeToString(buf)))
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

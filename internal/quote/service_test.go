package quote

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/noobiecoder75/bookinggpt-api/internal/common"
	"github.com/noobiecoder75/bookinggpt-api/internal/customer"
	"github.com/noobiecoder75/bookinggpt-api/internal/template"
)

type fakeStore struct {
	quotes map[string]Row
	items  map[string]ItemRow
	nextSo int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{quotes: map[string]Row{}, items: map[string]ItemRow{}}
}

func newPgUUID() pgtype.UUID {
	u := uuid.New()
	return pgtype.UUID{Bytes: u, Valid: true}
}

func (f *fakeStore) CreateQuote(_ context.Context, r Row) (Row, error) {
	r.ID = newPgUUID()
	r.Status = StatusDraft
	r.CreatedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	r.UpdatedAt = r.CreatedAt
	f.quotes[uuidString(r.ID)] = r
	return r, nil
}

func (f *fakeStore) GetQuote(_ context.Context, id pgtype.UUID) (Row, error) {
	r, ok := f.quotes[uuidString(id)]
	if !ok {
		return Row{}, pgx.ErrNoRows
	}
	return r, nil
}

func (f *fakeStore) ListQuotes(_ context.Context, filter ListFilter) ([]Row, error) {
	var out []Row
	for _, r := range f.quotes {
		if filter.CustomerID.Valid && r.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) CountQuotes(ctx context.Context, filter ListFilter) (int64, error) {
	rows, _ := f.ListQuotes(ctx, filter)
	return int64(len(rows)), nil
}

func (f *fakeStore) UpdateQuote(_ context.Context, r Row) (Row, error) {
	key := uuidString(r.ID)
	existing, ok := f.quotes[key]
	if !ok {
		return Row{}, pgx.ErrNoRows
	}
	r.Status = existing.Status
	r.CreatedAt = existing.CreatedAt
	f.quotes[key] = r
	return r, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id pgtype.UUID, from []string, to string) (int64, error) {
	key := uuidString(id)
	r, ok := f.quotes[key]
	if !ok {
		return 0, nil
	}
	for _, status := range from {
		if r.Status == status {
			r.Status = to
			f.quotes[key] = r
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeStore) DeleteQuote(_ context.Context, id pgtype.UUID) (int64, error) {
	key := uuidString(id)
	if _, ok := f.quotes[key]; !ok {
		return 0, nil
	}
	delete(f.quotes, key)
	return 1, nil
}

func (f *fakeStore) ListItems(_ context.Context, quoteID pgtype.UUID) ([]ItemRow, error) {
	var out []ItemRow
	for _, it := range f.items {
		if it.QuoteID == quoteID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (f *fakeStore) GetItem(_ context.Context, id pgtype.UUID) (ItemRow, error) {
	it, ok := f.items[uuidString(id)]
	if !ok {
		return ItemRow{}, pgx.ErrNoRows
	}
	return it, nil
}

func (f *fakeStore) InsertItem(_ context.Context, r ItemRow) (ItemRow, error) {
	r.ID = newPgUUID()
	r.SortOrder = f.nextSo
	f.nextSo++
	f.items[uuidString(r.ID)] = r
	return r, nil
}

func (f *fakeStore) UpdateItem(_ context.Context, r ItemRow) (ItemRow, error) {
	key := uuidString(r.ID)
	existing, ok := f.items[key]
	if !ok {
		return ItemRow{}, pgx.ErrNoRows
	}
	r.SortOrder = existing.SortOrder
	f.items[key] = r
	return r, nil
}

func (f *fakeStore) DeleteItem(_ context.Context, id pgtype.UUID) (int64, error) {
	key := uuidString(id)
	if _, ok := f.items[key]; !ok {
		return 0, nil
	}
	delete(f.items, key)
	return 1, nil
}

func (f *fakeStore) ReorderItems(_ context.Context, quoteID pgtype.UUID, orderedIDs []pgtype.UUID) error {
	for position, id := range orderedIDs {
		key := uuidString(id)
		it, ok := f.items[key]
		if !ok || it.QuoteID != quoteID {
			continue
		}
		it.SortOrder = int32(position)
		f.items[key] = it
	}
	return nil
}

type fakeCustomers struct {
	detail customer.Detail
	err    error
}

func (f *fakeCustomers) Get(context.Context, string) (customer.Detail, error) {
	return f.detail, f.err
}

type fakeTemplates struct {
	tpl template.Template
	err error
}

func (f *fakeTemplates) GetByName(context.Context, string) (template.Template, error) {
	return f.tpl, f.err
}

type fakeMailer struct {
	recipients [][]string
	subjects   []string
	bodies     []string
}

func (f *fakeMailer) Enqueue(_ context.Context, recipients []string, subject, body string, _ int32) error {
	f.recipients = append(f.recipients, recipients)
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return nil
}

func newTestService(store *fakeStore) (*Service, *fakeMailer) {
	mailer := &fakeMailer{}
	svc := NewService(ServiceConfig{
		Store: store,
		Customers: &fakeCustomers{detail: customer.Detail{
			Customer: customer.Customer{FirstName: "Maya", LastName: "Chen", Email: "maya@example.com"},
		}},
		Templates: &fakeTemplates{tpl: template.Template{
			Name:    DefaultSendTemplate,
			Subject: "Quote {{reference}}",
			Body:    "Hi {{first_name}}, your total is {{total}}.",
		}},
		Mailer: mailer,
		MinMarkup: func(itemType string) float64 {
			if itemType == "flight" {
				return 5
			}
			return 0
		},
		DefaultMarkup: 10,
		Currency:      "USD",
	})
	return svc, mailer
}

func createDraft(t *testing.T, svc *Service) Quote {
	t.Helper()
	q, err := svc.Create(context.Background(), CreateInput{CustomerID: uuid.NewString(), TripDays: 3})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, q.Status)
	return q
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	q := createDraft(t, svc)
	require.Equal(t, 10.0, q.Markup)
	require.Equal(t, "USD", q.Currency)
	require.NotEmpty(t, q.Reference)
	require.Empty(t, q.Items)
}

func TestAddItemComputesPricing(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	q := createDraft(t, svc)

	updated, err := svc.AddItem(context.Background(), q.ID, ItemInput{
		Type: "hotel", Name: "Harbour Hotel", Cost: 100, Quantity: 3, Day: 0,
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	// global 10% markup, per-night price 110, three nights
	require.InDelta(t, 110.0, updated.Items[0].UnitPrice, 1e-9)
	require.InDelta(t, 330.0, updated.Items[0].Total, 1e-9)
	require.InDelta(t, 330.0, updated.Pricing.GrandTotal, 1e-9)
	require.Equal(t, "global", updated.Pricing.Strategy)
}

func TestAddItemEnforcesMinimumMarkup(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	q := createDraft(t, svc)

	_, err := svc.AddItem(context.Background(), q.ID, ItemInput{
		Type: "flight", Name: "SIN-NRT", Cost: 400, Markup: 2,
	})
	require.Error(t, err)
	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)

	// zero markup is allowed: the item falls back to the quote markup
	_, err = svc.AddItem(context.Background(), q.ID, ItemInput{
		Type: "flight", Name: "SIN-NRT", Cost: 400,
	})
	require.NoError(t, err)
}

func TestItemOperationsRequireDraft(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	q := createDraft(t, svc)
	withItem, err := svc.AddItem(context.Background(), q.ID, ItemInput{Type: "tour", Name: "City tour", Cost: 50})
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), q.ID, SendInput{})
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), q.ID, ItemInput{Type: "tour", Name: "Another", Cost: 10})
	require.Error(t, err)
	_, err = svc.UpdateItem(context.Background(), q.ID, withItem.Items[0].ID, ItemInput{Type: "tour", Name: "x", Cost: 10})
	require.Error(t, err)
	_, err = svc.RemoveItem(context.Background(), q.ID, withItem.Items[0].ID)
	require.Error(t, err)
}

func TestSendRendersTemplateAndEnqueuesMail(t *testing.T) {
	svc, mailer := newTestService(newFakeStore())
	q := createDraft(t, svc)
	_, err := svc.AddItem(context.Background(), q.ID, ItemInput{Type: "hotel", Name: "Harbour Hotel", Cost: 100, Quantity: 3})
	require.NoError(t, err)

	sent, err := svc.Send(context.Background(), q.ID, SendInput{})
	require.NoError(t, err)
	require.Equal(t, StatusSent, sent.Status)

	require.Len(t, mailer.recipients, 1)
	require.Equal(t, []string{"maya@example.com"}, mailer.recipients[0])
	require.Equal(t, "Quote "+sent.Reference, mailer.subjects[0])
	require.Equal(t, "Hi Maya, your total is 330.00 USD.", mailer.bodies[0])

	// sending twice conflicts
	_, err = svc.Send(context.Background(), q.ID, SendInput{})
	require.Error(t, err)
}

func TestStatusTransitions(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	q := createDraft(t, svc)

	// draft cannot expire
	_, err := svc.Expire(context.Background(), q.ID)
	require.Error(t, err)

	_, err = svc.Send(context.Background(), q.ID, SendInput{})
	require.NoError(t, err)

	expired, err := svc.Expire(context.Background(), q.ID)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, expired.Status)

	// expired quotes cannot convert
	row, _, err := svc.EngineQuote(context.Background(), q.ID)
	require.NoError(t, err)
	require.Error(t, svc.MarkConverted(context.Background(), row.ID))
}

func TestUpdateStrategyChangesPricing(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	q := createDraft(t, svc)
	_, err := svc.AddItem(context.Background(), q.ID, ItemInput{Type: "flight", Name: "SIN-NRT", Cost: 100, Markup: 15})
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), q.ID, ItemInput{Type: "tour", Name: "City tour", Cost: 100})
	require.NoError(t, err)

	// unset strategy: one item marked, one not -> mixed (115 + 110)
	got, err := svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	require.Equal(t, "mixed", got.Pricing.Strategy)
	require.InDelta(t, 225.0, got.Pricing.GrandTotal, 1e-9)

	strategy := "global"
	got, err = svc.Update(context.Background(), q.ID, UpdateInput{Strategy: &strategy})
	require.NoError(t, err)
	require.Equal(t, "global", got.Pricing.Strategy)
	require.InDelta(t, 220.0, got.Pricing.GrandTotal, 1e-9)
}

func TestPortalDayBucketsReconcile(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	q, err := svc.Create(context.Background(), CreateInput{
		CustomerID: uuid.NewString(), TripDays: 2, TripStart: "2026-09-01",
	})
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), q.ID, ItemInput{Type: "hotel", Name: "Harbour Hotel", Cost: 100, Quantity: 2, Day: 0})
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), q.ID, ItemInput{Type: "tour", Name: "City tour", Cost: 100, Day: 1})
	require.NoError(t, err)
	// scheduled outside the 2-day window: counted in the grand total only
	_, err = svc.AddItem(context.Background(), q.ID, ItemInput{Type: "transfer", Name: "Late pickup", Cost: 100, Day: 5})
	require.NoError(t, err)

	view, err := svc.Portal(context.Background(), q.ID)
	require.NoError(t, err)
	require.Len(t, view.Days, 2)
	require.Equal(t, "2026-09-01", view.Days[0].Date)
	require.Equal(t, "2026-09-02", view.Days[1].Date)

	var dayTotal float64
	for _, day := range view.Days {
		dayTotal += day.Subtotal
	}
	require.InDelta(t, view.GrandTotal, dayTotal+view.UnscheduledTotal, 1e-9)
	require.InDelta(t, 110.0, view.UnscheduledTotal, 1e-9)
	require.Len(t, view.Days[0].Items, 1)
	require.Equal(t, 2, view.Days[0].Items[0].Quantity)
}

func TestPortalDiscountReconciles(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	q, err := svc.Create(context.Background(), CreateInput{
		CustomerID: uuid.NewString(), TripDays: 1, Discount: 10,
	})
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), q.ID, ItemInput{Type: "tour", Name: "Wine tasting", Cost: 100, Day: 0})
	require.NoError(t, err)

	view, err := svc.Portal(context.Background(), q.ID)
	require.NoError(t, err)
	require.InDelta(t, view.Subtotal, view.Days[0].Subtotal+view.UnscheduledTotal, 1e-9)
	require.InDelta(t, view.Subtotal*0.9, view.GrandTotal, 1e-9)
}

func TestReorderItems(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	q := createDraft(t, svc)
	first, err := svc.AddItem(context.Background(), q.ID, ItemInput{Type: "flight", Name: "Outbound", Cost: 100})
	require.NoError(t, err)
	second, err := svc.AddItem(context.Background(), q.ID, ItemInput{Type: "flight", Name: "Return", Cost: 100})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)

	reordered, err := svc.ReorderItems(context.Background(), q.ID, []string{second.Items[1].ID, first.Items[0].ID})
	require.NoError(t, err)
	require.Equal(t, "Return", reordered.Items[0].Name)
	require.Equal(t, "Outbound", reordered.Items[1].Name)

	_, err = svc.ReorderItems(context.Background(), q.ID, []string{first.Items[0].ID})
	require.Error(t, err)
}

func TestDeleteRules(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	q := createDraft(t, svc)
	_, err := svc.Send(context.Background(), q.ID, SendInput{})
	require.NoError(t, err)

	row, _, err := svc.EngineQuote(context.Background(), q.ID)
	require.NoError(t, err)
	require.NoError(t, svc.MarkConverted(context.Background(), row.ID))

	err = svc.Delete(context.Background(), q.ID)
	require.Error(t, err)
}

func TestDiscountValidation(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	_, err := svc.Create(context.Background(), CreateInput{CustomerID: uuid.NewString(), Discount: 150})
	require.Error(t, err)

	// 100 would discount the quote to zero; the upper bound is exclusive.
	_, err = svc.Create(context.Background(), CreateInput{CustomerID: uuid.NewString(), Discount: 100})
	require.Error(t, err)

	q := createDraft(t, svc)
	bad := -5.0
	_, err = svc.Update(context.Background(), q.ID, UpdateInput{Discount: &bad})
	require.Error(t, err)

	full := 100.0
	_, err = svc.Update(context.Background(), q.ID, UpdateInput{Discount: &full})
	require.Error(t, err)
}

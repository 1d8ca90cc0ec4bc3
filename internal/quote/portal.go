package quote

import (
	"context"

	"github.com/noobiecoder75/bookinggpt-api/internal/pricing"
)

// PortalItem is the customer-facing projection of a line item. Costs and
// markups are never exposed here, only sell prices.
type PortalItem struct {
	Type      string  `json:"type"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// PortalDay groups scheduled items with their subtotal.
type PortalDay struct {
	Day      int          `json:"day"`
	Date     string       `json:"date,omitempty"`
	Items    []PortalItem `json:"items"`
	Subtotal float64      `json:"subtotal"`
}

// PortalView is the read-only customer projection of a quote. The day
// subtotals plus unscheduled_total always equal subtotal, and the grand total
// is subtotal with the discount applied, so every number on the page
// reconciles. Items scheduled outside the trip window appear only in
// unscheduled_total.
type PortalView struct {
	Reference        string      `json:"reference"`
	Status           string      `json:"status"`
	CustomerName     string      `json:"customer_name,omitempty"`
	TripStart        string      `json:"trip_start,omitempty"`
	TripDays         int         `json:"trip_days"`
	Currency         string      `json:"currency"`
	Days             []PortalDay `json:"days"`
	UnscheduledTotal float64     `json:"unscheduled_total"`
	Subtotal         float64     `json:"subtotal"`
	Discount         float64     `json:"discount"`
	GrandTotal       float64     `json:"grand_total"`
}

// Portal builds the client portal view of a quote.
func (s *Service) Portal(ctx context.Context, id string) (PortalView, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return PortalView{}, err
	}
	items, err := s.store.ListItems(ctx, row.ID)
	if err != nil {
		return PortalView{}, err
	}
	engineQuote := toEngine(row, items)
	tripDays := int(row.TripDays)

	view := PortalView{
		Reference:        row.Reference,
		Status:           row.Status,
		TripDays:         tripDays,
		Currency:         row.Currency,
		Days:             make([]PortalDay, 0, tripDays),
		UnscheduledTotal: pricing.UnscheduledTotal(engineQuote, tripDays, pricing.Options{}),
		Subtotal:         pricing.Subtotal(engineQuote, pricing.Options{}),
		Discount:         row.Discount,
		GrandTotal:       pricing.QuoteTotal(engineQuote, pricing.Options{}),
	}
	if row.TripStart.Valid {
		view.TripStart = row.TripStart.Time.Format("2006-01-02")
	}
	if s.customers != nil {
		if detail, err := s.customers.Get(ctx, uuidString(row.CustomerID)); err == nil {
			view.CustomerName = detail.FirstName + " " + detail.LastName
		}
	}

	for day := 0; day < tripDays; day++ {
		bucket := PortalDay{
			Day:      day,
			Items:    make([]PortalItem, 0),
			Subtotal: pricing.DayTotal(engineQuote, day, tripDays, pricing.Options{}),
		}
		if row.TripStart.Valid {
			bucket.Date = row.TripStart.Time.AddDate(0, 0, day).Format("2006-01-02")
		}
		for i, it := range items {
			if int(it.DayIndex) != day {
				continue
			}
			engineItem := engineQuote.Items[i]
			bucket.Items = append(bucket.Items, PortalItem{
				Type:      it.ItemType,
				Name:      it.Name,
				Quantity:  quantityOf(it),
				UnitPrice: pricing.ItemPrice(engineItem, engineQuote, pricing.Options{}),
				Total:     pricing.ItemTotal(engineItem, engineQuote, pricing.Options{}),
			})
		}
		view.Days = append(view.Days, bucket)
	}
	return view, nil
}

func quantityOf(it ItemRow) int {
	if it.Quantity <= 0 {
		return 1
	}
	return int(it.Quantity)
}

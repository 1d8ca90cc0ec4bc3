// Package pricing implements the unified quote pricing engine.
//
// Every surface that shows a price (quote detail, client portal, booking
// conversion) must obtain its numbers from this package. The functions are
// pure projections from a quote snapshot to a float64; they never read or
// write state and never return an error. Partially populated legacy rows
// still produce a number through defensive defaults.
package pricing

import "math"

// Strategy selects where the markup applied to an item comes from.
type Strategy string

const (
	// StrategyUnset means the quote has no stored strategy and one must be
	// inferred from item data.
	StrategyUnset Strategy = ""
	// StrategyGlobal applies the quote-level markup to every item.
	StrategyGlobal Strategy = "global"
	// StrategyIndividual applies each item's own markup, with no fallback.
	StrategyIndividual Strategy = "individual"
	// StrategyMixed prefers the item markup and falls back to the quote
	// markup when the item markup is zero.
	StrategyMixed Strategy = "mixed"
)

// MarkupType controls how an effective markup is applied to cost.
type MarkupType string

const (
	// MarkupPercentage applies the markup as a percentage of cost.
	MarkupPercentage MarkupType = "percentage"
	// MarkupFixed adds the markup as a flat amount per unit.
	MarkupFixed MarkupType = "fixed"
)

// ItemType classifies a quote line item.
type ItemType string

const (
	ItemFlight   ItemType = "flight"
	ItemHotel    ItemType = "hotel"
	ItemTour     ItemType = "tour"
	ItemTransfer ItemType = "transfer"
)

// Item is the pricing view of a quote line item. Quantity counts units for
// most types; for hotels it counts nights and the unit price is per night.
type Item struct {
	Cost       float64
	Markup     float64
	MarkupType MarkupType
	Quantity   int
	Type       ItemType
	Day        int
}

// Quote is the pricing view of a quote: the global markup percentage, the
// discount percentage applied once to the marked-up subtotal, the stored
// strategy (may be unset), and the line items.
type Quote struct {
	Markup   float64
	Discount float64
	Strategy Strategy
	Items    []Item
}

// Options tweaks a single calculation. The zero value means: use the quote's
// stored strategy (inferring when unset), keep full float precision, and
// apply the discount.
type Options struct {
	Strategy        Strategy
	RoundToCents    bool
	IncludeDiscount *bool
}

func (o Options) includeDiscount() bool {
	if o.IncludeDiscount == nil {
		return true
	}
	return *o.IncludeDiscount
}

func (o Options) finish(v float64) float64 {
	if o.RoundToCents {
		return math.Round(v*100) / 100
	}
	return v
}

// DetermineStrategy infers a strategy from item data. Quotes created before
// the strategy column existed carry no stored strategy; the item markups
// tell us what the agent intended.
func DetermineStrategy(items []Item) Strategy {
	marked := 0
	for _, it := range items {
		if it.Markup != 0 {
			marked++
		}
	}
	switch {
	case marked == 0:
		return StrategyGlobal
	case marked == len(items):
		return StrategyIndividual
	default:
		return StrategyMixed
	}
}

// ResolveStrategy returns the strategy governing a calculation: an explicit
// option override wins, then the quote's stored strategy, then inference.
func ResolveStrategy(q Quote, opts Options) Strategy {
	if opts.Strategy != StrategyUnset {
		return opts.Strategy
	}
	if q.Strategy != StrategyUnset {
		return q.Strategy
	}
	return DetermineStrategy(q.Items)
}

// EffectiveMarkup selects the markup value applied to the item under the
// given strategy. Under individual strategy an item with zero markup gets
// zero; there is no fallback to the quote markup.
func EffectiveMarkup(it Item, q Quote, strategy Strategy) float64 {
	switch strategy {
	case StrategyIndividual:
		return it.Markup
	case StrategyMixed:
		if it.Markup != 0 {
			return it.Markup
		}
		return q.Markup
	default:
		return q.Markup
	}
}

// ItemPrice computes the unit price for one item: cost with the effective
// markup applied. For hotel items this is the per-night price, which is what
// callers display; the extended total is ItemTotal.
func ItemPrice(it Item, q Quote, opts Options) float64 {
	strategy := ResolveStrategy(q, opts)
	return opts.finish(unitPrice(it, q, strategy))
}

func unitPrice(it Item, q Quote, strategy Strategy) float64 {
	markup := EffectiveMarkup(it, q, strategy)
	if it.MarkupType == MarkupFixed {
		return it.Cost + markup
	}
	return it.Cost * (1 + markup/100)
}

// ItemTotal computes the extended line total: unit price times quantity.
// Hotel quantity counts nights. This is the only extended-total formula in
// the codebase; day and quote totals are sums of it.
func ItemTotal(it Item, q Quote, opts Options) float64 {
	strategy := ResolveStrategy(q, opts)
	return opts.finish(unitPrice(it, q, strategy) * float64(quantity(it)))
}

func quantity(it Item) int {
	if it.Quantity <= 0 {
		return 1
	}
	return it.Quantity
}

// Subtotal sums the extended total of every item with markup applied and no
// discount. The grand total always starts from this number, regardless of
// how items are bucketed by day.
func Subtotal(q Quote, opts Options) float64 {
	strategy := ResolveStrategy(q, opts)
	var sum float64
	for _, it := range q.Items {
		sum += unitPrice(it, q, strategy) * float64(quantity(it))
	}
	return opts.finish(sum)
}

// DayTotal sums extended totals for items assigned to the given day. Items
// whose day falls outside [0, tripDays) belong to no bucket; they still count
// toward the quote total. Callers rendering a by-day breakdown should show
// UnscheduledTotal alongside so the buckets visibly reconcile.
func DayTotal(q Quote, day, tripDays int, opts Options) float64 {
	if day < 0 || day >= tripDays {
		return opts.finish(0)
	}
	strategy := ResolveStrategy(q, opts)
	var sum float64
	for _, it := range q.Items {
		if it.Day != day {
			continue
		}
		sum += unitPrice(it, q, strategy) * float64(quantity(it))
	}
	return opts.finish(sum)
}

// UnscheduledTotal sums extended totals for items whose day assignment falls
// outside [0, tripDays). Grand total minus the sum of all day totals equals
// this value, before discount.
func UnscheduledTotal(q Quote, tripDays int, opts Options) float64 {
	strategy := ResolveStrategy(q, opts)
	var sum float64
	for _, it := range q.Items {
		if it.Day >= 0 && it.Day < tripDays {
			continue
		}
		sum += unitPrice(it, q, strategy) * float64(quantity(it))
	}
	return opts.finish(sum)
}

// QuoteTotal computes the grand total: marked-up subtotal over all items,
// then the discount applied once. Intermediate values are never rounded;
// RoundToCents affects only the returned figure.
func QuoteTotal(q Quote, opts Options) float64 {
	strategy := ResolveStrategy(q, opts)
	var sum float64
	for _, it := range q.Items {
		sum += unitPrice(it, q, strategy) * float64(quantity(it))
	}
	if opts.includeDiscount() {
		sum *= 1 - q.Discount/100
	}
	return opts.finish(sum)
}

// AverageMarkup reports the cost-weighted mean effective markup percentage
// across the quote's items, for display labels only. Fixed markups are
// expressed as the equivalent percentage of cost. When no item carries its
// own markup the quote markup is reported. Totals must never be derived from
// this value.
func AverageMarkup(q Quote) float64 {
	anyMarked := false
	for _, it := range q.Items {
		if it.Markup != 0 {
			anyMarked = true
			break
		}
	}
	if !anyMarked {
		return q.Markup
	}
	strategy := ResolveStrategy(q, Options{})
	var weighted, weight float64
	for _, it := range q.Items {
		w := it.Cost * float64(quantity(it))
		if w <= 0 {
			continue
		}
		markup := EffectiveMarkup(it, q, strategy)
		pct := markup
		if it.MarkupType == MarkupFixed {
			pct = markup / it.Cost * 100
		}
		weighted += w * pct
		weight += w
	}
	if weight == 0 {
		return q.Markup
	}
	return weighted / weight
}

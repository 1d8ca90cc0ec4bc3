package pricing

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDetermineStrategy(t *testing.T) {
	cases := []struct {
		name  string
		items []Item
		want  Strategy
	}{
		{"no item markups", []Item{{Markup: 0}, {Markup: 0}}, StrategyGlobal},
		{"all item markups", []Item{{Markup: 10}, {Markup: 5}}, StrategyIndividual},
		{"some item markups", []Item{{Markup: 10}, {Markup: 0}}, StrategyMixed},
		{"no items", nil, StrategyGlobal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetermineStrategy(tc.items); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestStoredStrategyWins(t *testing.T) {
	q := Quote{Strategy: StrategyGlobal, Markup: 20, Items: []Item{{Cost: 100, Markup: 99}}}
	if got := ItemPrice(q.Items[0], q, Options{}); !almostEqual(got, 120) {
		t.Fatalf("expected stored global strategy to ignore item markup, got %v", got)
	}
}

func TestGlobalStrategyIgnoresItemMarkup(t *testing.T) {
	q := Quote{Markup: 20}
	it := Item{Cost: 100, Markup: 55, MarkupType: MarkupPercentage}
	if got := ItemPrice(it, q, Options{Strategy: StrategyGlobal}); !almostEqual(got, 120) {
		t.Fatalf("expected 120, got %v", got)
	}
}

func TestIndividualStrategyNeverFallsBack(t *testing.T) {
	q := Quote{Markup: 999}
	it := Item{Cost: 100, Markup: 15, MarkupType: MarkupPercentage}
	if got := ItemPrice(it, q, Options{Strategy: StrategyIndividual}); !almostEqual(got, 115) {
		t.Fatalf("expected 115, got %v", got)
	}
	bare := Item{Cost: 100, Markup: 0}
	if got := ItemPrice(bare, q, Options{Strategy: StrategyIndividual}); !almostEqual(got, 100) {
		t.Fatalf("expected zero markup without fallback, got %v", got)
	}
}

func TestMixedStrategyFallback(t *testing.T) {
	q := Quote{Markup: 5, Strategy: StrategyMixed}
	a := Item{Cost: 100, Markup: 0}
	b := Item{Cost: 200, Markup: 10}
	if got := ItemPrice(a, q, Options{}); !almostEqual(got, 105) {
		t.Fatalf("expected fallback to quote markup, got %v", got)
	}
	if got := ItemPrice(b, q, Options{}); !almostEqual(got, 220) {
		t.Fatalf("expected item markup, got %v", got)
	}
}

func TestFixedMarkupType(t *testing.T) {
	q := Quote{Strategy: StrategyIndividual}
	it := Item{Cost: 50, Markup: 8, MarkupType: MarkupFixed}
	if got := ItemPrice(it, q, Options{}); !almostEqual(got, 58) {
		t.Fatalf("expected 58, got %v", got)
	}
	// Flat amount is added once per unit; quantity multiplies the unit price.
	it.Quantity = 3
	if got := ItemTotal(it, q, Options{}); !almostEqual(got, 174) {
		t.Fatalf("expected 174, got %v", got)
	}
}

func TestHotelNightSemantics(t *testing.T) {
	q := Quote{Strategy: StrategyIndividual}
	hotel := Item{Cost: 100, Markup: 10, MarkupType: MarkupPercentage, Quantity: 3, Type: ItemHotel}
	if got := ItemPrice(hotel, q, Options{}); !almostEqual(got, 110) {
		t.Fatalf("expected per-night price 110, got %v", got)
	}
	if got := ItemTotal(hotel, q, Options{}); !almostEqual(got, 330) {
		t.Fatalf("expected extended total 330, got %v", got)
	}
}

func TestQuantityDefaultsToOne(t *testing.T) {
	q := Quote{Markup: 10, Strategy: StrategyGlobal}
	it := Item{Cost: 100}
	if got := ItemTotal(it, q, Options{}); !almostEqual(got, 110) {
		t.Fatalf("expected missing quantity to count as one, got %v", got)
	}
}

func TestMissingMarkupTypeDefaultsToPercentage(t *testing.T) {
	q := Quote{Strategy: StrategyIndividual}
	it := Item{Cost: 100, Markup: 10}
	if got := ItemPrice(it, q, Options{}); !almostEqual(got, 110) {
		t.Fatalf("expected percentage application, got %v", got)
	}
}

func TestDiscountAppliedOnceToTotal(t *testing.T) {
	q := Quote{
		Strategy: StrategyGlobal,
		Markup:   10,
		Discount: 5,
		Items: []Item{
			{Cost: 100, Quantity: 1, MarkupType: MarkupPercentage},
			{Cost: 100, Quantity: 2, MarkupType: MarkupPercentage},
		},
	}
	if got := Subtotal(q, Options{}); !almostEqual(got, 330) {
		t.Fatalf("expected marked-up subtotal 330, got %v", got)
	}
	if got := QuoteTotal(q, Options{}); !almostEqual(got, 313.50) {
		t.Fatalf("expected 313.50 after discount, got %v", got)
	}

	// Applying the discount per item then summing would give a different
	// rounding profile; the engine must match discount-once exactly.
	var perItem float64
	for _, it := range q.Items {
		perItem += ItemTotal(it, q, Options{})
	}
	perItem *= 1 - q.Discount/100
	if !almostEqual(perItem, QuoteTotal(q, Options{})) {
		t.Fatalf("quote total diverged from discounted item sum: %v vs %v", perItem, QuoteTotal(q, Options{}))
	}
}

func TestQuoteTotalIdempotent(t *testing.T) {
	q := Quote{Markup: 12.5, Discount: 3, Items: []Item{{Cost: 199.99, Quantity: 2}, {Cost: 49.5, Markup: 7}}}
	first := QuoteTotal(q, Options{})
	second := QuoteTotal(q, Options{})
	if first != second {
		t.Fatalf("expected identical results, got %v then %v", first, second)
	}
}

func TestConsistencyAcrossStrategies(t *testing.T) {
	q := Quote{
		Markup:   8,
		Discount: 10,
		Items: []Item{
			{Cost: 120, Markup: 15, Quantity: 2, Type: ItemHotel},
			{Cost: 340, Markup: 0, Quantity: 1, Type: ItemFlight},
			{Cost: 75.25, Markup: 5, MarkupType: MarkupFixed, Quantity: 3, Type: ItemTour},
		},
	}
	for _, strategy := range []Strategy{StrategyGlobal, StrategyIndividual, StrategyMixed} {
		opts := Options{Strategy: strategy}
		var sum float64
		for _, it := range q.Items {
			sum += ItemTotal(it, q, opts)
		}
		sum *= 1 - q.Discount/100
		if got := QuoteTotal(q, opts); !almostEqual(got, sum) {
			t.Fatalf("strategy %s: quote total %v does not equal discounted item sum %v", strategy, got, sum)
		}
	}
}

func TestDayBucketsExcludeOutOfRange(t *testing.T) {
	q := Quote{
		Strategy: StrategyGlobal,
		Markup:   0,
		Items: []Item{
			{Cost: 100, Day: 0},
			{Cost: 200, Day: 1},
			{Cost: 400, Day: 7}, // beyond a 2-day trip
			{Cost: 800, Day: -1},
		},
	}
	tripDays := 2
	if got := DayTotal(q, 0, tripDays, Options{}); !almostEqual(got, 100) {
		t.Fatalf("day 0: expected 100, got %v", got)
	}
	if got := DayTotal(q, 1, tripDays, Options{}); !almostEqual(got, 200) {
		t.Fatalf("day 1: expected 200, got %v", got)
	}
	if got := DayTotal(q, 7, tripDays, Options{}); !almostEqual(got, 0) {
		t.Fatalf("out-of-range day must bucket to zero, got %v", got)
	}
	if got := UnscheduledTotal(q, tripDays, Options{}); !almostEqual(got, 1200) {
		t.Fatalf("expected unscheduled 1200, got %v", got)
	}
	// Grand total still includes every item.
	if got := QuoteTotal(q, Options{}); !almostEqual(got, 1500) {
		t.Fatalf("expected grand total 1500, got %v", got)
	}
	days := DayTotal(q, 0, tripDays, Options{}) + DayTotal(q, 1, tripDays, Options{})
	if got := Subtotal(q, Options{}); !almostEqual(got, days+UnscheduledTotal(q, tripDays, Options{})) {
		t.Fatalf("day buckets plus unscheduled must reconcile with subtotal, got %v", got)
	}
}

func TestOptionsRoundingAndDiscountToggle(t *testing.T) {
	q := Quote{Strategy: StrategyGlobal, Markup: 13, Discount: 7, Items: []Item{{Cost: 99.99, Quantity: 3}}}
	full := QuoteTotal(q, Options{})
	rounded := QuoteTotal(q, Options{RoundToCents: true})
	if !almostEqual(rounded, math.Round(full*100)/100) {
		t.Fatalf("rounding must apply only to the final value: %v vs %v", rounded, full)
	}
	no := false
	undiscounted := QuoteTotal(q, Options{IncludeDiscount: &no})
	if !almostEqual(undiscounted, Subtotal(q, Options{})) {
		t.Fatalf("disabling discount must yield the subtotal, got %v", undiscounted)
	}
}

func TestAverageMarkup(t *testing.T) {
	t.Run("falls back to quote markup", func(t *testing.T) {
		q := Quote{Markup: 12.5, Items: []Item{{Cost: 100}, {Cost: 50}}}
		if got := AverageMarkup(q); !almostEqual(got, 12.5) {
			t.Fatalf("expected 12.5, got %v", got)
		}
	})
	t.Run("cost weighted", func(t *testing.T) {
		q := Quote{Items: []Item{
			{Cost: 100, Markup: 10, Quantity: 1},
			{Cost: 300, Markup: 20, Quantity: 1},
		}}
		// (100*10 + 300*20) / 400 = 17.5
		if got := AverageMarkup(q); !almostEqual(got, 17.5) {
			t.Fatalf("expected 17.5, got %v", got)
		}
	})
	t.Run("fixed markup expressed as percent of cost", func(t *testing.T) {
		q := Quote{Items: []Item{{Cost: 50, Markup: 8, MarkupType: MarkupFixed}}}
		if got := AverageMarkup(q); !almostEqual(got, 16) {
			t.Fatalf("expected 16, got %v", got)
		}
	})
}

func TestLegacyRowStillPrices(t *testing.T) {
	// A quote with nothing but costs must still produce a number.
	q := Quote{Items: []Item{{Cost: 80}, {Cost: 20}}}
	if got := QuoteTotal(q, Options{}); !almostEqual(got, 100) {
		t.Fatalf("expected 100, got %v", got)
	}
}

package metrics

import (
	"testing"
	"time"

	"github.com/gearindex/marketpulse/internal/model"
	"github.com/gearindex/marketpulse/internal/testutil"
)

func eur(prices ...float64) []model.Listing {
	listings := make([]model.Listing, len(prices))
	for i, p := range prices {
		listings[i] = model.Listing{Price: p, Currency: "EUR", Source: "test"}
	}
	return listings
}

func TestCalculate_Empty(t *testing.T) {
	if got := Calculate(nil); got != nil {
		t.Errorf("Calculate(nil) = %+v, expected nil", got)
	}
	if got := Calculate([]model.Listing{}); got != nil {
		t.Errorf("Calculate(empty) = %+v, expected nil", got)
	}
}

func TestCalculate_Basic(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	summary := calculateAt(eur(300, 350, 400), now)

	if summary == nil {
		t.Fatal("Expected summary, got nil")
	}
	if summary.Min != 300 || summary.Max != 400 || summary.Avg != 350 {
		t.Errorf("Unexpected metrics: min=%.2f max=%.2f avg=%.2f", summary.Min, summary.Max, summary.Avg)
	}
	if summary.Count != 3 {
		t.Errorf("Expected count 3, got %d", summary.Count)
	}
	if summary.Currency != "EUR" {
		t.Errorf("Expected EUR, got %s", summary.Currency)
	}
	if !summary.LastUpdated.Equal(now) {
		t.Errorf("Expected lastUpdated %v, got %v", now, summary.LastUpdated)
	}
}

func TestCalculate_SingleListing(t *testing.T) {
	summary := Calculate(eur(199.99))
	if summary == nil {
		t.Fatal("Expected summary, got nil")
	}
	if summary.Min != 199.99 || summary.Max != 199.99 || summary.Avg != 199.99 {
		t.Errorf("Single listing should pin min/max/avg, got %+v", summary)
	}
}

func TestCalculate_Bounds(t *testing.T) {
	// min <= avg <= max for a spread of shapes.
	sets := [][]model.Listing{
		eur(1),
		eur(5, 5, 5),
		eur(10, 900, 20, 450),
		eur(0.01, 99999),
	}

	for i, listings := range sets {
		summary := Calculate(listings)
		if summary == nil {
			t.Fatalf("Set %d: expected summary", i)
		}
		if summary.Min > summary.Avg || summary.Avg > summary.Max {
			t.Errorf("Set %d: bounds violated: min=%.2f avg=%.2f max=%.2f",
				i, summary.Min, summary.Avg, summary.Max)
		}
	}
}

func TestCalculate_GeneratedListings(t *testing.T) {
	factory := testutil.NewTestDataFactory(42)
	listings := factory.GenerateTestListings("roland tb-03", "EUR", 50)

	summary := Calculate(listings)
	if summary == nil {
		t.Fatal("Expected summary, got nil")
	}
	if summary.Count != 50 {
		t.Errorf("Expected count 50, got %d", summary.Count)
	}
	if summary.Min > summary.Avg || summary.Avg > summary.Max {
		t.Errorf("Bounds violated: min=%.2f avg=%.2f max=%.2f",
			summary.Min, summary.Avg, summary.Max)
	}
}

func TestCalculate_MixedCurrencies(t *testing.T) {
	listings := []model.Listing{
		{Price: 300, Currency: "EUR"},
		{Price: 350, Currency: "EUR"},
		{Price: 400, Currency: "EUR"},
		{Price: 9000, Currency: "USD"},
	}

	summary := Calculate(listings)
	if summary == nil {
		t.Fatal("Expected summary, got nil")
	}
	if summary.Currency != "EUR" {
		t.Errorf("Expected dominant currency EUR, got %s", summary.Currency)
	}
	if summary.Count != 3 {
		t.Errorf("Expected count 3 (USD outlier dropped), got %d", summary.Count)
	}
	if summary.Max != 400 {
		t.Errorf("USD listing leaked into aggregation: max=%.2f", summary.Max)
	}
}

func TestCalculate_CurrencyTie(t *testing.T) {
	listings := []model.Listing{
		{Price: 100, Currency: "USD"},
		{Price: 200, Currency: "EUR"},
	}

	summary := Calculate(listings)
	if summary.Currency != "EUR" {
		t.Errorf("Tie should pick lexicographically smallest code, got %s", summary.Currency)
	}
}

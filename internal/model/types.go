package model

import "time"

// Spec is a single technical attribute of a catalog entry
// ("Polyphony: 4 voices", "Year: 1982", ...).
type Spec struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CatalogEntry is the master record for one gear model (not an
// individually owned unit). This engine only reads Brand/Model/Specs
// and the known listing URL, and writes MarketValue.
type CatalogEntry struct {
	ID              string      `json:"id"`
	Brand           string      `json:"brand"`
	Model           string      `json:"model"`
	Description     string      `json:"description,omitempty"`
	Specs           []Spec      `json:"specs,omitempty"`
	KnownListingURL string      `json:"knownListingUrl,omitempty"`
	MarketValue     MarketValue `json:"marketValue"`
}

// MarketValue holds the cached price snapshot and the append-only
// price history of a catalog entry.
type MarketValue struct {
	Current *Snapshot      `json:"current,omitempty"`
	History []HistoryPoint `json:"history,omitempty"`
}

// Snapshot is the cached current price estimate. When built from
// aggregated listings, Min <= Value <= Max; when copied from an
// external price guide, Min/Max mirror that guide.
type Snapshot struct {
	Value       float64   `json:"value"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	Currency    string    `json:"currency"`
	LastUpdated time.Time `json:"lastUpdated"`
	Source      string    `json:"source"`
}

// HistoryPoint is one dated record in an entry's price series.
type HistoryPoint struct {
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	Currency string    `json:"currency"`
	Source   string    `json:"source"`
}

// Listing is a single observed marketplace offer. Listings live for
// one request and are never persisted.
type Listing struct {
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Date      time.Time `json:"date"`
	Source    string    `json:"source"`
	URL       string    `json:"url,omitempty"`
	Condition string    `json:"condition,omitempty"`
}

// ListingDetail is the resolved canonical identity of a specific
// marketplace listing, used to refine search queries.
type ListingDetail struct {
	ID       string  `json:"id"`
	Make     string  `json:"make"`
	Model    string  `json:"model"`
	Title    string  `json:"title,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

// MetricsSummary is the locally computed reduction of a listing set.
type MetricsSummary struct {
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	Avg         float64   `json:"avg"`
	Currency    string    `json:"currency"`
	Count       int       `json:"count"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// PriceGuide is a summarized price range, either externally sourced
// or derived from a MetricsSummary / Snapshot.
type PriceGuide struct {
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	Avg         float64   `json:"avg"`
	Currency    string    `json:"currency"`
	LastUpdated time.Time `json:"lastUpdated"`
	Source      string    `json:"source,omitempty"`
}

// AsGuide converts a metrics summary into guide form for callers that
// only consume guides.
func (m *MetricsSummary) AsGuide() *PriceGuide {
	if m == nil {
		return nil
	}
	return &PriceGuide{
		Min:         m.Min,
		Max:         m.Max,
		Avg:         m.Avg,
		Currency:    m.Currency,
		LastUpdated: m.LastUpdated,
		Source:      "aggregated",
	}
}

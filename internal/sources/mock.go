package sources

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gearindex/marketpulse/internal/model"
)

// MockSource returns deterministic listings without network access.
// Used in tests and as the offline fallback when no real source is
// configured.
type MockSource struct {
	mu       sync.Mutex
	name     string
	listings map[string][]model.Listing
	failWith error
	delay    time.Duration
	calls    int
}

func NewMockSource(name string) *MockSource {
	return &MockSource{
		name:     name,
		listings: make(map[string][]model.Listing),
	}
}

func (m *MockSource) Available() bool {
	return true
}

func (m *MockSource) Name() string {
	return m.name
}

// Seed registers the listings returned for a query.
func (m *MockSource) Seed(query string, listings []model.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[query] = listings
}

// FailWith makes every subsequent call return err.
func (m *MockSource) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// SetDelay makes every call block for d before responding.
func (m *MockSource) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls reports how many searches were issued.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockSource) SearchListings(ctx context.Context, query string, max int) ([]model.Listing, error) {
	m.mu.Lock()
	m.calls++
	failWith := m.failWith
	delay := m.delay
	seeded := m.listings[query]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failWith != nil {
		return nil, failWith
	}

	out := make([]model.Listing, len(seeded))
	copy(out, seeded)
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

// MockGuideProvider serves canned price guides keyed by query.
type MockGuideProvider struct {
	mu       sync.Mutex
	guides   map[string]*model.PriceGuide
	failWith error
	calls    int
}

func NewMockGuideProvider() *MockGuideProvider {
	return &MockGuideProvider{guides: make(map[string]*model.PriceGuide)}
}

func (m *MockGuideProvider) Available() bool {
	return true
}

func (m *MockGuideProvider) Seed(query string, guide *model.PriceGuide) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guides[query] = guide
}

func (m *MockGuideProvider) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MockGuideProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockGuideProvider) GetPriceGuide(ctx context.Context, query string) (*model.PriceGuide, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.guides[query], nil
}

// MockDetailProvider resolves canned listing details keyed by id.
type MockDetailProvider struct {
	mu      sync.Mutex
	details map[string]*model.ListingDetail
	calls   int
}

func NewMockDetailProvider() *MockDetailProvider {
	return &MockDetailProvider{details: make(map[string]*model.ListingDetail)}
}

func (m *MockDetailProvider) Available() bool {
	return true
}

func (m *MockDetailProvider) Seed(id string, detail *model.ListingDetail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.details[id] = detail
}

func (m *MockDetailProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockDetailProvider) GetListingByID(ctx context.Context, id string) (*model.ListingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	detail, ok := m.details[id]
	if !ok {
		return nil, nil
	}
	return detail, nil
}

// SeedGearListings fills a mock with plausible secondhand listings for
// a query, priced around base.
func SeedGearListings(m *MockSource, query string, base float64) {
	m.Seed(query, []model.Listing{
		{Title: query + " near mint", Price: base * 1.15, Currency: "EUR", Source: m.name, Condition: "Excellent"},
		{Title: query, Price: base, Currency: "EUR", Source: m.name, Condition: "Good"},
		{Title: fmt.Sprintf("%s with original box", query), Price: base * 1.3, Currency: "EUR", Source: m.name, Condition: "Very Good"},
		{Title: query + " well used", Price: base * 0.8, Currency: "EUR", Source: m.name, Condition: "Fair"},
	})
}

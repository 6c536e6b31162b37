// Package insights is the engine's entry point: given a catalog entry
// or a free-text query, it serves a price estimate from cache when the
// cache is trustworthy and runs the full refresh pipeline when it is
// not. "No market data" is an answer here, never an error.
package insights

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gearindex/marketpulse/internal/catalog"
	"github.com/gearindex/marketpulse/internal/enrich"
	"github.com/gearindex/marketpulse/internal/metrics"
	"github.com/gearindex/marketpulse/internal/model"
	"github.com/gearindex/marketpulse/internal/pricecache"
	"github.com/gearindex/marketpulse/internal/query"
)

// MarketGateway is what the service needs from the source layer.
// Satisfied by sources.Gateway.
type MarketGateway interface {
	FetchAllListings(ctx context.Context, query string) ([]model.Listing, error)
	GetPriceGuide(ctx context.Context, query string) *model.PriceGuide
	GetListingByID(ctx context.Context, id string) *model.ListingDetail
}

// Insights is the answer to one market lookup. Listings is always
// non-nil; PriceGuide and TechnicalSpecs are nil when nothing is known.
type Insights struct {
	Listings       []model.Listing   `json:"listings"`
	PriceGuide     *model.PriceGuide `json:"priceGuide,omitempty"`
	TechnicalSpecs []model.Spec      `json:"technicalSpecs,omitempty"`
}

// flight is one in-progress refresh shared by concurrent callers.
type flight struct {
	done   chan struct{}
	result *Insights
	err    error
}

// Service coordinates cache classification, refresh, and enrichment.
type Service struct {
	store      catalog.Store
	gateway    MarketGateway
	normalizer *query.Normalizer
	classifier *pricecache.Classifier
	enricher   *enrich.Coordinator
	now        func() time.Time

	mu       sync.Mutex
	inflight map[string]*flight
}

func NewService(store catalog.Store, gateway MarketGateway, classifier *pricecache.Classifier, enricher *enrich.Coordinator) *Service {
	return &Service{
		store:      store,
		gateway:    gateway,
		normalizer: query.NewNormalizer(resolverAdapter{gateway}),
		classifier: classifier,
		enricher:   enricher,
		now:        time.Now,
		inflight:   make(map[string]*flight),
	}
}

// resolverAdapter lifts the gateway's nil-on-miss listing lookup into
// the resolver shape the normalizer expects.
type resolverAdapter struct {
	gw MarketGateway
}

func (r resolverAdapter) GetListingByID(ctx context.Context, id string) (*model.ListingDetail, error) {
	return r.gw.GetListingByID(ctx, id), nil
}

// GetMarketInsights answers a market lookup for a catalog entry, a
// free-text query, or both. Absence of data yields an empty result.
// The only errors surfaced are a failing catalog read and a cancelled
// context; every market-side failure degrades to less data.
func (s *Service) GetMarketInsights(ctx context.Context, rawQuery, entryID string) (*Insights, error) {
	rawQuery = strings.TrimSpace(rawQuery)
	if rawQuery == "" && entryID == "" {
		return emptyInsights(), nil
	}

	var entry *model.CatalogEntry
	if entryID != "" {
		found, err := s.store.FindByID(ctx, entryID)
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			// Unknown entry degrades to a plain query lookup.
		case err != nil:
			return nil, err
		default:
			entry = found
		}
	}

	if entry != nil && !s.classifier.Classify(entry.MarketValue.Current).NeedsRefresh() {
		return &Insights{
			Listings:       []model.Listing{},
			PriceGuide:     pricecache.GuideFromSnapshot(entry.MarketValue.Current),
			TechnicalSpecs: entry.Specs,
		}, nil
	}

	return s.refreshShared(ctx, rawQuery, entry)
}

// refreshShared collapses concurrent refreshes of the same entry (or
// query) into a single pipeline run whose result all callers share.
func (s *Service) refreshShared(ctx context.Context, rawQuery string, entry *model.CatalogEntry) (*Insights, error) {
	key := rawQuery
	if entry != nil {
		key = "entry:" + entry.ID
	}

	s.mu.Lock()
	if f, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		select {
		case <-f.done:
			return f.result, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f := &flight{done: make(chan struct{})}
	s.inflight[key] = f
	s.mu.Unlock()

	f.result, f.err = s.refresh(ctx, rawQuery, entry)
	close(f.done)

	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()

	return f.result, f.err
}

// refresh runs the full pipeline: refine the query, gather listings
// and guide concurrently, retry once on an empty round, aggregate,
// enrich, persist, answer.
func (s *Service) refresh(ctx context.Context, rawQuery string, entry *model.CatalogEntry) (*Insights, error) {
	canonical := s.normalizer.Canonicalize(entry, rawQuery)
	searchQuery := canonical
	if refined, ok := s.normalizer.RefineFromKnownListing(ctx, entry); ok {
		searchQuery = refined
	}
	if searchQuery == "" {
		return emptyInsights(), nil
	}

	listings, guide := s.gather(ctx, searchQuery)

	// One fallback round with a single spelling variant of the original
	// query, adopted only if it actually finds something.
	if len(listings) == 0 && guide == nil {
		if variant, ok := s.normalizer.FallbackVariant(canonical); ok {
			if retriedListings, retriedGuide := s.gather(ctx, variant); len(retriedListings) > 0 || retriedGuide != nil {
				listings, guide = retriedListings, retriedGuide
			}
		}
	}

	summary := metrics.Calculate(listings)

	var specs []model.Spec
	if entry != nil {
		if s.enricher != nil {
			specs = s.enricher.TriggerIfMissing(ctx, entry)
		} else {
			specs = entry.Specs
		}
		s.persist(ctx, entry, guide, summary)
	}

	result := &Insights{
		Listings:       listings,
		PriceGuide:     guide,
		TechnicalSpecs: specs,
	}
	if result.Listings == nil {
		result.Listings = []model.Listing{}
	}
	if result.PriceGuide == nil {
		result.PriceGuide = summary.AsGuide()
	}
	return result, nil
}

// gather fetches the listing fan-out and the external price guide in
// parallel. Either side may come back empty.
func (s *Service) gather(ctx context.Context, searchQuery string) ([]model.Listing, *model.PriceGuide) {
	var (
		wg       sync.WaitGroup
		listings []model.Listing
		guide    *model.PriceGuide
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		fetched, err := s.gateway.FetchAllListings(ctx, searchQuery)
		if err != nil {
			log.Printf("insights: listing fetch failed for %q: %v", searchQuery, err)
			return
		}
		listings = fetched
	}()
	go func() {
		defer wg.Done()
		guide = s.gateway.GetPriceGuide(ctx, searchQuery)
	}()
	wg.Wait()

	return listings, guide
}

// persist writes the new snapshot and history point in one atomic
// update. The snapshot prefers the external guide over locally
// aggregated metrics; the history point always reflects computed
// metrics, regardless of which source filled the snapshot. A
// persistence failure is logged and the fresh numbers are still
// served.
func (s *Service) persist(ctx context.Context, entry *model.CatalogEntry, guide *model.PriceGuide, summary *model.MetricsSummary) {
	now := s.now()
	var update catalog.Update

	chosen := guide
	if chosen == nil {
		chosen = summary.AsGuide()
	}
	if chosen != nil && chosen.Avg > 0 {
		update.SetCurrent = &model.Snapshot{
			Value:       chosen.Avg,
			Min:         chosen.Min,
			Max:         chosen.Max,
			Currency:    chosen.Currency,
			LastUpdated: now,
			Source:      chosen.Source,
		}
	}
	if summary != nil && summary.Avg > 0 {
		update.PushHistory = &model.HistoryPoint{
			Date:     now,
			Value:    summary.Avg,
			Min:      summary.Min,
			Max:      summary.Max,
			Currency: summary.Currency,
			Source:   "aggregated",
		}
	}
	if update.IsZero() {
		return
	}

	if err := s.store.AtomicUpdate(ctx, entry.ID, update); err != nil {
		log.Printf("insights: persist failed for %s: %v", entry.ID, err)
	}
}

func emptyInsights() *Insights {
	return &Insights{Listings: []model.Listing{}}
}

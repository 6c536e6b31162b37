package sources

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/gearindex/marketpulse/internal/model"
)

// GatewayConfig carries the gateway tunables.
type GatewayConfig struct {
	// MaxListingsPerSource caps what each provider may return
	MaxListingsPerSource int

	// CallTimeout bounds each provider call; an expired call counts as
	// that provider failing, never as a gateway failure
	CallTimeout time.Duration

	// RequestsPerSecond throttles outbound calls across all providers
	RequestsPerSecond float64

	// MemoTTL is how long identical queries are served from memory
	MemoTTL time.Duration
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		MaxListingsPerSource: 25,
		CallTimeout:          10 * time.Second,
		RequestsPerSecond:    5,
		MemoTTL:              60 * time.Second,
	}
}

// Gateway fans a query out to every configured marketplace source and
// merges whatever comes back. A provider failing, timing out, or
// returning nothing only shrinks the result set.
type Gateway struct {
	providers []Provider
	guide     GuideProvider
	detail    DetailProvider

	cfg     GatewayConfig
	limiter *rate.Limiter
	memo    *gocache.Cache

	mu           sync.Mutex
	apiRequests  int64
	memoRequests int64
}

func NewGateway(cfg GatewayConfig, providers ...Provider) *Gateway {
	def := DefaultGatewayConfig()
	if cfg.MaxListingsPerSource <= 0 {
		cfg.MaxListingsPerSource = def.MaxListingsPerSource
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.MemoTTL <= 0 {
		cfg.MemoTTL = def.MemoTTL
	}

	active := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.Available() {
			active = append(active, p)
		} else {
			log.Printf("gateway: provider %s not configured, skipping", p.Name())
		}
	}

	return &Gateway{
		providers: active,
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		memo:      gocache.New(cfg.MemoTTL, 5*time.Minute),
	}
}

// SetGuideProvider attaches the price guide source.
func (g *Gateway) SetGuideProvider(p GuideProvider) {
	if p != nil && p.Available() {
		g.guide = p
	}
}

// SetDetailProvider attaches the listing lookup source.
func (g *Gateway) SetDetailProvider(p DetailProvider) {
	if p != nil && p.Available() {
		g.detail = p
	}
}

type providerResult struct {
	name     string
	listings []model.Listing
	err      error
}

// FetchAllListings queries every provider concurrently and merges the
// results. The only error it returns is ErrEmptyQuery; provider
// failures are logged and tolerated, so the result may be empty.
func (g *Gateway) FetchAllListings(ctx context.Context, query string) ([]model.Listing, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if cached, found := g.memo.Get(query); found {
		g.mu.Lock()
		g.memoRequests++
		g.mu.Unlock()
		return cached.([]model.Listing), nil
	}

	results := make(chan providerResult, len(g.providers))
	var wg sync.WaitGroup

	for _, p := range g.providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
			defer cancel()

			if err := g.limiter.Wait(callCtx); err != nil {
				results <- providerResult{name: p.Name(), err: err}
				return
			}

			g.mu.Lock()
			g.apiRequests++
			g.mu.Unlock()

			listings, err := p.SearchListings(callCtx, query, g.cfg.MaxListingsPerSource)
			results <- providerResult{name: p.Name(), listings: listings, err: err}
		}(p)
	}

	wg.Wait()
	close(results)

	var merged []model.Listing
	for res := range results {
		if res.err != nil {
			log.Printf("gateway: %s failed for %q: %v", res.name, query, res.err)
			continue
		}
		merged = append(merged, res.listings...)
	}

	g.memo.Set(query, merged, gocache.DefaultExpiration)
	return merged, nil
}

// GetPriceGuide asks the guide source for its estimate. Missing source,
// lookup failure, and no-guide all come back as nil.
func (g *Gateway) GetPriceGuide(ctx context.Context, query string) *model.PriceGuide {
	if g.guide == nil || strings.TrimSpace(query) == "" {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	if err := g.limiter.Wait(callCtx); err != nil {
		log.Printf("gateway: price guide throttle for %q: %v", query, err)
		return nil
	}

	g.mu.Lock()
	g.apiRequests++
	g.mu.Unlock()

	guide, err := g.guide.GetPriceGuide(callCtx, query)
	if err != nil {
		log.Printf("gateway: price guide failed for %q: %v", query, err)
		return nil
	}
	return guide
}

// GetListingByID resolves one listing to its canonical detail, or nil
// when no detail source is configured or the lookup fails.
func (g *Gateway) GetListingByID(ctx context.Context, id string) *model.ListingDetail {
	if g.detail == nil || id == "" {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	if err := g.limiter.Wait(callCtx); err != nil {
		log.Printf("gateway: listing lookup throttle for %s: %v", id, err)
		return nil
	}

	g.mu.Lock()
	g.apiRequests++
	g.mu.Unlock()

	detail, err := g.detail.GetListingByID(callCtx, id)
	if err != nil {
		log.Printf("gateway: listing lookup failed for %s: %v", id, err)
		return nil
	}
	return detail
}

// Stats reports outbound call and memo hit counts.
func (g *Gateway) Stats() (apiRequests, memoRequests int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.apiRequests, g.memoRequests
}

package pricecache

import (
	"time"

	"github.com/gearindex/marketpulse/internal/model"
)

// State classifies an entry's cached snapshot at request time.
type State int

const (
	// StateEmpty: no usable snapshot exists; a refresh must run.
	StateEmpty State = iota
	// StateFresh: snapshot is plausible and within TTL; serve it with
	// zero network calls.
	StateFresh
	// StateStale: snapshot aged out of the TTL window.
	StateStale
	// StateSuspicious: snapshot value sits below the plausibility
	// threshold - evidence of a bad prior read. Overrides freshness.
	StateSuspicious
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateSuspicious:
		return "suspicious"
	default:
		return "empty"
	}
}

// NeedsRefresh reports whether the state requires running the pipeline.
func (s State) NeedsRefresh() bool {
	return s != StateFresh
}

// Config carries the tunables of the freshness decision. Injected
// rather than global so deployments and tests can adjust them.
type Config struct {
	TTL                 time.Duration
	SuspiciousThreshold float64
}

// DefaultConfig returns the production defaults: half-day TTL and a
// 10-currency-unit floor under which a cached value is treated as a
// scraping artifact.
func DefaultConfig() Config {
	return Config{
		TTL:                 12 * time.Hour,
		SuspiciousThreshold: 10,
	}
}

// Classifier applies the freshness/staleness/plausibility policy.
type Classifier struct {
	cfg Config
	now func() time.Time
}

func NewClassifier(cfg Config) *Classifier {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.SuspiciousThreshold <= 0 {
		cfg.SuspiciousThreshold = DefaultConfig().SuspiciousThreshold
	}
	return &Classifier{cfg: cfg, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (c *Classifier) SetClock(now func() time.Time) {
	c.now = now
}

// Classify evaluates a stored snapshot. Order matters: a suspicious
// value forces a refresh even inside the TTL window.
func (c *Classifier) Classify(snap *model.Snapshot) State {
	if snap == nil || snap.Value == 0 {
		return StateEmpty
	}
	if snap.Value < c.cfg.SuspiciousThreshold {
		return StateSuspicious
	}
	if c.now().Sub(snap.LastUpdated) >= c.cfg.TTL {
		return StateStale
	}
	return StateFresh
}

// GuideFromSnapshot converts a fresh snapshot into the guide shape
// returned to callers on a cache hit. Listings are never cached, only
// these derived numbers.
func GuideFromSnapshot(snap *model.Snapshot) *model.PriceGuide {
	if snap == nil {
		return nil
	}
	return &model.PriceGuide{
		Min:         snap.Min,
		Max:         snap.Max,
		Avg:         snap.Value,
		Currency:    snap.Currency,
		LastUpdated: snap.LastUpdated,
		Source:      snap.Source,
	}
}

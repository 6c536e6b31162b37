package sources

import (
	"context"
	"errors"

	"github.com/gearindex/marketpulse/internal/model"
)

// ErrEmptyQuery is the only error FetchAllListings surfaces: calling
// the gateway without a query is caller misuse, not a data condition.
var ErrEmptyQuery = errors.New("empty query")

// Provider is one external marketplace source. Adapters normalize
// their own wire shapes into model.Listing at this boundary; nothing
// source-specific travels further into the pipeline.
type Provider interface {
	// Available returns true if the provider is configured and accessible
	Available() bool

	// Name identifies the provider in logs and listing sources
	Name() string

	// SearchListings returns up to max normalized listings for a query
	SearchListings(ctx context.Context, query string, max int) ([]model.Listing, error)
}

// GuideProvider can return a pre-aggregated price guide for a query.
type GuideProvider interface {
	Available() bool

	// GetPriceGuide returns (nil, nil) when no guide exists for the query
	GetPriceGuide(ctx context.Context, query string) (*model.PriceGuide, error)
}

// DetailProvider resolves one listing id to its canonical make/model.
type DetailProvider interface {
	Available() bool

	// GetListingByID returns (nil, nil) when the listing does not exist
	GetListingByID(ctx context.Context, id string) (*model.ListingDetail, error)
}

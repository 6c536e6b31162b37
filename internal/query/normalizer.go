package query

import (
	"context"
	"regexp"
	"strings"

	"github.com/gearindex/marketpulse/internal/model"
)

// ListingResolver resolves a marketplace listing id to its canonical
// make/model. Satisfied by the source gateway.
type ListingResolver interface {
	GetListingByID(ctx context.Context, id string) (*model.ListingDetail, error)
}

// Normalizer builds canonical search strings for catalog entries and
// free-text queries, and derives higher-precision queries from known
// listing URLs.
type Normalizer struct {
	resolver ListingResolver
}

func NewNormalizer(resolver ListingResolver) *Normalizer {
	return &Normalizer{resolver: resolver}
}

// listingIDPattern matches the numeric listing identifier embedded in
// marketplace URLs like https://reverb.com/item/12345678-roland-tb-03.
var listingIDPattern = regexp.MustCompile(`/(?:item|listings?)/(\d+)`)

// Canonicalize returns the primary search string for a request: the
// entry's brand+model when available, otherwise the cleaned free text.
// Returns "" when neither yields anything usable.
func (n *Normalizer) Canonicalize(entry *model.CatalogEntry, raw string) string {
	if entry != nil {
		combined := clean(entry.Brand + " " + entry.Model)
		if combined != "" {
			return combined
		}
	}
	return clean(raw)
}

// RefineFromKnownListing derives a "{make} {model}" query from the
// entry's known listing URL by resolving the embedded listing id.
// Returns ok=false when the entry carries no recognizable listing URL
// or the lookup fails; callers fall back to the canonical query.
func (n *Normalizer) RefineFromKnownListing(ctx context.Context, entry *model.CatalogEntry) (string, bool) {
	if entry == nil || entry.KnownListingURL == "" || n.resolver == nil {
		return "", false
	}

	id := ExtractListingID(entry.KnownListingURL)
	if id == "" {
		return "", false
	}

	detail, err := n.resolver.GetListingByID(ctx, id)
	if err != nil || detail == nil {
		return "", false
	}

	refined := clean(detail.Make + " " + detail.Model)
	if refined == "" {
		return "", false
	}
	return refined, true
}

// FallbackVariant returns the single alternate form of a query tried
// after an empty first round: the first space replaced with a hyphen
// ("Roland TB-03" -> "Roland-TB-03"). ok=false when no transformation
// is possible; no further variants are ever generated.
func (n *Normalizer) FallbackVariant(q string) (string, bool) {
	q = clean(q)
	idx := strings.IndexByte(q, ' ')
	if idx < 0 {
		return "", false
	}
	return q[:idx] + "-" + q[idx+1:], true
}

// ExtractListingID pulls the numeric listing identifier out of a
// marketplace URL, or "" if none is present.
func ExtractListingID(url string) string {
	if m := listingIDPattern.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}
	return ""
}

// clean trims and collapses interior whitespace.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

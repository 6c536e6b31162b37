package metrics

import (
	"log"
	"sort"
	"time"

	"github.com/gearindex/marketpulse/internal/model"
)

// Calculate reduces a listing set to summary metrics. Returns nil for
// an empty set - no listings is an absence of data, not an error.
//
// Sources report different currencies for the same query, so listings
// are bucketed by currency and only the largest bucket is aggregated
// (ties broken by lexicographically smallest code). No conversion is
// attempted. Every listing in the chosen bucket counts equally.
func Calculate(listings []model.Listing) *model.MetricsSummary {
	return calculateAt(listings, time.Now())
}

func calculateAt(listings []model.Listing, now time.Time) *model.MetricsSummary {
	if len(listings) == 0 {
		return nil
	}

	buckets := make(map[string][]model.Listing)
	for _, l := range listings {
		buckets[l.Currency] = append(buckets[l.Currency], l)
	}

	currency := dominantCurrency(buckets)
	chosen := buckets[currency]
	if dropped := len(listings) - len(chosen); dropped > 0 {
		log.Printf("metrics: dropped %d listing(s) outside dominant currency %s", dropped, currency)
	}

	summary := &model.MetricsSummary{
		Min:         chosen[0].Price,
		Max:         chosen[0].Price,
		Currency:    currency,
		Count:       len(chosen),
		LastUpdated: now,
	}

	var total float64
	for _, l := range chosen {
		if l.Price < summary.Min {
			summary.Min = l.Price
		}
		if l.Price > summary.Max {
			summary.Max = l.Price
		}
		total += l.Price
	}
	summary.Avg = total / float64(len(chosen))

	return summary
}

func dominantCurrency(buckets map[string][]model.Listing) string {
	codes := make([]string, 0, len(buckets))
	for code := range buckets {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	best := codes[0]
	for _, code := range codes[1:] {
		if len(buckets[code]) > len(buckets[best]) {
			best = code
		}
	}
	return best
}

// Package enrich backfills technical specifications for catalog
// entries from a collaborating metadata service. Enrichment is strictly
// best effort: a dead collaborator never degrades a price lookup.
package enrich

import (
	"context"
	"log"

	"github.com/gearindex/marketpulse/internal/catalog"
	"github.com/gearindex/marketpulse/internal/model"
)

// Enrichment is what the collaborator knows about a piece of gear.
type Enrichment struct {
	Specs       []model.Spec `json:"specs"`
	Description string       `json:"description"`
}

// Collaborator is the external metadata service.
type Collaborator interface {
	Available() bool
	GetDeepEnrichment(ctx context.Context, brand, model string) (*Enrichment, error)
}

// Coordinator decides when enrichment runs and persists what comes
// back.
type Coordinator struct {
	collab Collaborator
	store  catalog.Store
}

func NewCoordinator(collab Collaborator, store catalog.Store) *Coordinator {
	return &Coordinator{collab: collab, store: store}
}

// TriggerIfMissing fetches and persists specs for an entry that has
// none. It returns the specs to serve on this request: the stored ones
// when present, the fetched ones on success, nil otherwise. All failure
// modes are logged, never propagated.
func (c *Coordinator) TriggerIfMissing(ctx context.Context, entry *model.CatalogEntry) []model.Spec {
	if entry == nil {
		return nil
	}
	if len(entry.Specs) > 0 {
		return entry.Specs
	}
	if c.collab == nil || !c.collab.Available() {
		return nil
	}

	enrichment, err := c.collab.GetDeepEnrichment(ctx, entry.Brand, entry.Model)
	if err != nil {
		log.Printf("enrich: lookup failed for %s %s: %v", entry.Brand, entry.Model, err)
		return nil
	}
	if enrichment == nil || len(enrichment.Specs) == 0 {
		return nil
	}

	update := catalog.Update{SetSpecs: enrichment.Specs}
	if enrichment.Description != "" && entry.Description == "" {
		desc := enrichment.Description
		update.SetDescription = &desc
	}
	if err := c.store.AtomicUpdate(ctx, entry.ID, update); err != nil {
		log.Printf("enrich: persist failed for %s: %v", entry.ID, err)
	}

	return enrichment.Specs
}

package catalog

import (
	"context"
	"errors"

	"github.com/gearindex/marketpulse/internal/model"
)

// ErrNotFound is returned by FindByID when no entry exists for the id.
var ErrNotFound = errors.New("catalog entry not found")

// DefaultHistoryCap bounds the persisted price history per entry.
// Older points are trimmed on append so the series cannot grow without
// bound while keeping its chronological order.
const DefaultHistoryCap = 365

// Update describes one atomic write against a catalog entry. All set
// fields and the history push are applied together, so readers never
// observe a snapshot without its matching history point.
type Update struct {
	SetCurrent     *model.Snapshot
	PushHistory    *model.HistoryPoint
	SetSpecs       []model.Spec
	SetDescription *string
}

// IsZero reports whether the update would write nothing.
func (u Update) IsZero() bool {
	return u.SetCurrent == nil && u.PushHistory == nil &&
		u.SetSpecs == nil && u.SetDescription == nil
}

// Store is the persistence substrate for catalog entries. The pricing
// engine only reads entries and writes their market value fields.
type Store interface {
	FindByID(ctx context.Context, id string) (*model.CatalogEntry, error)
	AtomicUpdate(ctx context.Context, id string, update Update) error
}

// applyUpdate mutates entry in place and enforces the history cap.
// Both backends funnel their writes through this so set/push semantics
// stay identical.
func applyUpdate(entry *model.CatalogEntry, update Update, historyCap int) {
	if update.SetCurrent != nil {
		entry.MarketValue.Current = update.SetCurrent
	}
	if update.PushHistory != nil {
		entry.MarketValue.History = append(entry.MarketValue.History, *update.PushHistory)
		if historyCap > 0 && len(entry.MarketValue.History) > historyCap {
			excess := len(entry.MarketValue.History) - historyCap
			entry.MarketValue.History = entry.MarketValue.History[excess:]
		}
	}
	if update.SetSpecs != nil {
		entry.Specs = update.SetSpecs
	}
	if update.SetDescription != nil {
		entry.Description = *update.SetDescription
	}
}

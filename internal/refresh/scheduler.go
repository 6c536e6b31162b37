// Package refresh keeps watched catalog entries warm by re-running
// market lookups on a schedule, so interactive requests mostly hit a
// fresh cache.
package refresh

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gearindex/marketpulse/internal/insights"
)

// Scheduler periodically refreshes a fixed watchlist of entry ids.
type Scheduler struct {
	svc      *insights.Service
	cron     *cron.Cron
	entryIDs []string
	timeout  time.Duration
}

func NewScheduler(svc *insights.Service, entryIDs []string) *Scheduler {
	return &Scheduler{
		svc:      svc,
		cron:     cron.New(),
		entryIDs: entryIDs,
		timeout:  2 * time.Minute,
	}
}

// Start registers the watchlist sweep under the given cron spec
// (e.g. "0 */6 * * *") and starts the scheduler.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("refresh: scheduled %d entries with spec %q", len(s.entryIDs), spec)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// sweep refreshes entries one at a time. A single failing entry does
// not stop the sweep; the lookup itself already absorbs market-side
// failures.
func (s *Scheduler) sweep() {
	for _, id := range s.entryIDs {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if _, err := s.svc.GetMarketInsights(ctx, "", id); err != nil {
			log.Printf("refresh: sweep failed for %s: %v", id, err)
		}
		cancel()
	}
}

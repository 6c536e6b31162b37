package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gearindex/marketpulse/internal/catalog"
	"github.com/gearindex/marketpulse/internal/config"
	"github.com/gearindex/marketpulse/internal/enrich"
	"github.com/gearindex/marketpulse/internal/insights"
	"github.com/gearindex/marketpulse/internal/pricecache"
	"github.com/gearindex/marketpulse/internal/refresh"
	"github.com/gearindex/marketpulse/internal/sources"
)

func main() {
	var (
		queryFlag = flag.String("query", "", "free-text gear query (e.g. \"roland tb-03\")")
		entryFlag = flag.String("entry", "", "catalog entry id to look up")
		watchFlag = flag.Bool("watch", false, "run the scheduled watchlist refresher")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	store, cleanup, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer cleanup()

	svc := buildService(cfg, store)

	if *watchFlag {
		runWatcher(cfg, svc)
		return
	}

	if *queryFlag == "" && *entryFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: marketpulse -query \"roland tb-03\" | -entry <id> | -watch")
		os.Exit(2)
	}

	result, err := svc.GetMarketInsights(context.Background(), *queryFlag, *entryFlag)
	if err != nil {
		log.Fatalf("lookup: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	fmt.Println(string(out))
}

func buildStore(cfg config.Config) (catalog.Store, func(), error) {
	if cfg.RedisAddr != "" {
		rs, err := catalog.NewRedisStore(context.Background(), cfg.RedisAddr, cfg.RedisPassword, 0)
		if err != nil {
			return nil, nil, err
		}
		rs.SetHistoryCap(cfg.HistoryCap)
		return rs, func() { rs.Close() }, nil
	}

	fs, err := catalog.NewFileStore(cfg.DataPath)
	if err != nil {
		return nil, nil, err
	}
	fs.SetHistoryCap(cfg.HistoryCap)
	return fs, func() {}, nil
}

func buildService(cfg config.Config, store catalog.Store) *insights.Service {
	reverb := sources.NewReverbClient(cfg.ReverbToken)
	ebay := sources.NewEbayClient(cfg.EbayAppID)
	kleinanzeigen := sources.NewKleinanzeigenClient()

	providers := []sources.Provider{reverb, ebay, kleinanzeigen}
	configured := 0
	for _, p := range providers {
		if p.Available() {
			configured++
		}
	}
	if configured <= 1 {
		// Only the scraper is live; add deterministic data so the
		// engine stays usable offline.
		mock := sources.NewMockSource("offline")
		sources.SeedGearListings(mock, "roland tb-03", 350)
		providers = append(providers, mock)
		log.Printf("no marketplace credentials configured, offline source enabled")
	}

	gateway := sources.NewGateway(sources.GatewayConfig{
		MaxListingsPerSource: cfg.MaxListingsPerSource,
		CallTimeout:          cfg.CallTimeout,
	}, providers...)
	gateway.SetGuideProvider(reverb)
	gateway.SetDetailProvider(reverb)

	classifier := pricecache.NewClassifier(pricecache.Config{
		TTL:                 cfg.CacheTTL,
		SuspiciousThreshold: cfg.SuspiciousThreshold,
	})
	enricher := enrich.NewCoordinator(enrich.NewClient(cfg.EnrichURL, cfg.EnrichToken), store)

	return insights.NewService(store, gateway, classifier, enricher)
}

func runWatcher(cfg config.Config, svc *insights.Service) {
	if cfg.RefreshSchedule == "" || len(cfg.WatchedEntries) == 0 {
		log.Fatal("watch mode needs MARKETPULSE_REFRESH_SCHEDULE and MARKETPULSE_WATCHED_ENTRIES")
	}

	scheduler := refresh.NewScheduler(svc, cfg.WatchedEntries)
	if err := scheduler.Start(cfg.RefreshSchedule); err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("stopping")
	scheduler.Stop()
}

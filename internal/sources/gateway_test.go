package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gearindex/marketpulse/internal/model"
)

func TestGateway_EmptyQuery(t *testing.T) {
	g := NewGateway(GatewayConfig{}, NewMockSource("a"))

	if _, err := g.FetchAllListings(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Expected ErrEmptyQuery, got %v", err)
	}
}

func TestGateway_MergesAllSources(t *testing.T) {
	a := NewMockSource("a")
	b := NewMockSource("b")
	a.Seed("roland tb-03", []model.Listing{{Title: "TB-03", Price: 300, Currency: "EUR", Source: "a"}})
	b.Seed("roland tb-03", []model.Listing{
		{Title: "TB-03 boxed", Price: 350, Currency: "EUR", Source: "b"},
		{Title: "TB-03 mint", Price: 400, Currency: "EUR", Source: "b"},
	})

	g := NewGateway(GatewayConfig{RequestsPerSecond: 1000}, a, b)

	listings, err := g.FetchAllListings(context.Background(), "roland tb-03")
	if err != nil {
		t.Fatalf("FetchAllListings: %v", err)
	}
	if len(listings) != 3 {
		t.Errorf("Expected 3 merged listings, got %d", len(listings))
	}
}

func TestGateway_PartialFailure(t *testing.T) {
	healthy := NewMockSource("healthy")
	broken := NewMockSource("broken")
	healthy.Seed("moog minitaur", []model.Listing{{Title: "Minitaur", Price: 380, Currency: "EUR"}})
	broken.FailWith(errors.New("connection refused"))

	g := NewGateway(GatewayConfig{RequestsPerSecond: 1000}, healthy, broken)

	listings, err := g.FetchAllListings(context.Background(), "moog minitaur")
	if err != nil {
		t.Fatalf("Partial failure must not surface an error, got %v", err)
	}
	if len(listings) != 1 {
		t.Errorf("Expected 1 listing from healthy source, got %d", len(listings))
	}
}

func TestGateway_AllSourcesFail(t *testing.T) {
	a := NewMockSource("a")
	b := NewMockSource("b")
	a.FailWith(errors.New("timeout"))
	b.FailWith(errors.New("HTTP 503"))

	g := NewGateway(GatewayConfig{RequestsPerSecond: 1000}, a, b)

	listings, err := g.FetchAllListings(context.Background(), "korg ms-20")
	if err != nil {
		t.Fatalf("Total failure must yield empty set, not error, got %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("Expected empty set, got %d listings", len(listings))
	}
}

func TestGateway_SlowSourceTimesOut(t *testing.T) {
	fast := NewMockSource("fast")
	slow := NewMockSource("slow")
	fast.Seed("tascam 414", []model.Listing{{Title: "Portastudio", Price: 120, Currency: "EUR"}})
	slow.Seed("tascam 414", []model.Listing{{Title: "never arrives", Price: 999, Currency: "EUR"}})
	slow.SetDelay(500 * time.Millisecond)

	g := NewGateway(GatewayConfig{
		CallTimeout:       50 * time.Millisecond,
		RequestsPerSecond: 1000,
	}, fast, slow)

	listings, err := g.FetchAllListings(context.Background(), "tascam 414")
	if err != nil {
		t.Fatalf("FetchAllListings: %v", err)
	}
	if len(listings) != 1 || listings[0].Price != 120 {
		t.Errorf("Expected only the fast source's listing, got %+v", listings)
	}
}

func TestGateway_MemoizesQueries(t *testing.T) {
	src := NewMockSource("a")
	src.Seed("sh-101", []model.Listing{{Title: "SH-101", Price: 900, Currency: "EUR"}})

	g := NewGateway(GatewayConfig{RequestsPerSecond: 1000}, src)

	for i := 0; i < 3; i++ {
		if _, err := g.FetchAllListings(context.Background(), "sh-101"); err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
	}

	if src.Calls() != 1 {
		t.Errorf("Expected 1 upstream call, got %d", src.Calls())
	}
	api, memo := g.Stats()
	if api != 1 || memo != 2 {
		t.Errorf("Expected stats api=1 memo=2, got api=%d memo=%d", api, memo)
	}
}

func TestGateway_GuideAndDetail(t *testing.T) {
	guide := NewMockGuideProvider()
	guide.Seed("roland tb-03", &model.PriceGuide{Min: 300, Max: 420, Avg: 350, Currency: "EUR", Source: "reverb"})

	detail := NewMockDetailProvider()
	detail.Seed("81234567", &model.ListingDetail{ID: "81234567", Make: "Roland", Model: "TB-03"})

	g := NewGateway(GatewayConfig{RequestsPerSecond: 1000})
	g.SetGuideProvider(guide)
	g.SetDetailProvider(detail)

	pg := g.GetPriceGuide(context.Background(), "roland tb-03")
	if pg == nil || pg.Avg != 350 {
		t.Errorf("Unexpected guide: %+v", pg)
	}
	if g.GetPriceGuide(context.Background(), "unknown thing") != nil {
		t.Error("Unknown query should yield nil guide")
	}

	d := g.GetListingByID(context.Background(), "81234567")
	if d == nil || d.Make != "Roland" {
		t.Errorf("Unexpected detail: %+v", d)
	}
	if g.GetListingByID(context.Background(), "0") != nil {
		t.Error("Unknown id should yield nil detail")
	}
}

func TestGateway_GuideFailureIsNil(t *testing.T) {
	guide := NewMockGuideProvider()
	guide.FailWith(errors.New("HTTP 500"))

	g := NewGateway(GatewayConfig{RequestsPerSecond: 1000})
	g.SetGuideProvider(guide)

	if pg := g.GetPriceGuide(context.Background(), "roland tb-03"); pg != nil {
		t.Errorf("Guide failure should yield nil, got %+v", pg)
	}
}

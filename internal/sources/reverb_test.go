package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newReverbTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("Missing bearer token, got %q", r.Header.Get("Authorization"))
		}

		switch {
		case r.URL.Path == "/api/listings" && r.URL.Query().Get("query") != "":
			w.Write([]byte(`{"listings":[
				{"id":1001,"title":"Roland TB-03 Boutique","make":"Roland","model":"TB-03",
				 "price":{"amount":"350.00","currency":"EUR"},
				 "condition":{"display_name":"Very Good"},
				 "_links":{"web":{"href":"https://reverb.com/item/1001"}},
				 "published_at":"2026-08-20T10:00:00Z"},
				{"id":1002,"title":"Roland TB-03 mint","make":"Roland","model":"TB-03",
				 "price":{"amount":"420.00","currency":"EUR"},
				 "condition":{"display_name":"Mint"},
				 "_links":{"web":{"href":"https://reverb.com/item/1002"}},
				 "published_at":"2026-08-25T10:00:00Z"},
				{"id":1003,"title":"zero price junk","price":{"amount":"0","currency":"EUR"}}
			]}`))
		case r.URL.Path == "/api/priceguide":
			w.Write([]byte(`{"price_guides":[{
				"estimated_value":{"amount":"385.00","currency":"EUR"},
				"price_low":{"amount":"320.00","currency":"EUR"},
				"price_high":{"amount":"450.00","currency":"EUR"}}]}`))
		case strings.HasPrefix(r.URL.Path, "/api/listings/81234567"):
			w.Write([]byte(`{"id":81234567,"title":"Roland TB-03 Bass Line",
				"make":"Roland","model":"TB-03",
				"price":{"amount":"350.00","currency":"EUR"}}`))
		case strings.HasPrefix(r.URL.Path, "/api/listings/"):
			http.NotFound(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestReverb_SearchListings(t *testing.T) {
	server := newReverbTestServer(t)
	defer server.Close()

	r := NewReverbClient("test-token")
	r.SetBaseURL(server.URL)

	listings, err := r.SearchListings(context.Background(), "roland tb-03", 10)
	if err != nil {
		t.Fatalf("SearchListings: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("Expected 2 listings (zero price dropped), got %d", len(listings))
	}
	if listings[0].Price != 350 || listings[0].Currency != "EUR" {
		t.Errorf("First listing wrong: %+v", listings[0])
	}
	if listings[0].Condition != "Very Good" {
		t.Errorf("Condition lost: %+v", listings[0])
	}
	if listings[0].Date.IsZero() {
		t.Error("published_at not parsed")
	}
}

func TestReverb_GetPriceGuide(t *testing.T) {
	server := newReverbTestServer(t)
	defer server.Close()

	r := NewReverbClient("test-token")
	r.SetBaseURL(server.URL)

	guide, err := r.GetPriceGuide(context.Background(), "roland tb-03")
	if err != nil {
		t.Fatalf("GetPriceGuide: %v", err)
	}
	if guide == nil {
		t.Fatal("Expected guide")
	}
	if guide.Avg != 385 || guide.Min != 320 || guide.Max != 450 {
		t.Errorf("Guide values wrong: %+v", guide)
	}
	if guide.Source != "reverb" {
		t.Errorf("Expected source reverb, got %s", guide.Source)
	}
}

func TestReverb_GetListingByID(t *testing.T) {
	server := newReverbTestServer(t)
	defer server.Close()

	r := NewReverbClient("test-token")
	r.SetBaseURL(server.URL)

	detail, err := r.GetListingByID(context.Background(), "81234567")
	if err != nil {
		t.Fatalf("GetListingByID: %v", err)
	}
	if detail == nil || detail.Make != "Roland" || detail.Model != "TB-03" {
		t.Errorf("Unexpected detail: %+v", detail)
	}

	missing, err := r.GetListingByID(context.Background(), "999")
	if err != nil {
		t.Fatalf("Missing listing should not error: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for unknown id, got %+v", missing)
	}
}

func TestReverb_Available(t *testing.T) {
	if NewReverbClient("").Available() {
		t.Error("Client without token must not be available")
	}
	if !NewReverbClient("x").Available() {
		t.Error("Client with token must be available")
	}
}

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gearindex/marketpulse/internal/model"
)

const reverbBaseURL = "https://api.reverb.com"

// ReverbClient talks to the Reverb marketplace API. It is the richest
// source: besides listings it serves price guides and listing lookups,
// so it also backs query refinement.
type ReverbClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

func NewReverbClient(token string) *ReverbClient {
	return &ReverbClient{
		token:      token,
		baseURL:    reverbBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxRetries: 2,
	}
}

// SetBaseURL overrides the API endpoint. Test hook.
func (r *ReverbClient) SetBaseURL(base string) {
	r.baseURL = base
}

func (r *ReverbClient) Available() bool {
	return r.token != ""
}

func (r *ReverbClient) Name() string {
	return "reverb"
}

// Reverb money fields arrive as {"amount":"350.00","currency":"EUR"}.
type reverbMoney struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m reverbMoney) value() float64 {
	v, err := strconv.ParseFloat(m.Amount, 64)
	if err != nil {
		return 0
	}
	return v
}

type reverbListing struct {
	ID        json.Number `json:"id"`
	Title     string      `json:"title"`
	Make      string      `json:"make"`
	Model     string      `json:"model"`
	Price     reverbMoney `json:"price"`
	Condition struct {
		DisplayName string `json:"display_name"`
	} `json:"condition"`
	Links struct {
		Web struct {
			Href string `json:"href"`
		} `json:"web"`
	} `json:"_links"`
	PublishedAt string `json:"published_at"`
}

func (r *ReverbClient) SearchListings(ctx context.Context, query string, max int) ([]model.Listing, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(max))
	params.Set("state", "live")

	var resp struct {
		Listings []reverbListing `json:"listings"`
	}
	if err := r.getJSON(ctx, "/api/listings?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("reverb search: %w", err)
	}

	listings := make([]model.Listing, 0, len(resp.Listings))
	for _, rl := range resp.Listings {
		price := rl.Price.value()
		if price <= 0 {
			continue
		}
		l := model.Listing{
			Title:     rl.Title,
			Price:     price,
			Currency:  rl.Price.Currency,
			Source:    r.Name(),
			URL:       rl.Links.Web.Href,
			Condition: rl.Condition.DisplayName,
		}
		if ts, err := time.Parse(time.RFC3339, rl.PublishedAt); err == nil {
			l.Date = ts
		}
		listings = append(listings, l)
	}

	if len(listings) > max {
		listings = listings[:max]
	}
	return listings, nil
}

// GetPriceGuide returns Reverb's own transaction-based estimate for a
// query, or (nil, nil) when Reverb has no guide for it.
func (r *ReverbClient) GetPriceGuide(ctx context.Context, query string) (*model.PriceGuide, error) {
	params := url.Values{}
	params.Set("query", query)

	var resp struct {
		PriceGuides []struct {
			EstimatedValue reverbMoney `json:"estimated_value"`
			PriceLow       reverbMoney `json:"price_low"`
			PriceHigh      reverbMoney `json:"price_high"`
		} `json:"price_guides"`
	}
	if err := r.getJSON(ctx, "/api/priceguide?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("reverb price guide: %w", err)
	}

	if len(resp.PriceGuides) == 0 {
		return nil, nil
	}

	pg := resp.PriceGuides[0]
	avg := pg.EstimatedValue.value()
	if avg <= 0 {
		return nil, nil
	}
	return &model.PriceGuide{
		Min:         pg.PriceLow.value(),
		Max:         pg.PriceHigh.value(),
		Avg:         avg,
		Currency:    pg.EstimatedValue.Currency,
		LastUpdated: time.Now(),
		Source:      r.Name(),
	}, nil
}

// GetListingByID resolves a listing to its canonical make and model.
// Returns (nil, nil) for an unknown id.
func (r *ReverbClient) GetListingByID(ctx context.Context, id string) (*model.ListingDetail, error) {
	var rl reverbListing
	if err := r.getJSON(ctx, "/api/listings/"+url.PathEscape(id), &rl); err != nil {
		return nil, fmt.Errorf("reverb listing %s: %w", id, err)
	}
	if rl.Make == "" && rl.Model == "" && rl.Title == "" {
		return nil, nil
	}
	return &model.ListingDetail{
		ID:       rl.ID.String(),
		Make:     rl.Make,
		Model:    rl.Model,
		Title:    rl.Title,
		Price:    rl.Price.value(),
		Currency: rl.Price.Currency,
	}, nil
}

// getJSON fetches and decodes one API path, retrying transient failures
// with quadratic backoff. A 404 decodes as the zero value so callers
// can report absence as (nil, nil).
func (r *ReverbClient) getJSON(ctx context.Context, path string, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt*attempt) * time.Second
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := r.doGetJSON(ctx, path, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}

	return fmt.Errorf("after %d attempts: %w", r.maxRetries+1, lastErr)
}

func (r *ReverbClient) doGetJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", r.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/hal+json")
	req.Header.Set("Accept-Version", "3.0")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

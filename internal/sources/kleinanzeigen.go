package sources

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/gearindex/marketpulse/internal/model"
)

// KleinanzeigenClient scrapes kleinanzeigen.de search results. There is
// no public API, so results come from parsing the listing tiles.
type KleinanzeigenClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

func NewKleinanzeigenClient() *KleinanzeigenClient {
	return &KleinanzeigenClient{
		baseURL:    "https://www.kleinanzeigen.de",
		httpClient: &http.Client{Timeout: 20 * time.Second},
		userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// SetBaseURL overrides the site root. Test hook.
func (k *KleinanzeigenClient) SetBaseURL(base string) {
	k.baseURL = base
}

func (k *KleinanzeigenClient) Available() bool {
	return true
}

func (k *KleinanzeigenClient) Name() string {
	return "kleinanzeigen"
}

// Tile prices look like "350 €", "1.250 € VB" or "Zu verschenken".
var kleinanzeigenPricePattern = regexp.MustCompile(`([\d.]+)\s*€`)

// Sellers flag wrecks in the title; those prices are not market prices.
var noisePattern = regexp.MustCompile(`(?i)\b(defekt|bastler|ersatzteile|kaputt|broken|for parts)\b`)

func (k *KleinanzeigenClient) SearchListings(ctx context.Context, query string, max int) ([]model.Listing, error) {
	searchPath := fmt.Sprintf("/s-musikinstrumente/%s/k0c74", url.PathEscape(strings.ReplaceAll(query, " ", "-")))

	req, err := http.NewRequestWithContext(ctx, "GET", k.baseURL+searchPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	k.setBrowserHeaders(req)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	reader, err := k.getReader(resp)
	if err != nil {
		return nil, fmt.Errorf("create reader: %w", err)
	}

	listings, err := k.parseResults(reader)
	if err != nil {
		return nil, err
	}
	if len(listings) > max {
		listings = listings[:max]
	}
	return listings, nil
}

func (k *KleinanzeigenClient) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", k.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, br")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

func (k *KleinanzeigenClient) getReader(resp *http.Response) (io.Reader, error) {
	var reader io.Reader = resp.Body

	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		reader = gzipReader
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	return reader, nil
}

func (k *KleinanzeigenClient) parseResults(body io.Reader) ([]model.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var listings []model.Listing
	doc.Find("article.aditem").Each(func(_ int, tile *goquery.Selection) {
		title := strings.TrimSpace(tile.Find("a.ellipsis").First().Text())
		if title == "" || noisePattern.MatchString(title) {
			return
		}

		priceText := strings.TrimSpace(tile.Find("p.aditem-main--middle--price-shipping--price").First().Text())
		price, ok := parseEuroPrice(priceText)
		if !ok {
			return
		}

		listing := model.Listing{
			Title:    title,
			Price:    price,
			Currency: "EUR",
			Source:   k.Name(),
		}
		if href, exists := tile.Find("a.ellipsis").First().Attr("href"); exists {
			listing.URL = k.baseURL + href
		}
		listings = append(listings, listing)
	})

	return listings, nil
}

// parseEuroPrice handles the German thousands separator, so "1.250 € VB"
// yields 1250. Giveaways and "price on request" tiles carry no number
// and are skipped.
func parseEuroPrice(text string) (float64, bool) {
	matches := kleinanzeigenPricePattern.FindStringSubmatch(text)
	if len(matches) < 2 {
		return 0, false
	}
	raw := strings.ReplaceAll(matches[1], ".", "")
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gearindex/marketpulse/internal/model"
)

const ebayMusicalInstrumentsCategory = "619"

// EbayClient queries the eBay Finding API for active gear listings.
type EbayClient struct {
	appID      string
	endpoint   string
	httpClient *http.Client
}

// The Finding API wraps every field in a single-element array.
type findingResponse struct {
	FindItemsAdvancedResponse []struct {
		SearchResult []struct {
			Item []findingItem `json:"item"`
		} `json:"searchResult"`
	} `json:"findItemsAdvancedResponse"`
}

type findingItem struct {
	ItemID      []string `json:"itemId"`
	Title       []string `json:"title"`
	ViewItemURL []string `json:"viewItemURL"`
	Condition   []struct {
		ConditionDisplayName []string `json:"conditionDisplayName"`
	} `json:"condition"`
	SellingStatus []struct {
		CurrentPrice []struct {
			Value      []string `json:"__value__"`
			CurrencyID []string `json:"@currencyId"`
		} `json:"currentPrice"`
	} `json:"sellingStatus"`
	ListingInfo []struct {
		StartTime []string `json:"startTime"`
	} `json:"listingInfo"`
}

func NewEbayClient(appID string) *EbayClient {
	return &EbayClient{
		appID:      appID,
		endpoint:   "https://svcs.ebay.com/services/search/FindingService/v1",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetEndpoint overrides the Finding API endpoint. Test hook.
func (c *EbayClient) SetEndpoint(endpoint string) {
	c.endpoint = endpoint
}

func (c *EbayClient) Available() bool {
	return c.appID != ""
}

func (c *EbayClient) Name() string {
	return "ebay"
}

// Broken and for-parts listings drag the low end of the estimate down;
// exclude them in the query and again by title.
var brokenPattern = regexp.MustCompile(`(?i)\b(broken|defect|defekt|for parts|parts only|not working|repair|bastler)\b`)

func (c *EbayClient) SearchListings(ctx context.Context, query string, max int) ([]model.Listing, error) {
	if !c.Available() {
		return nil, fmt.Errorf("eBay app ID not configured")
	}

	params := url.Values{}
	params.Set("OPERATION-NAME", "findItemsAdvanced")
	params.Set("SERVICE-VERSION", "1.0.0")
	params.Set("SECURITY-APPNAME", c.appID)
	params.Set("RESPONSE-DATA-FORMAT", "JSON")
	params.Set("keywords", query+" -(broken,defekt,parts,repair)")
	params.Set("categoryId", ebayMusicalInstrumentsCategory)

	params.Set("itemFilter(0).name", "Condition")
	params.Set("itemFilter(0).value(0)", "Used")
	params.Set("itemFilter(1).name", "ListingType")
	params.Set("itemFilter(1).value(0)", "FixedPrice")

	params.Set("paginationInput.entriesPerPage", strconv.Itoa(max))
	params.Set("sortOrder", "BestMatch")

	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-EBAY-SOA-SERVICE-NAME", "FindingService")
	req.Header.Set("X-EBAY-SOA-OPERATION-NAME", "findItemsAdvanced")
	req.Header.Set("X-EBAY-SOA-SECURITY-APPNAME", c.appID)
	req.Header.Set("X-EBAY-SOA-RESPONSE-DATA-FORMAT", "JSON")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eBay API request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if msg := parseEbayError(bodyBytes); msg != "" {
			return nil, fmt.Errorf("eBay API error: %s", msg)
		}
		return nil, fmt.Errorf("eBay API returned status %d", resp.StatusCode)
	}

	var ebayResp findingResponse
	if err := json.Unmarshal(bodyBytes, &ebayResp); err != nil {
		return nil, fmt.Errorf("parse eBay response: %w", err)
	}

	var listings []model.Listing
	if len(ebayResp.FindItemsAdvancedResponse) > 0 &&
		len(ebayResp.FindItemsAdvancedResponse[0].SearchResult) > 0 {
		for _, item := range ebayResp.FindItemsAdvancedResponse[0].SearchResult[0].Item {
			listing, ok := c.parseItem(item)
			if !ok {
				continue
			}
			if brokenPattern.MatchString(listing.Title) {
				continue
			}
			listings = append(listings, listing)
		}
	}

	if len(listings) > max {
		listings = listings[:max]
	}
	return listings, nil
}

func (c *EbayClient) parseItem(item findingItem) (model.Listing, bool) {
	listing := model.Listing{Source: c.Name()}

	if len(item.Title) > 0 {
		listing.Title = item.Title[0]
	}
	if len(item.ViewItemURL) > 0 {
		listing.URL = item.ViewItemURL[0]
	}
	if len(item.Condition) > 0 && len(item.Condition[0].ConditionDisplayName) > 0 {
		listing.Condition = item.Condition[0].ConditionDisplayName[0]
	}

	if len(item.SellingStatus) > 0 && len(item.SellingStatus[0].CurrentPrice) > 0 {
		cp := item.SellingStatus[0].CurrentPrice[0]
		if len(cp.Value) > 0 {
			if price, err := strconv.ParseFloat(cp.Value[0], 64); err == nil {
				listing.Price = price
			}
		}
		if len(cp.CurrencyID) > 0 {
			listing.Currency = cp.CurrencyID[0]
		}
	}

	if len(item.ListingInfo) > 0 && len(item.ListingInfo[0].StartTime) > 0 {
		if ts, err := time.Parse(time.RFC3339, item.ListingInfo[0].StartTime[0]); err == nil {
			listing.Date = ts
		}
	}

	return listing, listing.Price > 0
}

func parseEbayError(body []byte) string {
	var errorResp struct {
		ErrorMessage []struct {
			Error []struct {
				Message []string `json:"message"`
			} `json:"error"`
		} `json:"errorMessage"`
	}

	if err := json.Unmarshal(body, &errorResp); err != nil {
		return ""
	}
	if len(errorResp.ErrorMessage) == 0 ||
		len(errorResp.ErrorMessage[0].Error) == 0 ||
		len(errorResp.ErrorMessage[0].Error[0].Message) == 0 {
		return ""
	}
	msg := errorResp.ErrorMessage[0].Error[0].Message[0]
	if strings.Contains(msg, "exceeded the number of times") {
		return "rate limit exceeded, try again later"
	}
	return msg
}

// Package ebay implements the marketplace search adapter against the eBay
// Finding API. It normalizes the provider's nested single-element-array
// JSON into canonical items and converts every transport or provider error
// into a typed failure result.
package ebay

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/omnisell/pricewatch/internal/model"
)

const (
	productionURL = "https://svcs.ebay.com/services/search/FindingService/v1"
	sandboxURL    = "https://svcs.sandbox.ebay.com/services/search/FindingService/v1"

	opActive = "findItemsAdvanced"
	opSold   = "findCompletedItems"

	defaultMaxResults = 50
	defaultTimeout    = 15 * time.Second
)

// Config configures a Finding API client.
type Config struct {
	AppID   string
	Sandbox bool
	Timeout time.Duration
	// BaseURL overrides the endpoint, for tests.
	BaseURL string
	Logger  *zap.Logger
}

// Client calls the Finding API. Requests are paced with a shared limiter;
// the Finding API allows 5000 calls/day on the basic tier, so bursts are
// kept small.
type Client struct {
	appID      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = productionURL
		if cfg.Sandbox {
			baseURL = sandboxURL
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		appID:      cfg.AppID,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 3),
		logger:     logger.Named("ebay"),
	}
}

func (c *Client) Available() bool {
	return c.appID != ""
}

// SearchActive fetches currently listed items matching the request.
func (c *Client) SearchActive(ctx context.Context, req model.SearchRequest) *model.SearchResult {
	return c.search(ctx, opActive, req, model.StatusActive)
}

// SearchSold fetches completed listings that ended with a sale.
func (c *Client) SearchSold(ctx context.Context, req model.SearchRequest) *model.SearchResult {
	return c.search(ctx, opSold, req, model.StatusCompleted)
}

func (c *Client) search(ctx context.Context, operation string, req model.SearchRequest, fallback model.ListingStatus) *model.SearchResult {
	if !c.Available() {
		return failure("eBay application ID not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return failure(fmt.Sprintf("search canceled: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+c.queryParams(operation, req).Encode(), nil)
	if err != nil {
		return failure(fmt.Sprintf("create request: %v", err))
	}
	c.setHeaders(httpReq, operation)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Timeouts and connection failures land here; both are
		// surfaced identically as a typed failure.
		c.logger.Warn("search request failed", zap.String("operation", operation), zap.Error(err))
		return failure(fmt.Sprintf("marketplace search failed: %v", err))
	}
	defer resp.Body.Close()

	rateInfo := parseRateHeaders(resp.Header)

	reader, err := decodeBody(resp)
	if err != nil {
		return withRate(failure(fmt.Sprintf("read response: %v", err)), rateInfo)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return withRate(failure(fmt.Sprintf("read response: %v", err)), rateInfo)
	}

	if resp.StatusCode != http.StatusOK {
		var env findingEnvelope
		if err := json.Unmarshal(body, &env); err == nil {
			if msg := env.errorText(); msg != "" {
				return withRate(failure(classifyProviderError(msg)), rateInfo)
			}
		}
		return withRate(failure(fmt.Sprintf("marketplace API returned status %d", resp.StatusCode)), rateInfo)
	}

	var env findingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return withRate(failure(fmt.Sprintf("parse response: %v", err)), rateInfo)
	}

	// A 200 can still carry an embedded provider error payload.
	if msg := env.errorText(); msg != "" {
		return withRate(failure(classifyProviderError(msg)), rateInfo)
	}

	result := mapResponse(env, fallback)
	return withRate(result, rateInfo)
}

func (c *Client) queryParams(operation string, req model.SearchRequest) url.Values {
	params := url.Values{}
	params.Set("OPERATION-NAME", operation)
	params.Set("SERVICE-VERSION", "1.13.0")
	params.Set("SECURITY-APPNAME", c.appID)
	params.Set("RESPONSE-DATA-FORMAT", "JSON")
	params.Set("REST-PAYLOAD", "")

	switch {
	case req.ItemID != "":
		params.Set("keywords", req.ItemID)
	case req.UPC != "":
		params.Set("keywords", req.UPC)
	default:
		params.Set("keywords", req.Query)
	}

	if req.CategoryID != "" {
		params.Set("categoryId", req.CategoryID)
	}

	filter := 0
	addFilter := func(name string, values ...string) {
		params.Set(fmt.Sprintf("itemFilter(%d).name", filter), name)
		for i, v := range values {
			params.Set(fmt.Sprintf("itemFilter(%d).value(%d)", filter, i), v)
		}
		filter++
	}

	if req.Condition != "" {
		addFilter("Condition", req.Condition)
	}
	if req.ListingType != "" {
		addFilter("ListingType", req.ListingType)
	}
	if operation == opSold {
		addFilter("SoldItemsOnly", "true")
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	params.Set("paginationInput.entriesPerPage", strconv.Itoa(maxResults))
	if req.PageNumber > 0 {
		params.Set("paginationInput.pageNumber", strconv.Itoa(req.PageNumber))
	}

	sortOrder := req.SortOrder
	if sortOrder == "" {
		sortOrder = "BestMatch"
	}
	params.Set("sortOrder", sortOrder)

	return params
}

func (c *Client) setHeaders(req *http.Request, operation string) {
	req.Header.Set("X-EBAY-SOA-SERVICE-NAME", "FindingService")
	req.Header.Set("X-EBAY-SOA-OPERATION-NAME", operation)
	req.Header.Set("X-EBAY-SOA-SECURITY-APPNAME", c.appID)
	req.Header.Set("X-EBAY-SOA-RESPONSE-DATA-FORMAT", "JSON")
	req.Header.Set("Accept", "application/json")
	// Setting Accept-Encoding by hand disables the transport's automatic
	// gzip handling, so decodeBody must cover both codings.
	req.Header.Set("Accept-Encoding", "gzip, br")
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	}
	return resp.Body, nil
}

// parseRateHeaders surfaces provider rate-limit headers when present so
// callers can make their own backoff decisions. The adapter itself never
// retries.
func parseRateHeaders(h http.Header) *model.RateInfo {
	remaining := h.Get("X-RateLimit-Remaining")
	reset := h.Get("X-RateLimit-Reset")
	if remaining == "" && reset == "" {
		return nil
	}

	info := &model.RateInfo{}
	if n, err := strconv.Atoi(remaining); err == nil {
		info.Remaining = n
	}
	if secs, err := strconv.ParseInt(reset, 10, 64); err == nil {
		info.ResetTime = time.Unix(secs, 0).UTC()
	} else if t, err := time.Parse(time.RFC3339, reset); err == nil {
		info.ResetTime = t
	}
	return info
}

func classifyProviderError(msg string) string {
	if containsRateLimitPhrase(msg) {
		return "marketplace API rate limit exceeded, try again later"
	}
	return "marketplace API error: " + msg
}

func containsRateLimitPhrase(msg string) bool {
	lower := strings.ToLower(msg)
	for _, phrase := range []string{"exceeded the number of times", "rate limit", "call limit"} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func failure(msg string) *model.SearchResult {
	return &model.SearchResult{Success: false, Error: msg}
}

func withRate(result *model.SearchResult, info *model.RateInfo) *model.SearchResult {
	result.RateLimit = info
	return result
}

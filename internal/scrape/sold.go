// Package scrape provides an HTML fallback search provider. When the
// Finding API is unconfigured or rate-limited, the public search results
// page still exposes enough listing data to drive a price analysis.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/omnisell/pricewatch/internal/ebay"
	"github.com/omnisell/pricewatch/internal/model"
)

const (
	searchBaseURL = "https://www.ebay.com/sch/i.html"
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultMaxItems = 50
)

var pricePattern = regexp.MustCompile(`[\d,]+\.?\d*`)

// Provider scrapes the public search results page. It satisfies the same
// interface as the API client so the service can swap it in transparently.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

var _ ebay.SearchProvider = (*Provider)(nil)

// Config configures the scraping provider.
type Config struct {
	// BaseURL overrides the search page, for tests.
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

func New(cfg Config) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = searchBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Provider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		// One request per second; the search page throttles aggressively.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  logger.Named("scrape"),
	}
}

func (p *Provider) Available() bool { return true }

func (p *Provider) SearchActive(ctx context.Context, req model.SearchRequest) *model.SearchResult {
	return p.search(ctx, req, false)
}

func (p *Provider) SearchSold(ctx context.Context, req model.SearchRequest) *model.SearchResult {
	return p.search(ctx, req, true)
}

func (p *Provider) search(ctx context.Context, req model.SearchRequest, sold bool) *model.SearchResult {
	if err := p.limiter.Wait(ctx); err != nil {
		return failure(fmt.Sprintf("search canceled: %v", err))
	}

	params := url.Values{}
	params.Set("_nkw", req.Query)
	if sold {
		params.Set("LH_Sold", "1")
		params.Set("LH_Complete", "1")
	}
	if req.PageNumber > 1 {
		params.Set("_pgn", strconv.Itoa(req.PageNumber))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return failure(fmt.Sprintf("create request: %v", err))
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.Warn("scrape request failed", zap.Error(err))
		return failure(fmt.Sprintf("marketplace search failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failure(fmt.Sprintf("search page returned status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return failure(fmt.Sprintf("parse search page: %v", err))
	}

	status := model.StatusActive
	if sold {
		status = model.StatusCompleted
	}
	items := p.parseTiles(doc, req, status)

	return &model.SearchResult{
		Success:      true,
		Items:        items,
		TotalResults: len(items),
		PageNumber:   maxInt(req.PageNumber, 1),
		TotalPages:   maxInt(req.PageNumber, 1),
	}
}

// parseTiles extracts listing tiles from the results page. Tiles missing a
// parseable price are skipped; everything else defaults field by field.
func (p *Provider) parseTiles(doc *goquery.Document, req model.SearchRequest, status model.ListingStatus) []model.Item {
	maxItems := req.MaxResults
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}

	items := []model.Item{}
	doc.Find(".s-item").EachWithBreak(func(_ int, tile *goquery.Selection) bool {
		title := strings.TrimSpace(tile.Find(".s-item__title").First().Text())
		if title == "" || strings.EqualFold(title, "Shop on eBay") {
			return true // placeholder tile
		}

		price, ok := parsePrice(tile.Find(".s-item__price").First().Text())
		if !ok {
			return true
		}

		item := model.Item{
			Title:    title,
			Price:    price,
			Currency: "USD",
			Status:   status,
		}

		if href, found := tile.Find(".s-item__link").First().Attr("href"); found {
			item.ID = itemIDFromURL(href)
		}
		if shipping, ok := parsePrice(tile.Find(".s-item__shipping").First().Text()); ok {
			item.ShippingCost = shipping
		}
		if endText := strings.TrimSpace(tile.Find(".s-item__ended-date").First().Text()); endText != "" {
			item.EndTime = parseEndedDate(endText)
		}
		if bidText := strings.TrimSpace(tile.Find(".s-item__bids").First().Text()); bidText != "" {
			if n, err := strconv.Atoi(strings.Fields(bidText)[0]); err == nil {
				item.BidCount = n
			}
		}

		items = append(items, item)
		return len(items) < maxItems
	})

	return items
}

// parsePrice pulls the first numeric amount out of strings like
// "$1,234.56", "$12.00 to $15.00", or "+$4.99 shipping".
func parsePrice(text string) (float64, bool) {
	match := pricePattern.FindString(text)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

var itemURLPattern = regexp.MustCompile(`/itm/(?:[^/]+/)?(\d+)`)

func itemIDFromURL(href string) string {
	if m := itemURLPattern.FindStringSubmatch(href); len(m) == 2 {
		return m[1]
	}
	return ""
}

// parseEndedDate handles the "Sold Jan 12, 2026" format on sold tiles.
func parseEndedDate(text string) time.Time {
	text = strings.TrimSpace(strings.TrimPrefix(text, "Sold"))
	if t, err := time.Parse("Jan 2, 2006", text); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func failure(msg string) *model.SearchResult {
	return &model.SearchResult{Success: false, Error: msg}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

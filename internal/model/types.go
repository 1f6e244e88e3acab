package model

import "time"

// ListingStatus describes where a marketplace listing is in its lifecycle.
type ListingStatus string

const (
	StatusActive    ListingStatus = "active"
	StatusCompleted ListingStatus = "completed" // ended with a sale
	StatusEnded     ListingStatus = "ended"     // ended without a sale
)

// Item is the canonical marketplace listing shape produced by the search
// adapters. Items are never persisted individually; only the aggregates
// derived from them are cached.
type Item struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Category     string        `json:"category"`
	Condition    string        `json:"condition"`
	Currency     string        `json:"currency"`
	Price        float64       `json:"price"`
	Status       ListingStatus `json:"status"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      time.Time     `json:"endTime"`
	ShippingCost float64       `json:"shippingCost"`
	WatchCount   int           `json:"watchCount"`
	BidCount     int           `json:"bidCount"`
}

// ListingMetrics aggregates a set of item prices. All fields are zero when
// Count is zero.
type ListingMetrics struct {
	Count     int     `json:"count"`
	Average   float64 `json:"average"`
	Median    float64 `json:"median"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	StdDev    float64 `json:"stdDev"`
	RangeLow  float64 `json:"rangeLow"`  // average - stdDev
	RangeHigh float64 `json:"rangeHigh"` // average + stdDev
}

// PriceBucket is one histogram bin. Min is inclusive, Max exclusive, except
// the final bucket which is inclusive on both ends.
type PriceBucket struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Count      int     `json:"count"`
	Percentage int     `json:"percentage"`
}

// PriceTrendPoint aggregates sold items for one UTC calendar day. Date is
// ISO YYYY-MM-DD, so lexicographic order is chronological order.
type PriceTrendPoint struct {
	Date    string  `json:"date"`
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
	Count   int     `json:"count"`
}

type OutlierDirection string

const (
	OutlierHigh OutlierDirection = "high"
	OutlierLow  OutlierDirection = "low"
)

// PriceOutlier marks an item whose price deviates more than two standard
// deviations from the population mean. Deviation is in multiples of sigma.
type PriceOutlier struct {
	ItemID    string           `json:"itemId"`
	Title     string           `json:"title"`
	Price     float64          `json:"price"`
	Direction OutlierDirection `json:"direction"`
	Deviation float64          `json:"deviation"`
}

type RecommendationType string

const (
	RecommendCompetitive RecommendationType = "competitive"
	RecommendPremium     RecommendationType = "premium"
	RecommendBudget      RecommendationType = "budget"
)

// PriceRecommendation is a suggested listing price with a fixed,
// user-facing rationale string and a confidence in [0,1].
type PriceRecommendation struct {
	Type       RecommendationType `json:"type"`
	Price      float64            `json:"price"`
	Rationale  string             `json:"rationale"`
	Confidence float64            `json:"confidence"`
}

// PriceAnalysis is the aggregate root returned to callers and cached per
// query. Immutable once computed.
type PriceAnalysis struct {
	Query           string                `json:"query"`
	CreatedAt       time.Time             `json:"createdAt"`
	Active          ListingMetrics        `json:"active"`
	Sold            ListingMetrics        `json:"sold"`
	Distribution    []PriceBucket         `json:"distribution"`
	Trends          []PriceTrendPoint     `json:"trends"`
	Outliers        []PriceOutlier        `json:"outliers"`
	Recommendations []PriceRecommendation `json:"recommendations"`
}

// SavedQuery is a query the user explicitly saved for reuse.
type SavedQuery struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	LastUsed  time.Time `json:"lastUsed"`
	UseCount  int       `json:"useCount"`
}

// CacheStats summarizes the cache contents. HitRate is the mean hit count
// per entry, not a 0-1 ratio; the name is kept for compatibility with the
// dashboards that consume it.
type CacheStats struct {
	TotalEntries int        `json:"totalEntries"`
	HitRate      float64    `json:"hitRate"`
	OldestEntry  *time.Time `json:"oldestEntry"`
	NewestEntry  *time.Time `json:"newestEntry"`
}

// ClickThrough is one click recorded against a price-check invocation.
type ClickThrough struct {
	Type      string    `json:"type"`
	Target    string    `json:"target"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceCheckRecord is one analytics record per price-check invocation.
type PriceCheckRecord struct {
	QueryID       string         `json:"queryId"`
	UserID        string         `json:"userId"`
	Query         string         `json:"query"`
	Timestamp     time.Time      `json:"timestamp"`
	ResultCount   int            `json:"resultCount"`
	ProcessingMs  int64          `json:"processingMs"`
	CacheHit      bool           `json:"cacheHit"`
	ClickThroughs []ClickThrough `json:"clickThroughs"`
}

// QueryCount pairs a query with its invocation count.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// AnalyticsSummary is the rollup over all price-check records.
type AnalyticsSummary struct {
	TotalChecks      int          `json:"totalChecks"`
	AvgProcessingMs  float64      `json:"avgProcessingMs"`
	CacheHitRatio    float64      `json:"cacheHitRatio"`
	TopQueries       []QueryCount `json:"topQueries"`
	ClickThroughRate float64      `json:"clickThroughRate"`
	From             time.Time    `json:"from"`
	To               time.Time    `json:"to"`
}

// SearchRequest is a normalized marketplace search.
type SearchRequest struct {
	Query       string
	ItemID      string
	UPC         string
	CategoryID  string
	Condition   string
	ListingType string
	SortOrder   string
	MaxResults  int
	PageNumber  int
}

// RateInfo carries provider rate-limit headers when present, for
// caller-side backoff decisions.
type RateInfo struct {
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"resetTime"`
}

// SearchResult is the typed outcome of one provider call. Transport and
// provider errors populate Success=false and Error instead of propagating;
// nothing escapes the adapter boundary as a panic.
type SearchResult struct {
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	Items        []Item    `json:"items"`
	TotalResults int       `json:"totalResults"`
	PageNumber   int       `json:"pageNumber"`
	TotalPages   int       `json:"totalPages"`
	HasMorePages bool      `json:"hasMorePages"`
	RateLimit    *RateInfo `json:"rateLimit,omitempty"`
}

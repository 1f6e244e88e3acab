// Package pricecheck composes the search adapter, statistics engine, price
// cache, and analytics tracker into the price-check pipeline: look up the
// cache, fetch active and sold listings on a miss, analyze, cache, and log.
package pricecheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omnisell/pricewatch/internal/analytics"
	"github.com/omnisell/pricewatch/internal/ebay"
	"github.com/omnisell/pricewatch/internal/model"
	"github.com/omnisell/pricewatch/internal/pricecache"
	"github.com/omnisell/pricewatch/internal/stats"
)

// QueryError reports an invalid query before any network or storage
// access happens.
type QueryError struct {
	Kind ebay.QueryKind
}

func (e *QueryError) Error() string {
	switch e.Kind {
	case ebay.QueryEmpty:
		return "search query is empty"
	case ebay.QueryTooShort:
		return "search query must be at least 2 characters"
	case ebay.QueryTooLong:
		return "search query must be at most 100 characters"
	}
	return fmt.Sprintf("invalid search query (%s)", e.Kind)
}

// IsQueryError reports whether err is a query validation error.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// Options tunes one price check.
type Options struct {
	CategoryID  string
	Condition   string
	ListingType string
	SortOrder   string
	MaxResults  int
	PageNumber  int
	// TTL overrides the service cache TTL for this check.
	TTL    time.Duration
	UserID string
}

// CheckResult is the outcome of one price check. QueryKind is advisory
// metadata for the caller's routing logic.
type CheckResult struct {
	Analysis  *model.PriceAnalysis
	CacheHit  bool
	QueryKind ebay.QueryKind
	QueryID   string
}

// Service is the outbound surface the dashboards and automation consume.
// Construct one per process with explicit dependencies.
type Service struct {
	provider ebay.SearchProvider
	cache    *pricecache.Store
	tracker  *analytics.Tracker
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(provider ebay.SearchProvider, cache *pricecache.Store, tracker *analytics.Tracker, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = pricecache.DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider: provider,
		cache:    cache,
		tracker:  tracker,
		ttl:      ttl,
		logger:   logger.Named("pricecheck"),
		now:      time.Now,
	}
}

// CheckPrice runs the full pipeline for query. The cache is consulted
// first; only a miss or expired entry triggers the two provider calls.
// Cache and analytics failures never fail the check.
func (s *Service) CheckPrice(ctx context.Context, query string, opts Options) (*CheckResult, error) {
	kind := ebay.ClassifyQuery(query)
	if !kind.Searchable() {
		return nil, &QueryError{Kind: kind}
	}

	started := s.now()
	queryID := uuid.NewString()

	if analysis, found, err := s.cache.Get(ctx, query); found {
		s.record(ctx, queryID, query, opts.UserID, started, resultCount(analysis), true)
		if err := s.cache.AddHistory(ctx, query); err != nil {
			s.logger.Warn("history update failed", zap.Error(err))
		}
		return &CheckResult{Analysis: analysis, CacheHit: true, QueryKind: kind, QueryID: queryID}, nil
	} else if err != nil {
		// Degraded cache: fall through to a fresh fetch.
		s.logger.Warn("cache degraded, fetching", zap.Error(err))
	}

	req := s.buildRequest(query, kind, opts)

	activeResult := s.provider.SearchActive(ctx, req)
	if !activeResult.Success {
		return nil, fmt.Errorf("price check failed: %s", activeResult.Error)
	}
	soldResult := s.provider.SearchSold(ctx, req)
	if !soldResult.Success {
		return nil, fmt.Errorf("price check failed: %s", soldResult.Error)
	}

	analysis := stats.Analyze(query, activeResult.Items, soldResult.Items, s.now())

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.cache.Set(ctx, query, analysis, ttl); err != nil {
		s.logger.Warn("caching analysis failed", zap.String("query", query), zap.Error(err))
	}

	// History and analytics are independent of each other; neither can
	// fail the check.
	if err := s.cache.AddHistory(ctx, query); err != nil {
		s.logger.Warn("history update failed", zap.Error(err))
	}
	s.record(ctx, queryID, query, opts.UserID, started, len(activeResult.Items)+len(soldResult.Items), false)

	return &CheckResult{Analysis: &analysis, CacheHit: false, QueryKind: kind, QueryID: queryID}, nil
}

func (s *Service) buildRequest(query string, kind ebay.QueryKind, opts Options) model.SearchRequest {
	req := model.SearchRequest{
		Query:       query,
		CategoryID:  opts.CategoryID,
		Condition:   opts.Condition,
		ListingType: opts.ListingType,
		SortOrder:   opts.SortOrder,
		MaxResults:  opts.MaxResults,
		PageNumber:  opts.PageNumber,
	}
	switch kind {
	case ebay.QueryItemID:
		req.ItemID = query
	case ebay.QueryUPC:
		req.UPC = query
	}
	return req
}

func (s *Service) record(ctx context.Context, queryID, query, userID string, started time.Time, results int, cacheHit bool) {
	s.tracker.Track(ctx, model.PriceCheckRecord{
		QueryID:      queryID,
		UserID:       userID,
		Query:        query,
		Timestamp:    started,
		ResultCount:  results,
		ProcessingMs: s.now().Sub(started).Milliseconds(),
		CacheHit:     cacheHit,
	})
}

func resultCount(analysis *model.PriceAnalysis) int {
	if analysis == nil {
		return 0
	}
	return analysis.Active.Count + analysis.Sold.Count
}

// GetCachedAnalysis returns the cached analysis for query, or nil on a
// miss. Storage failures degrade to a miss.
func (s *Service) GetCachedAnalysis(ctx context.Context, query string) *model.PriceAnalysis {
	analysis, found, _ := s.cache.Get(ctx, query)
	if !found {
		return nil
	}
	return analysis
}

// CacheAnalysis stores an analysis fire-and-forget; failures are logged
// and swallowed.
func (s *Service) CacheAnalysis(ctx context.Context, query string, analysis model.PriceAnalysis, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.cache.Set(ctx, query, analysis, ttl); err != nil {
		s.logger.Warn("caching analysis failed", zap.String("query", query), zap.Error(err))
	}
}

func (s *Service) GetSearchHistory(ctx context.Context) []string {
	return s.cache.History(ctx)
}

func (s *Service) AddToSearchHistory(ctx context.Context, query string) {
	if err := s.cache.AddHistory(ctx, query); err != nil {
		s.logger.Warn("history update failed", zap.Error(err))
	}
}

func (s *Service) GetSavedQueries(ctx context.Context) []model.SavedQuery {
	return s.cache.SavedQueries(ctx)
}

func (s *Service) SaveQuery(ctx context.Context, query, name string) (model.SavedQuery, error) {
	return s.cache.SaveQuery(ctx, query, name)
}

// UpdateQueryUsage marks a saved query used. Unknown ids are a no-op.
func (s *Service) UpdateQueryUsage(ctx context.Context, id string) {
	if err := s.cache.MarkUsed(ctx, id); err != nil {
		s.logger.Warn("saved query usage update failed", zap.String("id", id), zap.Error(err))
	}
}

func (s *Service) GetCacheStats(ctx context.Context) model.CacheStats {
	return s.cache.Stats(ctx)
}

func (s *Service) ClearAllCache(ctx context.Context) error {
	return s.cache.ClearAll(ctx)
}

func (s *Service) TrackPriceCheck(ctx context.Context, rec model.PriceCheckRecord) {
	s.tracker.Track(ctx, rec)
}

func (s *Service) TrackClickThrough(ctx context.Context, queryID, clickType, target string) {
	s.tracker.TrackClickThrough(ctx, queryID, clickType, target)
}

func (s *Service) GetAnalyticsSummary(ctx context.Context) model.AnalyticsSummary {
	return s.tracker.Summary(ctx)
}

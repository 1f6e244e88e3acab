package pricecheck

import (
	"context"
	"testing"
	"time"

	"github.com/omnisell/pricewatch/internal/analytics"
	"github.com/omnisell/pricewatch/internal/ebay"
	"github.com/omnisell/pricewatch/internal/model"
	"github.com/omnisell/pricewatch/internal/pricecache"
	"github.com/omnisell/pricewatch/internal/storage"
)

func newTestService() (*Service, *ebay.MockProvider, storage.KV) {
	kv := storage.NewMemory()
	provider := ebay.NewMockProvider()
	cache := pricecache.NewStore(kv, nil)
	tracker := analytics.NewTracker(kv, 0, nil)
	return NewService(provider, cache, tracker, time.Hour, nil), provider, kv
}

func soldItems() []model.Item {
	end := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)
	return []model.Item{
		{ID: "s1", Title: "sold one", Price: 90, Status: model.StatusCompleted, EndTime: end},
		{ID: "s2", Title: "sold two", Price: 110, Status: model.StatusCompleted, EndTime: end},
	}
}

func activeItems() []model.Item {
	return []model.Item{
		{ID: "a1", Title: "active one", Price: 100, Status: model.StatusActive},
		{ID: "a2", Title: "active two", Price: 120, Status: model.StatusActive},
		{ID: "a3", Title: "active three", Price: 140, Status: model.StatusActive},
	}
}

func TestCheckPrice_MissThenHit(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService()
	provider.SetListings(activeItems(), soldItems())

	first, err := svc.CheckPrice(ctx, "vintage camera", Options{})
	if err != nil {
		t.Fatalf("CheckPrice: %v", err)
	}
	if first.CacheHit {
		t.Error("first check must be a miss")
	}
	if first.QueryKind != ebay.QueryText {
		t.Errorf("QueryKind = %s, want text", first.QueryKind)
	}
	if first.Analysis.Active.Count != 3 || first.Analysis.Sold.Count != 2 {
		t.Errorf("analysis counts = %d/%d", first.Analysis.Active.Count, first.Analysis.Sold.Count)
	}
	if len(first.Analysis.Recommendations) != 3 {
		t.Errorf("recommendations = %d, want 3", len(first.Analysis.Recommendations))
	}
	callsAfterFirst := provider.Calls()

	second, err := svc.CheckPrice(ctx, "vintage camera", Options{})
	if err != nil {
		t.Fatalf("second CheckPrice: %v", err)
	}
	if !second.CacheHit {
		t.Error("second check must be served from cache")
	}
	if provider.Calls() != callsAfterFirst {
		t.Errorf("cache hit must not re-fetch: calls %d -> %d", callsAfterFirst, provider.Calls())
	}
	if second.Analysis.Active.Average != first.Analysis.Active.Average {
		t.Error("cached analysis differs from computed analysis")
	}
}

func TestCheckPrice_ValidationRejectsBeforeFetch(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService()

	for _, query := range []string{"", " ", "x"} {
		if _, err := svc.CheckPrice(ctx, query, Options{}); !IsQueryError(err) {
			t.Errorf("CheckPrice(%q) error = %v, want QueryError", query, err)
		}
	}
	if provider.Calls() != 0 {
		t.Errorf("invalid queries must not reach the provider, got %d calls", provider.Calls())
	}
}

func TestCheckPrice_ProviderFailure(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService()
	provider.SetError("marketplace API rate limit exceeded, try again later")

	_, err := svc.CheckPrice(ctx, "vintage camera", Options{})
	if err == nil {
		t.Fatal("expected error when the provider fails")
	}
	if IsQueryError(err) {
		t.Error("provider failure must not look like a validation error")
	}
}

func TestCheckPrice_UpdatesHistoryAndAnalytics(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService()
	provider.SetListings(activeItems(), soldItems())

	svc.CheckPrice(ctx, "camera", Options{UserID: "user-1"})
	svc.CheckPrice(ctx, "lens", Options{UserID: "user-1"})
	svc.CheckPrice(ctx, "camera", Options{UserID: "user-1"}) // cache hit

	history := svc.GetSearchHistory(ctx)
	if len(history) != 2 || history[0] != "camera" || history[1] != "lens" {
		t.Errorf("history = %v, want [camera lens]", history)
	}

	summary := svc.GetAnalyticsSummary(ctx)
	if summary.TotalChecks != 3 {
		t.Errorf("TotalChecks = %d, want 3", summary.TotalChecks)
	}
	if want := 1.0 / 3.0; summary.CacheHitRatio != want {
		t.Errorf("CacheHitRatio = %v, want %v", summary.CacheHitRatio, want)
	}
	if summary.TopQueries[0].Query != "camera" || summary.TopQueries[0].Count != 2 {
		t.Errorf("top query = %+v", summary.TopQueries[0])
	}
}

func TestCheckPrice_ItemIDRouting(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService()
	provider.SetListings(activeItems(), soldItems())

	result, err := svc.CheckPrice(ctx, "123456789012", Options{})
	if err != nil {
		t.Fatalf("CheckPrice: %v", err)
	}
	if result.QueryKind != ebay.QueryItemID {
		t.Errorf("QueryKind = %s, want item_id (takes precedence over upc)", result.QueryKind)
	}
}

func TestCacheAnalysisAndGetCachedAnalysis(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	if got := svc.GetCachedAnalysis(ctx, "camera"); got != nil {
		t.Errorf("cold cache returned %+v", got)
	}

	analysis := model.PriceAnalysis{Query: "camera", Active: model.ListingMetrics{Count: 1, Average: 10}}
	svc.CacheAnalysis(ctx, "camera", analysis, 0)

	got := svc.GetCachedAnalysis(ctx, "camera")
	if got == nil || got.Active.Average != 10 {
		t.Errorf("GetCachedAnalysis = %+v", got)
	}
}

func TestSavedQueryRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	sq, err := svc.SaveQuery(ctx, "vintage camera", "Cam Search")
	if err != nil {
		t.Fatalf("SaveQuery: %v", err)
	}

	svc.UpdateQueryUsage(ctx, sq.ID)
	svc.UpdateQueryUsage(ctx, "does-not-exist") // silent no-op

	saved := svc.GetSavedQueries(ctx)
	if len(saved) != 1 || saved[0].UseCount != 1 {
		t.Errorf("saved = %+v, want one entry with UseCount 1", saved)
	}
}

func TestClearAllCache(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService()
	provider.SetListings(activeItems(), soldItems())

	svc.CheckPrice(ctx, "camera", Options{})
	if stats := svc.GetCacheStats(ctx); stats.TotalEntries != 1 {
		t.Fatalf("stats before clear = %+v", stats)
	}

	if err := svc.ClearAllCache(ctx); err != nil {
		t.Fatalf("ClearAllCache: %v", err)
	}
	if stats := svc.GetCacheStats(ctx); stats.TotalEntries != 0 {
		t.Errorf("stats after clear = %+v", stats)
	}
}

func TestTrackClickThroughFlow(t *testing.T) {
	ctx := context.Background()
	svc, provider, _ := newTestService()
	provider.SetListings(activeItems(), soldItems())

	result, err := svc.CheckPrice(ctx, "camera", Options{})
	if err != nil {
		t.Fatal(err)
	}

	svc.TrackClickThrough(ctx, result.QueryID, "listing", "item-a1")

	summary := svc.GetAnalyticsSummary(ctx)
	if summary.ClickThroughRate != 1 {
		t.Errorf("ClickThroughRate = %v, want 1", summary.ClickThroughRate)
	}
}

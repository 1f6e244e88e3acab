// Package pricecache persists price analyses under normalized query keys
// with TTL expiry, plus the two small bounded lists that ride along with
// the cache: search history and saved queries.
//
// Every operation is fail-soft: a storage failure degrades to a miss or a
// no-op and is reported through the error return, which callers on the
// request path are free to ignore. Caching must never break a price check.
package pricecache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/omnisell/pricewatch/internal/model"
	"github.com/omnisell/pricewatch/internal/storage"
)

const (
	// KeyPrefix namespaces cache entries within the KV store. The
	// prefix_normalizedQuery scheme is what makes cache keys idempotent
	// across string-equal queries; changing it orphans existing entries.
	KeyPrefix = "price_check_cache_"

	historyKey    = "price_check_history"
	savedKey      = "price_check_saved_queries"
	maxHistory    = 20
	DefaultTTL    = time.Hour
	refreshWindow = 10 * time.Minute
)

// Entry wraps one cached analysis with its bookkeeping. HitCount is
// incremented and the entry rewritten on every unexpired read.
type Entry struct {
	ID        string              `json:"id"`
	Query     string              `json:"query"`
	Analysis  model.PriceAnalysis `json:"analysis"`
	CreatedAt time.Time           `json:"createdAt"`
	ExpiresAt time.Time           `json:"expiresAt"`
	HitCount  int                 `json:"hitCount"`
}

// Store is the TTL cache over a KV backend. Construct one per process;
// there are no package-level singletons so tests can run isolated
// instances.
type Store struct {
	kv     storage.KV
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(kv storage.KV, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		kv:     kv,
		logger: logger.Named("pricecache"),
		now:    time.Now,
	}
}

// NormalizeQuery derives the canonical key fragment for a query: trimmed,
// lowercased, internal whitespace collapsed to single underscores.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), "_")
}

// CacheKey returns the storage key for a query.
func CacheKey(query string) string {
	return KeyPrefix + NormalizeQuery(query)
}

// Get returns the cached analysis for query. Expired entries are evicted
// on read and reported as a miss; there is no background sweep. On a hit
// the entry's hit count is incremented and rewritten. A storage failure
// degrades to a miss with a non-nil error for callers that want to
// observe it.
func (s *Store) Get(ctx context.Context, query string) (*model.PriceAnalysis, bool, error) {
	key := CacheKey(query)

	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("cache read: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		s.logger.Warn("cache entry corrupt, evicting", zap.String("key", key), zap.Error(err))
		_ = s.kv.Remove(ctx, key)
		return nil, false, nil
	}

	if s.now().After(entry.ExpiresAt) {
		if err := s.kv.Remove(ctx, key); err != nil {
			s.logger.Warn("expired entry eviction failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false, nil
	}

	entry.HitCount++
	if data, err := json.Marshal(entry); err == nil {
		if err := s.kv.Set(ctx, key, string(data)); err != nil {
			s.logger.Warn("hit count update failed", zap.String("key", key), zap.Error(err))
		}
	}

	return &entry.Analysis, true, nil
}

// Set caches an analysis under the query key with the given TTL
// (DefaultTTL when ttl <= 0). Overwrites any previous entry for the same
// normalized query.
func (s *Store) Set(ctx context.Context, query string, analysis model.PriceAnalysis, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now()

	entry := Entry{
		ID:        NormalizeQuery(query),
		Query:     query,
		Analysis:  analysis,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		HitCount:  0,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("cache entry marshal failed", zap.String("query", query), zap.Error(err))
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := s.kv.Set(ctx, CacheKey(query), string(data)); err != nil {
		s.logger.Warn("cache write failed", zap.String("query", query), zap.Error(err))
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}

// Fresh reports whether an unexpired entry exists for query that is not
// due to expire within window. It never bumps the hit count, so the
// refresh scheduler can probe without skewing stats.
func (s *Store) Fresh(ctx context.Context, query string, window time.Duration) bool {
	if window <= 0 {
		window = refreshWindow
	}
	raw, found, err := s.kv.Get(ctx, CacheKey(query))
	if err != nil || !found {
		return false
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return false
	}
	return s.now().Add(window).Before(entry.ExpiresAt)
}

// Stats scans the cache keyspace and aggregates. HitRate is the mean hit
// count per entry (sum of hits over entry count), not a 0-1 ratio; the
// name matches what the dashboards already display.
func (s *Store) Stats(ctx context.Context) model.CacheStats {
	stats := model.CacheStats{}

	keys, err := s.cacheKeys(ctx)
	if err != nil {
		s.logger.Warn("cache stats scan failed", zap.Error(err))
		return stats
	}

	totalHits := 0
	for _, key := range keys {
		raw, found, err := s.kv.Get(ctx, key)
		if err != nil || !found {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}

		stats.TotalEntries++
		totalHits += entry.HitCount

		created := entry.CreatedAt
		if stats.OldestEntry == nil || created.Before(*stats.OldestEntry) {
			t := created
			stats.OldestEntry = &t
		}
		if stats.NewestEntry == nil || created.After(*stats.NewestEntry) {
			t := created
			stats.NewestEntry = &t
		}
	}

	if stats.TotalEntries > 0 {
		stats.HitRate = float64(totalHits) / float64(stats.TotalEntries)
	}
	return stats
}

// ClearAll deletes every cache entry in one batch. History and saved
// queries are left untouched.
func (s *Store) ClearAll(ctx context.Context) error {
	keys, err := s.cacheKeys(ctx)
	if err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.kv.RemoveMany(ctx, keys); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func (s *Store) cacheKeys(ctx context.Context) ([]string, error) {
	all, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(all))
	for _, k := range all {
		if strings.HasPrefix(k, KeyPrefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

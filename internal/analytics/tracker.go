// Package analytics keeps an append-only log of price-check invocations
// and click-throughs with bounded retention, and rolls it up into summary
// figures. Analytics are auxiliary: every persistence failure is caught,
// logged, and degraded to a no-op or empty default.
package analytics

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/omnisell/pricewatch/internal/model"
	"github.com/omnisell/pricewatch/internal/storage"
)

const (
	recordsKey = "price_check_analytics"

	// DefaultRetention caps the stored record count; the oldest records
	// are evicted first.
	DefaultRetention = 1000

	topQueryLimit = 10
)

// Tracker records price-check analytics into a KV store.
type Tracker struct {
	kv        storage.KV
	logger    *zap.Logger
	retention int
	now       func() time.Time
}

func NewTracker(kv storage.KV, retention int, logger *zap.Logger) *Tracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		kv:        kv,
		logger:    logger.Named("analytics"),
		retention: retention,
		now:       time.Now,
	}
}

// Track appends one record. When the log exceeds the retention cap the
// records are ordered newest-first and truncated, dropping the oldest.
func (t *Tracker) Track(ctx context.Context, rec model.PriceCheckRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = t.now()
	}
	if rec.ClickThroughs == nil {
		rec.ClickThroughs = []model.ClickThrough{}
	}

	records := t.load(ctx)
	records = append(records, rec)

	if len(records) > t.retention {
		sort.Slice(records, func(i, j int) bool {
			return records[i].Timestamp.After(records[j].Timestamp)
		})
		records = records[:t.retention]
	}

	t.persist(ctx, records)
}

// TrackClickThrough appends a click event to the record matching queryID.
// An unknown queryID is a no-op.
func (t *Tracker) TrackClickThrough(ctx context.Context, queryID, clickType, target string) {
	records := t.load(ctx)

	for i := range records {
		if records[i].QueryID != queryID {
			continue
		}
		records[i].ClickThroughs = append(records[i].ClickThroughs, model.ClickThrough{
			Type:      clickType,
			Target:    target,
			Timestamp: t.now(),
		})
		t.persist(ctx, records)
		return
	}
}

// Summary rolls up all records. With no records it returns zeros with the
// time range pinned to now rather than dividing by zero.
func (t *Tracker) Summary(ctx context.Context) model.AnalyticsSummary {
	records := t.load(ctx)

	if len(records) == 0 {
		now := t.now()
		return model.AnalyticsSummary{
			TopQueries: []model.QueryCount{},
			From:       now,
			To:         now,
		}
	}

	// Chronological order makes first-seen tie-breaking deterministic.
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	var totalMs int64
	hits := 0
	clicks := 0
	counts := map[string]int{}
	firstSeen := map[string]int{}

	for i, rec := range records {
		totalMs += rec.ProcessingMs
		if rec.CacheHit {
			hits++
		}
		clicks += len(rec.ClickThroughs)
		if _, seen := firstSeen[rec.Query]; !seen {
			firstSeen[rec.Query] = i
		}
		counts[rec.Query]++
	}

	top := make([]model.QueryCount, 0, len(counts))
	for q, c := range counts {
		top = append(top, model.QueryCount{Query: q, Count: c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return firstSeen[top[i].Query] < firstSeen[top[j].Query]
	})
	if len(top) > topQueryLimit {
		top = top[:topQueryLimit]
	}

	n := float64(len(records))
	return model.AnalyticsSummary{
		TotalChecks:      len(records),
		AvgProcessingMs:  float64(totalMs) / n,
		CacheHitRatio:    float64(hits) / n,
		TopQueries:       top,
		ClickThroughRate: float64(clicks) / n,
		From:             records[0].Timestamp,
		To:               records[len(records)-1].Timestamp,
	}
}

func (t *Tracker) load(ctx context.Context) []model.PriceCheckRecord {
	raw, found, err := t.kv.Get(ctx, recordsKey)
	if err != nil {
		t.logger.Warn("analytics read failed", zap.Error(err))
		return nil
	}
	if !found {
		return nil
	}

	var records []model.PriceCheckRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		t.logger.Warn("analytics log corrupt", zap.Error(err))
		return nil
	}
	return records
}

func (t *Tracker) persist(ctx context.Context, records []model.PriceCheckRecord) {
	data, err := json.Marshal(records)
	if err != nil {
		t.logger.Warn("analytics marshal failed", zap.Error(err))
		return
	}
	if err := t.kv.Set(ctx, recordsKey, string(data)); err != nil {
		t.logger.Warn("analytics write failed", zap.Error(err))
	}
}

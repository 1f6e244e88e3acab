// Package refresh keeps saved queries warm: on a schedule it re-runs each
// saved query whose cached analysis is missing or about to expire, so the
// dashboard opens on fresh numbers instead of a cold cache.
package refresh

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/omnisell/pricewatch/internal/pricecache"
	"github.com/omnisell/pricewatch/internal/pricecheck"
)

// Refresher schedules saved-query refreshes with cron.
type Refresher struct {
	service *pricecheck.Service
	cache   *pricecache.Store
	cron    *cron.Cron
	window  time.Duration
	logger  *zap.Logger
}

func New(service *pricecheck.Service, cache *pricecache.Store, window time.Duration, logger *zap.Logger) *Refresher {
	if window <= 0 {
		window = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		service: service,
		cache:   cache,
		cron:    cron.New(),
		window:  window,
		logger:  logger.Named("refresh"),
	}
}

// Start registers the job under the given cron schedule and starts the
// scheduler.
func (r *Refresher) Start(schedule string) error {
	_, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		r.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce refreshes every saved query with a stale or missing cache
// entry. Individual failures are logged and skipped; one broken query
// must not starve the rest.
func (r *Refresher) RunOnce(ctx context.Context) {
	saved := r.cache.SavedQueries(ctx)
	refreshed := 0

	for _, sq := range saved {
		if ctx.Err() != nil {
			return
		}
		if r.cache.Fresh(ctx, sq.Query, r.window) {
			continue
		}
		if _, err := r.service.CheckPrice(ctx, sq.Query, pricecheck.Options{}); err != nil {
			r.logger.Warn("saved query refresh failed",
				zap.String("query", sq.Query), zap.Error(err))
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		r.logger.Info("saved queries refreshed", zap.Int("count", refreshed))
	}
}

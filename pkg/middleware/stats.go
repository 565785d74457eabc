package middleware

import (
	"context"
	"time"

	"github.com/hyp3rd/hyperfetch"
	"github.com/hyp3rd/hyperfetch/pkg/models"
	"github.com/hyp3rd/hyperfetch/pkg/stats"
)

// Statistics recorded by StatsCollectorMiddleware.
const (
	URLOpenCount    stats.Stat = "hyperfetch_urlopen_count"
	URLOpenErrors   stats.Stat = "hyperfetch_urlopen_errors"
	URLOpenDuration stats.Stat = "hyperfetch_urlopen_duration"
)

// StatsCollectorMiddleware is a middleware that collects stats. It can and should re-use the same stats collector as the HyperFetch.
// Must implement the hyperfetch.Service interface.
type StatsCollectorMiddleware struct {
	next           hyperfetch.Service
	statsCollector stats.ICollector
}

// NewStatsCollectorMiddleware returns a new StatsCollectorMiddleware.
func NewStatsCollectorMiddleware(next hyperfetch.Service, statsCollector stats.ICollector) hyperfetch.Service {
	return &StatsCollectorMiddleware{next: next, statsCollector: statsCollector}
}

// URLOpen collects stats for the URLOpen method.
func (mw StatsCollectorMiddleware) URLOpen(ctx context.Context, req *models.Request) (*models.Response, error) {
	start := time.Now()

	resp, err := mw.next.URLOpen(ctx, req)

	mw.statsCollector.Timing(URLOpenDuration, time.Since(start).Nanoseconds())
	mw.statsCollector.Incr(URLOpenCount, 1)

	if err != nil {
		mw.statsCollector.Incr(URLOpenErrors, 1)
	}

	return resp, err
}

// CacheKey passes through.
func (mw StatsCollectorMiddleware) CacheKey(rawURL string) string {
	return mw.next.CacheKey(rawURL)
}

// GetStats returns the stats of the wrapped service.
func (mw StatsCollectorMiddleware) GetStats() stats.Stats {
	return mw.next.GetStats()
}

// Stop passes through.
func (mw StatsCollectorMiddleware) Stop(ctx context.Context) error {
	return mw.next.Stop(ctx)
}

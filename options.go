package hyperfetch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyp3rd/hyperfetch/pkg/cacher"
	"github.com/hyp3rd/hyperfetch/pkg/fetcher"
	"github.com/hyp3rd/hyperfetch/pkg/limiter"
	"github.com/hyp3rd/hyperfetch/pkg/stats"
)

// Option is a function type that can be used to configure the `HyperFetch` struct.
type Option func(*HyperFetch)

// ApplyOptions applies the given options to hf.
func ApplyOptions(hf *HyperFetch, options ...Option) {
	for _, option := range options {
		option(hf)
	}
}

// WithCacher sets the cache store adapter. Use cacher.NewDisabled for a live-only pipeline.
func WithCacher(c cacher.Cacher) Option {
	return func(hf *HyperFetch) {
		if c != nil {
			hf.cacher = c
		}
	}
}

// WithFetcher sets the component performing live HTTP calls.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(hf *HyperFetch) {
		if f != nil {
			hf.fetcher = f
		}
	}
}

// WithRateLimiter sets the admission strategy.
func WithRateLimiter(l limiter.RateLimiter) Option {
	return func(hf *HyperFetch) {
		if l != nil {
			hf.limiter = l
		}
	}
}

// WithStatsCollector replaces the default stats collector.
func WithStatsCollector(c stats.ICollector) Option {
	return func(hf *HyperFetch) {
		if c != nil {
			hf.stats = c
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(hf *HyperFetch) {
		hf.logger = logger
	}
}

// WithPollInterval sets how long an over-budget request sleeps between two budget checks.
// Non-positive values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(hf *HyperFetch) {
		if d > 0 {
			hf.pollInterval = d
		}
	}
}

// WithCloser registers a function run by Stop, in registration order.
func WithCloser(fn func(ctx context.Context) error) Option {
	return func(hf *HyperFetch) {
		if fn != nil {
			hf.closers = append(hf.closers, fn)
		}
	}
}

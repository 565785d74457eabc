// Package hyperfetch serves HTTP fetches through a shared response cache and a
// per-host byte budget.
//
// Every URLOpen call walks the same pipeline: validate the request, look the
// URL up in the cache store, and on a miss wait until the host is back under
// its byte budget, fetch the resource live, store it and record the bytes it
// cost. Only validation, the wait and the live fetch can fail the call; cache
// and counter store trouble is logged, counted and otherwise ignored.
package hyperfetch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyp3rd/ewrap"
	"github.com/rs/zerolog"

	"github.com/hyp3rd/hyperfetch/internal/constants"
	"github.com/hyp3rd/hyperfetch/internal/sentinel"
	"github.com/hyp3rd/hyperfetch/internal/urlutil"
	"github.com/hyp3rd/hyperfetch/pkg/cacher"
	"github.com/hyp3rd/hyperfetch/pkg/failure"
	"github.com/hyp3rd/hyperfetch/pkg/fetcher"
	"github.com/hyp3rd/hyperfetch/pkg/limiter"
	"github.com/hyp3rd/hyperfetch/pkg/models"
	"github.com/hyp3rd/hyperfetch/pkg/stats"
)

// HyperFetch is the fetch orchestrator. It holds no per-request state and is
// safe for concurrent use; coordination between calls happens in the stores.
type HyperFetch struct {
	cacher       cacher.Cacher
	fetcher      fetcher.Fetcher
	limiter      limiter.RateLimiter
	stats        stats.ICollector
	logger       zerolog.Logger
	pollInterval time.Duration
	closers      []func(ctx context.Context) error
}

// New builds an orchestrator. Without options it uses a process-local cache,
// a process-local sliding window with the default budget and a net/http fetcher.
func New(options ...Option) (*HyperFetch, error) {
	hf := &HyperFetch{
		stats:        stats.NewCollector(),
		logger:       zerolog.Nop(),
		pollInterval: constants.DefaultPollInterval,
	}

	ApplyOptions(hf, options...)

	if hf.cacher == nil {
		c, err := cacher.NewInMemory()
		if err != nil {
			return nil, ewrap.Wrap(err, "creating default cacher")
		}

		hf.cacher = c
	}

	if hf.fetcher == nil {
		hf.fetcher = fetcher.New()
	}

	if hf.limiter == nil {
		l, err := limiter.NewSlidingWindow(limiter.NewInMemoryCounterStore(nil))
		if err != nil {
			return nil, ewrap.Wrap(err, "creating default rate limiter")
		}

		hf.limiter = l
	}

	return hf, nil
}

// URLOpen returns the response for req.
//
// A cache hit is returned as stored, with FromCache set, and never touches the
// rate limiter. A miss, or a request with NoCache, waits for the host budget,
// fetches live and stores the result even when NoCache is set.
//
// Errors match ErrInvalidRequest, ErrBadMethod, ErrCanceled or ErrFetch.
func (hf *HyperFetch) URLOpen(ctx context.Context, req *models.Request) (*models.Response, error) {
	method, err := validate(req).Unwrap()
	if err != nil {
		return nil, err
	}

	logger := hf.logger.With().
		Str("request_id", uuid.NewString()).
		Str("url", req.URL).
		Str("method", method).
		Logger()

	if !req.NoCache {
		cached := hf.lookup(ctx, req, &logger)
		if cached.Value != nil {
			hf.stats.Incr(stats.CacheHits, 1)
			logger.Debug().Msg("served from cache")

			return cached.Value, nil
		}

		hf.stats.Incr(stats.CacheMisses, 1)
	}

	err = hf.waitForBudget(ctx, req, &logger)
	if err != nil {
		return nil, err
	}

	resp, err := hf.fetchLive(ctx, req, method, &logger).Unwrap()
	if err != nil {
		return nil, err
	}

	// the fetch already happened: bookkeeping must not be lost to a caller
	// that gives up now. Each store call carries its own timeout.
	bookkeeping := context.WithoutCancel(ctx)

	stored := hf.store(bookkeeping, req, resp)
	if stored.IsDegraded() {
		hf.stats.Incr(stats.CacheWriteErrors, 1)
		logger.Warn().Err(stored.Err).Msg("cache write failed")
	}

	recorded := hf.record(bookkeeping, req, resp.ContentLength())
	if recorded.IsDegraded() {
		hf.stats.Incr(stats.RateStoreErrors, 1)
		logger.Debug().Err(recorded.Err).Msg("rate record failed")
	}

	return resp, nil
}

// CacheKey returns the cache store key for rawURL.
func (hf *HyperFetch) CacheKey(rawURL string) string {
	return hf.cacher.Key(rawURL)
}

// GetStats returns the pipeline statistics.
func (hf *HyperFetch) GetStats() stats.Stats {
	return hf.stats.GetStats()
}

// Stop runs the registered closers and returns the first error.
func (hf *HyperFetch) Stop(ctx context.Context) error {
	var first error

	for _, closeFn := range hf.closers {
		err := closeFn(ctx)
		if err != nil && first == nil {
			first = err
		}
	}

	hf.closers = nil

	return first
}

// validate rejects a request before any store I/O and returns the normalized verb.
// Rejections are fatal.
func validate(req *models.Request) failure.Result[string] {
	if req == nil || req.URL == "" {
		return failure.Fatal[string](ewrap.Wrap(sentinel.ErrInvalidRequest, "url is required"))
	}

	method, ok := models.NormalizeMethod(req.Method)
	if !ok {
		return failure.Fatal[string](ewrap.Wrapf(sentinel.ErrBadMethod, "Bad method: %s", req.Method))
	}

	return failure.OK(method)
}

// fetchLive performs the live request with the normalized verb. A fetch error is fatal.
func (hf *HyperFetch) fetchLive(ctx context.Context, req *models.Request, method string, logger *zerolog.Logger) failure.Result[*models.Response] {
	live := *req
	live.Method = method

	resp, err := hf.fetcher.Fetch(ctx, &live)
	if err != nil {
		hf.stats.Incr(stats.FetchErrors, 1)
		logger.Debug().Err(err).Msg("live fetch failed")

		return failure.Fatal[*models.Response](err)
	}

	hf.stats.Incr(stats.LiveFetches, 1)
	hf.stats.Incr(stats.BytesFetched, resp.ContentLength())
	logger.Debug().Int("status_code", resp.StatusCode).Int64("bytes", resp.ContentLength()).Msg("fetched live")

	return failure.OK(resp)
}

// lookup reads the cache. A read error degrades to a miss.
func (hf *HyperFetch) lookup(ctx context.Context, req *models.Request, logger *zerolog.Logger) failure.Result[*models.Response] {
	resp, ok, err := hf.cacher.Get(ctx, req)
	if err != nil {
		hf.stats.Incr(stats.CacheReadErrors, 1)
		logger.Warn().Err(err).Msg("cache read failed, treating as miss")

		return failure.Degraded[*models.Response](nil, err)
	}

	if !ok {
		return failure.OK[*models.Response](nil)
	}

	return failure.OK(resp)
}

// checkBudget asks the limiter for the remaining budget. A store error
// degrades to a positive allowance so that an outage never blocks fetching.
func (hf *HyperFetch) checkBudget(ctx context.Context, req *models.Request) failure.Result[int64] {
	remaining, err := hf.limiter.CheckRateAllowed(ctx, req)
	if err != nil {
		return failure.Degraded(constants.UnlimitedAllowance, err)
	}

	return failure.OK(remaining)
}

// waitForBudget blocks while the host is over budget, re-checking every poll interval.
func (hf *HyperFetch) waitForBudget(ctx context.Context, req *models.Request, logger *zerolog.Logger) error {
	var ticker *time.Ticker

	for {
		if ctx.Err() != nil {
			return hf.canceled(ctx)
		}

		budget := hf.checkBudget(ctx, req)
		if budget.IsDegraded() {
			if ctx.Err() != nil {
				return hf.canceled(ctx)
			}

			hf.stats.Incr(stats.RateStoreErrors, 1)
			logger.Warn().Err(budget.Err).Msg("rate check failed, admitting request")

			return nil
		}

		if budget.Value > 0 {
			return nil
		}

		if ticker == nil {
			ticker = time.NewTicker(hf.pollInterval)
			defer ticker.Stop()

			hf.stats.Incr(stats.RateWaits, 1)
			logger.Debug().Int64("remaining", budget.Value).Msg("host over budget, waiting")
		}

		select {
		case <-ctx.Done():
			return hf.canceled(ctx)
		case <-ticker.C:
		}
	}
}

func (hf *HyperFetch) canceled(ctx context.Context) error {
	hf.stats.Incr(stats.Cancellations, 1)

	return fmt.Errorf("%w: %w", sentinel.ErrCanceled, context.Cause(ctx))
}

// store writes the fetched response. Failures are degraded, never fatal.
func (hf *HyperFetch) store(ctx context.Context, req *models.Request, resp *models.Response) failure.Result[bool] {
	err := hf.cacher.Put(ctx, req, resp)
	if err != nil {
		return failure.Degraded(false, err)
	}

	return failure.OK(true)
}

// record charges the fetched bytes to the host of the request URL.
func (hf *HyperFetch) record(ctx context.Context, req *models.Request, n int64) failure.Result[bool] {
	host, err := urlutil.Host(req.URL)
	if err != nil {
		return failure.Degraded(false, err)
	}

	err = hf.limiter.Add(ctx, host, n)
	if err != nil {
		return failure.Degraded(false, err)
	}

	return failure.OK(true)
}

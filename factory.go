package hyperfetch

import (
	"context"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/hyperfetch/internal/constants"
	"github.com/hyp3rd/hyperfetch/internal/libs/serializer"
	"github.com/hyp3rd/hyperfetch/internal/sentinel"
	redisstore "github.com/hyp3rd/hyperfetch/pkg/backend/redis"
	"github.com/hyp3rd/hyperfetch/pkg/cacher"
	"github.com/hyp3rd/hyperfetch/pkg/fetcher"
	"github.com/hyp3rd/hyperfetch/pkg/limiter"
)

// NewFromConfig validates cfg, builds the store clients and returns an orchestrator
// that owns them: Stop closes every client it opened. Extra options are applied
// last and may override what the configuration selected.
//
// Every Redis client is pinged once. An unreachable store is logged at warn and
// does not fail construction: the pipeline degrades around store outages.
func NewFromConfig(ctx context.Context, cfg *Config, opts ...Option) (*HyperFetch, error) {
	if cfg == nil {
		return nil, ewrap.Wrap(sentinel.ErrInvalidConfig, "nil config")
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	var (
		built  []Option
		stores = map[string]*redisstore.Store{}
	)

	closeAll := func() {
		hf := &HyperFetch{}
		ApplyOptions(hf, built...)
		_ = hf.Stop(ctx)
	}

	cacheOpts, cacheStore, err := buildCacher(cfg)
	if err != nil {
		return nil, err
	}

	built = append(built, cacheOpts...)

	limiterOpts, counterStore, err := buildLimiter(cfg)
	if err != nil {
		closeAll()

		return nil, err
	}

	built = append(built, limiterOpts...)
	built = append(built,
		WithFetcher(fetcher.New(
			fetcher.WithTimeout(cfg.Fetch.Timeout),
			fetcher.WithUserAgent(cfg.Fetch.UserAgent),
		)),
		WithPollInterval(cfg.Limiter.PollInterval),
	)

	hf, err := New(append(built, opts...)...)
	if err != nil {
		closeAll()

		return nil, err
	}

	if cacheStore != nil {
		stores["cache"] = cacheStore
	}

	if counterStore != nil {
		stores["limiter"] = counterStore
	}

	for name, store := range stores {
		hf.pingStore(ctx, name, store, cfg.StoreTimeout)
	}

	return hf, nil
}

// pingStore warns when a store does not answer at startup.
func (hf *HyperFetch) pingStore(ctx context.Context, name string, store *redisstore.Store, timeout time.Duration) {
	if timeout <= 0 {
		timeout = constants.DefaultStoreTimeout
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := store.Ping(pingCtx)
	if err != nil {
		hf.logger.Warn().Err(err).Str("store", name).Msg("store unreachable at startup, continuing degraded")
	}
}

// clientOptions returns the Redis client tuning shared by every store.
func clientOptions(cfg *Config) []redisstore.Option {
	var opts []redisstore.Option

	if cfg.StoreTimeout > 0 {
		opts = append(opts, redisstore.WithTimeouts(cfg.StoreTimeout, cfg.StoreTimeout))
	}

	if cfg.Redis.PoolSize > 0 {
		opts = append(opts, redisstore.WithPoolSize(cfg.Redis.PoolSize))
	}

	if cfg.Redis.MaxRetries != 0 {
		opts = append(opts, redisstore.WithMaxRetries(cfg.Redis.MaxRetries))
	}

	return opts
}

func buildSerializer(cfg CacheConfig) (serializer.ISerializer, error) {
	name := cfg.Serializer
	if name == "" {
		name = constants.DefaultSerializer
	}

	ser, err := serializer.NewSerializerRegistry().Build(name, cfg.Compress)
	if err != nil {
		return nil, ewrap.Wrapf(sentinel.ErrInvalidConfig, "cache serializer: %v", err)
	}

	return ser, nil
}

func buildCacher(cfg *Config) ([]Option, *redisstore.Store, error) {
	if cfg.Cache.Backend == constants.NoneBackend {
		return []Option{WithCacher(cacher.NewDisabled())}, nil, nil
	}

	ser, err := buildSerializer(cfg.Cache)
	if err != nil {
		return nil, nil, err
	}

	cacheOpts := []cacher.Option{
		cacher.WithSerializer(ser),
		cacher.WithNamespace(cfg.Cache.Namespace),
		cacher.WithTimeout(cfg.StoreTimeout),
	}

	if cfg.Cache.Backend == constants.InMemoryBackend {
		c, err := cacher.NewInMemory(cacheOpts...)
		if err != nil {
			return nil, nil, err
		}

		return []Option{WithCacher(c)}, nil, nil
	}

	store, err := redisstore.New(append([]redisstore.Option{
		redisstore.WithHostPort(cfg.Cache.Host, cfg.Cache.Port),
		redisstore.WithCredentials("", cfg.Cache.Password),
		redisstore.WithDB(cfg.Cache.DB),
	}, clientOptions(cfg)...)...)
	if err != nil {
		return nil, nil, ewrap.Wrap(err, "creating cache store client")
	}

	c, err := cacher.NewRedis(store.Client, cacheOpts...)
	if err != nil {
		_ = store.Close()

		return nil, nil, err
	}

	return []Option{
		WithCacher(c),
		WithCloser(func(context.Context) error { return store.Close() }),
	}, store, nil
}

func buildLimiter(cfg *Config) ([]Option, *redisstore.Store, error) {
	lc := cfg.Limiter
	if lc.Strategy == constants.UnlimitedStrategy {
		return []Option{WithRateLimiter(limiter.NewUnlimited())}, nil, nil
	}

	var (
		counters limiter.CounterStore
		store    *redisstore.Store
	)

	switch lc.Backend {
	case constants.InMemoryBackend:
		counters = limiter.NewInMemoryCounterStore(nil)
	default:
		var err error

		store, err = redisstore.New(append([]redisstore.Option{
			redisstore.WithAddr(lc.Host),
			redisstore.WithCredentials("", lc.Password),
			redisstore.WithDB(lc.DB),
		}, clientOptions(cfg)...)...)
		if err != nil {
			return nil, nil, ewrap.Wrap(err, "creating counter store client")
		}

		counters, err = limiter.NewRedisCounterStore(store.Client, cfg.StoreTimeout)
		if err != nil {
			_ = store.Close()

			return nil, nil, err
		}
	}

	sw, err := limiter.NewSlidingWindow(counters,
		limiter.WithMaxBytes(lc.MaxBytes),
		limiter.WithWindow(lc.Window),
		limiter.WithGranularity(lc.Granularity),
		limiter.WithNamespace(lc.Namespace),
	)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}

		return nil, nil, err
	}

	opts := []Option{WithRateLimiter(sw)}
	if store != nil {
		opts = append(opts, WithCloser(func(context.Context) error { return store.Close() }))
	}

	return opts, store, nil
}

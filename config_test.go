package hyperfetch

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/longbridgeapp/assert"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hyp3rd/hyperfetch/internal/constants"
	redisstore "github.com/hyp3rd/hyperfetch/pkg/backend/redis"
	"github.com/hyp3rd/hyperfetch/pkg/cacher"
	"github.com/hyp3rd/hyperfetch/pkg/limiter"
	"github.com/hyp3rd/hyperfetch/pkg/models"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:9119", cfg.ListenAddr)
	assert.Equal(t, int64(10<<20), cfg.Limiter.MaxBytes)
	assert.Equal(t, time.Minute, cfg.Limiter.Window)
	assert.Equal(t, time.Second, cfg.Limiter.Granularity)
	assert.Equal(t, time.Second, cfg.Limiter.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "httpcache", cfg.Cache.Namespace)
	assert.Equal(t, "httplimiter", cfg.Limiter.Namespace)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hyperfetch.yaml")

	err := os.WriteFile(path, []byte(`
listen_addr: 0.0.0.0:8080
cache:
  backend: in-memory
  serializer: cbor
  compress: true
limiter:
  max_bytes: 2048
  window: 30s
fetch:
  timeout: 1500ms
`), 0o600)
	assert.NoError(t, err)

	cfg, err := LoadConfig(path)
	assert.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr)
	assert.Equal(t, constants.InMemoryBackend, cfg.Cache.Backend)
	assert.Equal(t, "cbor", cfg.Cache.Serializer)
	assert.True(t, cfg.Cache.Compress)
	assert.Equal(t, int64(2048), cfg.Limiter.MaxBytes)
	assert.Equal(t, 30*time.Second, cfg.Limiter.Window)
	assert.Equal(t, 1500*time.Millisecond, cfg.Fetch.Timeout)

	// untouched keys keep their default
	assert.Equal(t, time.Second, cfg.Limiter.Granularity)
	assert.Equal(t, constants.DefaultCachePort, cfg.Cache.Port)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("limiter: [unclosed"), 0o600))

	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"HYPERFETCH_LISTEN_ADDR":   "0.0.0.0:1",
		"HYPERFETCH_CACHE_HOST":    "cache.internal",
		"HYPERFETCH_CACHE_PORT":    "6380",
		"HYPERFETCH_LIMITER_HOST":  "limiter.internal:6379",
		"HYPERFETCH_FETCH_TIMEOUT": "9s",
		"HYPERFETCH_MAX_BYTES":     "4096",
		"HYPERFETCH_WINDOW":        "2m",
		"HYPERFETCH_GRANULARITY":   "5s",
		"HYPERFETCH_POLL_INTERVAL": "250ms",
		"HYPERFETCH_LOG_LEVEL":     " debug ",
	}

	cfg := DefaultConfig()
	assert.NoError(t, applyEnv(cfg, func(k string) string { return env[k] }))

	assert.Equal(t, "0.0.0.0:1", cfg.ListenAddr)
	assert.Equal(t, "cache.internal", cfg.Cache.Host)
	assert.Equal(t, 6380, cfg.Cache.Port)
	assert.Equal(t, "limiter.internal:6379", cfg.Limiter.Host)
	assert.Equal(t, 9*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, int64(4096), cfg.Limiter.MaxBytes)
	assert.Equal(t, 2*time.Minute, cfg.Limiter.Window)
	assert.Equal(t, 5*time.Second, cfg.Limiter.Granularity)
	assert.Equal(t, 250*time.Millisecond, cfg.Limiter.PollInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	for _, name := range []string{"HYPERFETCH_CACHE_PORT", "HYPERFETCH_MAX_BYTES", "HYPERFETCH_WINDOW"} {
		t.Run(name, func(t *testing.T) {
			err := applyEnv(DefaultConfig(), func(k string) string {
				if k == name {
					return "lots"
				}

				return ""
			})
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{name: "defaults", mutate: func(*Config) {}, valid: true},
		{name: "live only", mutate: func(c *Config) {
			c.Cache.Backend = constants.NoneBackend
			c.Limiter.Strategy = constants.UnlimitedStrategy
			c.Limiter.MaxBytes = 0
		}, valid: true},
		{name: "unknown cache backend", mutate: func(c *Config) { c.Cache.Backend = "memcached" }},
		{name: "redis cache without host", mutate: func(c *Config) { c.Cache.Host = "" }},
		{name: "unknown strategy", mutate: func(c *Config) { c.Limiter.Strategy = "token-bucket" }},
		{name: "unknown limiter backend", mutate: func(c *Config) { c.Limiter.Backend = "etcd" }},
		{name: "zero granularity", mutate: func(c *Config) { c.Limiter.Granularity = 0 }},
		{name: "zero budget", mutate: func(c *Config) { c.Limiter.MaxBytes = 0 }},
		{name: "zero fetch timeout", mutate: func(c *Config) { c.Fetch.Timeout = 0 }},
		{name: "zero poll interval", mutate: func(c *Config) { c.Limiter.PollInterval = 0 }},
		{name: "too many buckets", mutate: func(c *Config) {
			c.Limiter.Window = time.Hour
			c.Limiter.Granularity = time.Millisecond
		}},
		{name: "unknown serializer", mutate: func(c *Config) { c.Cache.Serializer = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)

				return
			}

			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestNewFromConfigRedis(t *testing.T) {
	srv := miniredis.RunT(t)

	host, portStr, err := net.SplitHostPort(srv.Addr())
	assert.NoError(t, err)

	port, err := strconv.Atoi(portStr)
	assert.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Cache.Host = host
	cfg.Cache.Port = port
	cfg.Limiter.Host = srv.Addr()

	hf, err := NewFromConfig(context.Background(), cfg)
	assert.NoError(t, err)

	_, ok := hf.cacher.(*cacher.Redis)
	assert.True(t, ok)

	_, ok = hf.limiter.(*limiter.SlidingWindow)
	assert.True(t, ok)

	assert.Equal(t, 2, len(hf.closers))

	// the cache and the counter store share the server
	fake := &fakeFetcher{content: []byte("abc")}
	ApplyOptions(hf, WithFetcher(fake))

	_, err = hf.URLOpen(context.Background(), &models.Request{URL: "http://example.com/"})
	assert.NoError(t, err)
	assert.True(t, srv.Exists(hf.CacheKey("http://example.com/")))
	assert.True(t, len(srv.Keys()) == 2)

	assert.NoError(t, hf.Stop(context.Background()))
}

func TestNewFromConfigLiveOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Backend = constants.NoneBackend
	cfg.Limiter.Strategy = constants.UnlimitedStrategy

	hf, err := NewFromConfig(context.Background(), cfg)
	assert.NoError(t, err)

	_, ok := hf.cacher.(*cacher.Disabled)
	assert.True(t, ok)

	_, ok = hf.limiter.(limiter.Unlimited)
	assert.True(t, ok)
	assert.Equal(t, 0, len(hf.closers))
}

func TestNewFromConfigInMemory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Backend = constants.InMemoryBackend
	cfg.Cache.Compress = true
	cfg.Limiter.Backend = constants.InMemoryBackend

	hf, err := NewFromConfig(context.Background(), cfg)
	assert.NoError(t, err)

	_, ok := hf.cacher.(*cacher.InMemory)
	assert.True(t, ok)
	assert.Equal(t, 0, len(hf.closers))
}

func TestNewFromConfigRejectsInvalid(t *testing.T) {
	_, err := NewFromConfig(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	cfg := DefaultConfig()
	cfg.Cache.Backend = constants.InMemoryBackend
	cfg.Cache.Serializer = "xml"

	_, err = NewFromConfig(context.Background(), cfg)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestClientOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StoreTimeout = 750 * time.Millisecond
	cfg.Redis = RedisClientConfig{PoolSize: 7, MaxRetries: -1}

	opt := &redis.Options{PoolSize: 1, MaxRetries: 3}
	redisstore.ApplyOptions(opt, clientOptions(cfg)...)

	assert.Equal(t, 7, opt.PoolSize)
	assert.Equal(t, -1, opt.MaxRetries)
	assert.Equal(t, 750*time.Millisecond, opt.ReadTimeout)
	assert.Equal(t, 750*time.Millisecond, opt.WriteTimeout)

	// zero values keep the client defaults
	untouched := &redis.Options{PoolSize: 1, MaxRetries: 3}
	redisstore.ApplyOptions(untouched, clientOptions(&Config{})...)
	assert.Equal(t, 1, untouched.PoolSize)
	assert.Equal(t, 3, untouched.MaxRetries)
}

func TestNewFromConfigWarnsOnUnreachableStore(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	cfg := DefaultConfig()
	cfg.StoreTimeout = 300 * time.Millisecond
	cfg.Cache.Backend = constants.InMemoryBackend
	cfg.Limiter.Host = addr

	var buf bytes.Buffer

	hf, err := NewFromConfig(context.Background(), cfg, WithLogger(zerolog.New(&buf)))
	assert.NoError(t, err)
	assert.NotNil(t, hf)
	assert.True(t, strings.Contains(buf.String(), `"store":"limiter"`))
	assert.True(t, strings.Contains(buf.String(), "store unreachable at startup"))

	assert.NoError(t, hf.Stop(context.Background()))
}

func TestNewFromConfigPingsReachableStoresQuietly(t *testing.T) {
	srv := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.Cache.Backend = constants.InMemoryBackend
	cfg.Limiter.Host = srv.Addr()

	var buf bytes.Buffer

	hf, err := NewFromConfig(context.Background(), cfg, WithLogger(zerolog.New(&buf)))
	assert.NoError(t, err)
	assert.Equal(t, "", buf.String())
	assert.NoError(t, hf.Stop(context.Background()))
}

func TestValidateRedisTuning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Redis.PoolSize = -1
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.Redis.MaxRetries = -2
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))
}

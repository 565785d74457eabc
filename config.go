package hyperfetch

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"
	"gopkg.in/yaml.v3"

	"github.com/hyp3rd/hyperfetch/internal/constants"
	"github.com/hyp3rd/hyperfetch/internal/libs/serializer"
	"github.com/hyp3rd/hyperfetch/internal/sentinel"
)

// Config is the file and environment configuration of a hyperfetch service.
type Config struct {
	ListenAddr   string        `yaml:"listen_addr"`
	StoreTimeout time.Duration `yaml:"store_timeout"`
	Cache        CacheConfig   `yaml:"cache"`
	Limiter      LimiterConfig `yaml:"limiter"`
	Fetch        FetchConfig   `yaml:"fetch"`
	Log          LogConfig     `yaml:"log"`
	// Redis tunes every Redis client the service opens.
	Redis RedisClientConfig `yaml:"redis"`
}

// RedisClientConfig tunes the Redis connection pools. Zero keeps the client default.
// Socket read and write timeouts follow store_timeout.
type RedisClientConfig struct {
	PoolSize int `yaml:"pool_size"`
	// MaxRetries of -1 disables retries.
	MaxRetries int `yaml:"max_retries"`
}

// CacheConfig selects and configures the cache store.
type CacheConfig struct {
	// Backend is one of "redis", "in-memory" or "none".
	Backend    string `yaml:"backend"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	Namespace  string `yaml:"namespace"`
	Serializer string `yaml:"serializer"`
	// Compress wraps the serializer with zstd.
	Compress bool `yaml:"compress"`
}

// LimiterConfig selects and configures the rate strategy.
type LimiterConfig struct {
	// Strategy is "sliding-window" or "unlimited".
	Strategy string `yaml:"strategy"`
	// Backend is "redis" or "in-memory".
	Backend      string        `yaml:"backend"`
	Host         string        `yaml:"host"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Namespace    string        `yaml:"namespace"`
	MaxBytes     int64         `yaml:"max_bytes"`
	Window       time.Duration `yaml:"window"`
	Granularity  time.Duration `yaml:"granularity"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// FetchConfig configures live HTTP calls.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// LogConfig configures the zerolog logger built by the CLI.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:   constants.DefaultListenAddr,
		StoreTimeout: constants.DefaultStoreTimeout,
		Cache: CacheConfig{
			Backend:    constants.RedisBackend,
			Host:       constants.DefaultCacheHost,
			Port:       constants.DefaultCachePort,
			Namespace:  constants.CacheNamespace,
			Serializer: constants.DefaultSerializer,
		},
		Limiter: LimiterConfig{
			Strategy:     constants.SlidingWindowStrategy,
			Backend:      constants.RedisBackend,
			Host:         constants.DefaultLimiterAddr,
			Namespace:    constants.LimiterNamespace,
			MaxBytes:     constants.DefaultMaxBytes,
			Window:       constants.DefaultWindow,
			Granularity:  constants.DefaultGranularity,
			PollInterval: constants.DefaultPollInterval,
		},
		Fetch: FetchConfig{
			Timeout:   constants.DefaultFetchTimeout,
			UserAgent: constants.DefaultUserAgent,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig reads a YAML file over the defaults. Keys absent from the file keep their default.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ewrap.Wrapf(err, "reading config %s", path)
	}

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, ewrap.Wrapf(err, "parsing config %s", path)
	}

	return cfg, nil
}

// ApplyEnv overlays HYPERFETCH_* environment variables on cfg.
// Unset or blank variables leave the field untouched.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	lookup := func(name string) (string, bool) {
		v := strings.TrimSpace(getenv("HYPERFETCH_" + name))

		return v, v != ""
	}

	if v, ok := lookup("LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}

	if v, ok := lookup("CACHE_HOST"); ok {
		cfg.Cache.Host = v
	}

	if v, ok := lookup("LIMITER_HOST"); ok {
		cfg.Limiter.Host = v
	}

	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}

	if v, ok := lookup("CACHE_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return ewrap.Wrapf(sentinel.ErrInvalidConfig, "HYPERFETCH_CACHE_PORT: %v", err)
		}

		cfg.Cache.Port = port
	}

	if v, ok := lookup("MAX_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return ewrap.Wrapf(sentinel.ErrInvalidConfig, "HYPERFETCH_MAX_BYTES: %v", err)
		}

		cfg.Limiter.MaxBytes = n
	}

	durations := []struct {
		name   string
		target *time.Duration
	}{
		{"FETCH_TIMEOUT", &cfg.Fetch.Timeout},
		{"WINDOW", &cfg.Limiter.Window},
		{"GRANULARITY", &cfg.Limiter.Granularity},
		{"POLL_INTERVAL", &cfg.Limiter.PollInterval},
	}

	for _, d := range durations {
		v, ok := lookup(d.name)
		if !ok {
			continue
		}

		parsed, err := time.ParseDuration(v)
		if err != nil {
			return ewrap.Wrapf(sentinel.ErrInvalidConfig, "HYPERFETCH_%s: %v", d.name, err)
		}

		*d.target = parsed
	}

	return nil
}

// Validate checks the configuration for values no component can run with.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case constants.RedisBackend:
		if c.Cache.Host == "" || c.Cache.Port <= 0 {
			return ewrap.Wrap(sentinel.ErrInvalidConfig, "cache host and port are required for the redis backend")
		}
	case constants.InMemoryBackend, constants.NoneBackend:
	default:
		return ewrap.Wrapf(sentinel.ErrInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}

	if c.Cache.Serializer != "" && !serializer.NewSerializerRegistry().Has(c.Cache.Serializer) {
		return ewrap.Wrapf(sentinel.ErrInvalidConfig, "unknown cache serializer %q", c.Cache.Serializer)
	}

	switch c.Limiter.Strategy {
	case constants.UnlimitedStrategy:
	case constants.SlidingWindowStrategy:
		err := c.Limiter.validateWindow()
		if err != nil {
			return err
		}
	default:
		return ewrap.Wrapf(sentinel.ErrInvalidConfig, "unknown limiter strategy %q", c.Limiter.Strategy)
	}

	if c.Fetch.Timeout <= 0 {
		return ewrap.Wrap(sentinel.ErrInvalidConfig, "fetch timeout must be positive")
	}

	if c.Redis.PoolSize < 0 || c.Redis.MaxRetries < -1 {
		return ewrap.Wrap(sentinel.ErrInvalidConfig, "redis pool_size must be positive and max_retries at least -1")
	}

	if c.Limiter.PollInterval <= 0 {
		return ewrap.Wrap(sentinel.ErrInvalidConfig, "poll interval must be positive")
	}

	return nil
}

func (l *LimiterConfig) validateWindow() error {
	switch l.Backend {
	case constants.RedisBackend:
		if l.Host == "" {
			return ewrap.Wrap(sentinel.ErrInvalidConfig, "limiter host is required for the redis backend")
		}
	case constants.InMemoryBackend:
	default:
		return ewrap.Wrapf(sentinel.ErrInvalidConfig, "unknown limiter backend %q", l.Backend)
	}

	if l.MaxBytes <= 0 || l.Window <= 0 || l.Granularity <= 0 {
		return ewrap.Wrap(sentinel.ErrInvalidConfig, "max_bytes, window and granularity must be positive")
	}

	if l.Window/l.Granularity > constants.MaxWindowBuckets {
		return ewrap.Wrapf(sentinel.ErrInvalidConfig,
			"window %s over granularity %s exceeds %d buckets", l.Window, l.Granularity, constants.MaxWindowBuckets)
	}

	return nil
}

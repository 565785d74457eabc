// Package constants defines default configuration values and backend types
// for the hyperfetch system. It provides standard settings for the fetch
// timeout, the rate window, the admission poll interval and the supported
// storage backends.
package constants

import "time"

const (
	// DefaultListenAddr is the address the RPC server binds to when none is configured.
	DefaultListenAddr = "127.0.0.1:9119"
	// DefaultFetchTimeout bounds a single live HTTP call.
	DefaultFetchTimeout = 5 * time.Second
	// DefaultStoreTimeout bounds a single cache or counter store operation.
	DefaultStoreTimeout = 2 * time.Second
	// DefaultPollInterval is how long the admission wait sleeps between budget checks.
	DefaultPollInterval = time.Second
	// DefaultMaxBytes is the per-host byte budget over the rate window (10 MiB).
	DefaultMaxBytes int64 = 10 << 20
	// DefaultWindow is the trailing duration the byte budget applies to.
	DefaultWindow = time.Minute
	// DefaultGranularity is the width of a single rate bucket.
	DefaultGranularity = time.Second
	// MaxWindowBuckets caps window/granularity, the number of counters read per budget check.
	MaxWindowBuckets = 10000
	// UnlimitedAllowance is the remaining budget reported by the unlimited strategy.
	UnlimitedAllowance int64 = 1
	// DefaultSerializer is the codec used for cached responses.
	DefaultSerializer = "msgpack"
	// DefaultUserAgent is sent with live fetches unless the configuration overrides it.
	DefaultUserAgent = "hyperfetch/1.0"

	// InMemoryBackend is the in-memory backend type.
	// Constant identifier for the process-local storage backend implementation,
	// useful for development and tests.
	InMemoryBackend = "in-memory"
	// RedisBackend is the name of the Redis backend.
	// Constant identifier for the Redis storage backend implementation
	// that shares cache entries and counters across service instances.
	RedisBackend = "redis"
	// NoneBackend disables caching altogether.
	NoneBackend = "none"

	// SlidingWindowStrategy is the bucketed byte-budget rate strategy.
	SlidingWindowStrategy = "sliding-window"
	// UnlimitedStrategy always admits live fetches.
	UnlimitedStrategy = "unlimited"
)

package constants

import "time"

const (
	// CacheNamespace prefixes every cache key.
	CacheNamespace = "httpcache"
	// LimiterNamespace prefixes every rate bucket key.
	LimiterNamespace = "httplimiter"
	// DefaultCacheHost is the cache store host.
	DefaultCacheHost = "127.0.0.1"
	// DefaultCachePort is the cache store port.
	DefaultCachePort = 6379
	// DefaultLimiterAddr is the counter store address.
	DefaultLimiterAddr = "127.0.0.1:6379"
	// RedisDialTimeout is the timeout for the Redis dialer.
	RedisDialTimeout = 10 * time.Second
	// RedisClientMaxRetries is the maximum number of retries for the Redis client.
	RedisClientMaxRetries = 3
	// RedisClientReadTimeout is the read timeout for the Redis client.
	RedisClientReadTimeout = 3 * time.Second
	// RedisClientWriteTimeout is the write timeout for the Redis client.
	RedisClientWriteTimeout = 3 * time.Second
	// RedisClientPoolTimeout is the pool timeout for the Redis client.
	RedisClientPoolTimeout = 4 * time.Second
	// RedisClientPoolSize is the pool size for the Redis client.
	RedisClientPoolSize = 20
	// RedisClientMinIdleConns is the minimum number of idle connections for the Redis client.
	RedisClientMinIdleConns = 4
)

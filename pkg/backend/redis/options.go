// Package redis builds the shared go-redis client used by the cache and counter stores.
// Connection settings are expressed as functional options over redis.Options so that
// the factory can layer configuration on top of the package defaults.
package redis

import (
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Option mutates the redis.Options a Store is built from.
type Option func(*redis.Options)

// ApplyOptions applies the given options in order.
func ApplyOptions(opt *redis.Options, options ...Option) {
	for _, option := range options {
		option(opt)
	}
}

// WithAddr sets the server address as host:port.
func WithAddr(addr string) Option {
	return func(opt *redis.Options) {
		opt.Addr = addr
	}
}

// WithHostPort sets the server address from separate host and port values.
func WithHostPort(host string, port int) Option {
	return func(opt *redis.Options) {
		opt.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
}

// WithCredentials sets the ACL username and password.
func WithCredentials(username, password string) Option {
	return func(opt *redis.Options) {
		opt.Username = username
		opt.Password = password
	}
}

// WithDB selects the logical database.
func WithDB(db int) Option {
	return func(opt *redis.Options) {
		opt.DB = db
	}
}

// WithMaxRetries sets how many times a failed command is retried by the client.
func WithMaxRetries(maxRetries int) Option {
	return func(opt *redis.Options) {
		opt.MaxRetries = maxRetries
	}
}

// WithTimeouts sets the read and write socket timeouts.
func WithTimeouts(read, write time.Duration) Option {
	return func(opt *redis.Options) {
		opt.ReadTimeout = read
		opt.WriteTimeout = write
	}
}

// WithPoolSize sets the maximum number of socket connections.
func WithPoolSize(poolSize int) Option {
	return func(opt *redis.Options) {
		opt.PoolSize = poolSize
	}
}

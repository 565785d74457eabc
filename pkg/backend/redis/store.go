package redis

import (
	"context"
	"net"
	"strings"

	"github.com/hyp3rd/ewrap"
	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/hyperfetch/internal/constants"
)

// Store is a redis store instance with redis client.
// One Store is shared by every invocation of the fetch pipeline; Close releases it.
type Store struct {
	Client *redis.Client
}

// New create redis store instance with given options and config.
func New(opts ...Option) (*Store, error) {
	opt := &redis.Options{
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{
				Timeout: constants.RedisDialTimeout,
			}

			return dialer.DialContext(ctx, network, addr)
		},
		DB:           0,
		MaxRetries:   constants.RedisClientMaxRetries,
		DialTimeout:  constants.RedisDialTimeout,
		ReadTimeout:  constants.RedisClientReadTimeout,
		WriteTimeout: constants.RedisClientWriteTimeout,
		PoolFIFO:     false,
		PoolSize:     constants.RedisClientPoolSize,
		MinIdleConns: constants.RedisClientMinIdleConns,
		PoolTimeout:  constants.RedisClientPoolTimeout,
	}

	ApplyOptions(opt, opts...)

	if strings.TrimSpace(opt.Addr) == "" {
		return nil, ewrap.New("redis address is empty")
	}

	return &Store{Client: redis.NewClient(opt)}, nil
}

// Ping checks that the server answers.
func (s *Store) Ping(ctx context.Context) error {
	err := s.Client.Ping(ctx).Err()
	if err != nil {
		return ewrap.Wrapf(err, "pinging redis at %s", s.Client.Options().Addr)
	}

	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	err := s.Client.Close()
	if err != nil {
		return ewrap.Wrap(err, "closing redis client")
	}

	return nil
}

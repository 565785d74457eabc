package limiter

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/hyperfetch/internal/constants"
	"github.com/hyp3rd/hyperfetch/internal/sentinel"
	"github.com/hyp3rd/hyperfetch/pkg/cache"
)

// CounterStore keeps the per-bucket byte counters.
// Increments must be atomic per key; Sum treats absent keys as zero.
type CounterStore interface {
	IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) error
	Sum(ctx context.Context, keys []string) (int64, error)
}

// RedisCounterStore keeps counters in Redis so that every instance shares one budget.
type RedisCounterStore struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// NewRedisCounterStore returns a counter store over client.
func NewRedisCounterStore(client redis.UniversalClient, timeout time.Duration) (*RedisCounterStore, error) {
	if client == nil {
		return nil, sentinel.ErrNilClient
	}

	if timeout <= 0 {
		timeout = constants.DefaultStoreTimeout
	}

	return &RedisCounterStore{client: client, timeout: timeout}, nil
}

// IncrBy increments key and refreshes its expiry in one transaction.
func (s *RedisCounterStore) IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.IncrBy(ctx, key, n)
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return ewrap.Wrapf(sentinel.ErrRateStore, "incrby %s: %v", key, err)
	}

	return nil
}

// Sum reads every key with a single MGET.
func (s *RedisCounterStore) Sum(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, ewrap.Wrapf(sentinel.ErrRateStore, "mget: %v", err)
	}

	var total int64

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}

		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, ewrap.Wrapf(sentinel.ErrRateStore, "parse %s: %v", keys[i], err)
		}

		total += n
	}

	return total, nil
}

type counter struct {
	value     int64
	expiresAt time.Time
}

// sweepEvery is the number of increments between two expiry sweeps.
const sweepEvery = 1024

// InMemoryCounterStore keeps counters in a process-local sharded map.
// Expired counters read as zero and are swept periodically.
type InMemoryCounterStore struct {
	counters cache.ConcurrentMap[counter]
	now      func() time.Time
	ops      atomic.Uint64
}

// NewInMemoryCounterStore returns an empty counter store. A nil now uses time.Now.
func NewInMemoryCounterStore(now func() time.Time) *InMemoryCounterStore {
	if now == nil {
		now = time.Now
	}

	return &InMemoryCounterStore{counters: cache.New[counter](), now: now}
}

// IncrBy adds n to key and pushes its expiry to now+ttl.
func (s *InMemoryCounterStore) IncrBy(_ context.Context, key string, n int64, ttl time.Duration) error {
	now := s.now()

	s.counters.Upsert(key, func(exist bool, current counter) counter {
		if !exist || !now.Before(current.expiresAt) {
			current.value = 0
		}

		return counter{value: current.value + n, expiresAt: now.Add(ttl)}
	})

	if s.ops.Add(1)%sweepEvery == 0 {
		s.Sweep()
	}

	return nil
}

// Sum adds up the live counters for keys.
func (s *InMemoryCounterStore) Sum(_ context.Context, keys []string) (int64, error) {
	now := s.now()

	var total int64

	for _, key := range keys {
		c, ok := s.counters.Get(key)
		if ok && now.Before(c.expiresAt) {
			total += c.value
		}
	}

	return total, nil
}

// Sweep drops expired counters and returns how many were removed.
func (s *InMemoryCounterStore) Sweep() int {
	now := s.now()

	return s.counters.RemoveIf(func(_ string, c counter) bool {
		return !now.Before(c.expiresAt)
	})
}

// Len returns the number of stored counters, expired ones included.
func (s *InMemoryCounterStore) Len() int { return s.counters.Count() }

package limiter

import (
	"context"
	"strconv"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/hyperfetch/internal/constants"
	"github.com/hyp3rd/hyperfetch/internal/sentinel"
	"github.com/hyp3rd/hyperfetch/internal/urlutil"
	"github.com/hyp3rd/hyperfetch/pkg/models"
)

// SlidingWindow caps the bytes served per host over a trailing window.
//
// Time is cut into buckets of Granularity; a bucket is identified by
// unix-nanos / granularity and counted while its start lies within the
// window. A bucket that straddles the window start is excluded as a whole,
// which undercounts by at most one bucket.
type SlidingWindow struct {
	store       CounterStore
	maxBytes    int64
	window      time.Duration
	granularity time.Duration
	namespace   string
	now         func() time.Time
}

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithMaxBytes sets the per-host byte budget.
func WithMaxBytes(n int64) Option {
	return func(s *SlidingWindow) { s.maxBytes = n }
}

// WithWindow sets the trailing duration the budget applies to.
func WithWindow(d time.Duration) Option {
	return func(s *SlidingWindow) { s.window = d }
}

// WithGranularity sets the bucket width.
func WithGranularity(d time.Duration) Option {
	return func(s *SlidingWindow) { s.granularity = d }
}

// WithNamespace sets the counter key prefix.
func WithNamespace(namespace string) Option {
	return func(s *SlidingWindow) {
		if namespace != "" {
			s.namespace = namespace
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *SlidingWindow) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSlidingWindow returns a limiter over store with the default budget
// (10 MiB per minute, one second buckets) unless overridden.
func NewSlidingWindow(store CounterStore, opts ...Option) (*SlidingWindow, error) {
	if store == nil {
		return nil, sentinel.ErrNilStore
	}

	s := &SlidingWindow{
		store:       store,
		maxBytes:    constants.DefaultMaxBytes,
		window:      constants.DefaultWindow,
		granularity: constants.DefaultGranularity,
		namespace:   constants.LimiterNamespace,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	switch {
	case s.granularity <= 0:
		return nil, ewrap.Wrapf(sentinel.ErrInvalidConfig, "granularity must be positive, got %s", s.granularity)
	case s.window <= 0:
		return nil, ewrap.Wrapf(sentinel.ErrInvalidConfig, "window must be positive, got %s", s.window)
	case s.maxBytes <= 0:
		return nil, ewrap.Wrapf(sentinel.ErrInvalidConfig, "max bytes must be positive, got %d", s.maxBytes)
	case s.window/s.granularity > constants.MaxWindowBuckets:
		return nil, ewrap.Wrapf(sentinel.ErrInvalidConfig,
			"window %s over granularity %s exceeds %d buckets", s.window, s.granularity, constants.MaxWindowBuckets)
	}

	return s, nil
}

// MaxBytes returns the configured budget.
func (s *SlidingWindow) MaxBytes() int64 { return s.maxBytes }

// Window returns the configured window.
func (s *SlidingWindow) Window() time.Duration { return s.window }

// CheckRateAllowed returns MaxBytes minus the bytes host served within the window.
func (s *SlidingWindow) CheckRateAllowed(ctx context.Context, req *models.Request) (int64, error) {
	host, err := urlutil.Host(req.URL)
	if err != nil {
		return 0, err
	}

	used, err := s.Count(ctx, host, s.window)
	if err != nil {
		return 0, err
	}

	return s.maxBytes - used, nil
}

// Count sums the buckets of host whose start is within window from now.
func (s *SlidingWindow) Count(ctx context.Context, host string, window time.Duration) (int64, error) {
	return s.store.Sum(ctx, s.bucketKeys(host, window))
}

// Add records n bytes in the current bucket of host. Non-positive amounts are ignored.
func (s *SlidingWindow) Add(ctx context.Context, host string, n int64) error {
	if n <= 0 {
		return nil
	}

	bucket := s.now().UnixNano() / s.granularity.Nanoseconds()

	return s.store.IncrBy(ctx, s.key(host, bucket), n, s.window+s.granularity)
}

func (s *SlidingWindow) bucketKeys(host string, window time.Duration) []string {
	g := s.granularity.Nanoseconds()
	now := s.now().UnixNano()

	last := now / g
	first := ceilDiv(now-window.Nanoseconds(), g)

	if first > last {
		return nil
	}

	keys := make([]string, 0, last-first+1)
	for b := first; b <= last; b++ {
		keys = append(keys, s.key(host, b))
	}

	return keys
}

func (s *SlidingWindow) key(host string, bucket int64) string {
	return s.namespace + ":" + host + ":" + strconv.FormatInt(bucket, 10)
}

// ceilDiv rounds a/b up for b > 0.
func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a > 0 {
		q++
	}

	return q
}

// Package stats collects counters and timings for the fetch pipeline.
// Counters are atomic; a snapshot is taken with GetStats.
package stats

import (
	"math"
	"sync"
	"sync/atomic"
)

// Stat names a statistic.
type Stat string

// String returns the name of the statistic.
func (s Stat) String() string { return string(s) }

// Pipeline statistics recorded by the orchestrator.
const (
	CacheHits        Stat = "cache_hits"
	CacheMisses      Stat = "cache_misses"
	CacheReadErrors  Stat = "cache_read_errors"
	CacheWriteErrors Stat = "cache_write_errors"
	LiveFetches      Stat = "live_fetches"
	FetchErrors      Stat = "fetch_errors"
	RateWaits        Stat = "rate_waits"
	RateStoreErrors  Stat = "rate_store_errors"
	BytesFetched     Stat = "bytes_fetched"
	Cancellations    Stat = "cancellations"
)

// ICollector is an interface that defines the methods that a stats collector should implement.
type ICollector interface {
	// Incr increments the count of a statistic by the given value.
	Incr(stat Stat, value int64)
	// Timing records the time in nanoseconds it took for an event to occur.
	Timing(stat Stat, value int64)
	// GetStats returns the collected statistics.
	GetStats() Stats
}

// TimingSummary aggregates the samples recorded for a timing statistic.
type TimingSummary struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean_ns"`
	Min   int64   `json:"min_ns"`
	Max   int64   `json:"max_ns"`
}

// Stats is a point-in-time snapshot of a Collector.
type Stats struct {
	Counters map[string]int64         `json:"counters"`
	Timings  map[string]TimingSummary `json:"timings,omitempty"`
}

// Counter returns the value of stat in the snapshot, zero when never incremented.
func (s Stats) Counter(stat Stat) int64 { return s.Counters[stat.String()] }

type timing struct {
	count, sum, min, max int64
}

// Collector is the default ICollector.
type Collector struct {
	mu       sync.RWMutex
	counters map[Stat]*atomic.Int64
	timings  map[Stat]*timing
}

// NewCollector returns a collector with every pipeline counter registered at zero.
func NewCollector() *Collector {
	c := &Collector{
		counters: make(map[Stat]*atomic.Int64),
		timings:  make(map[Stat]*timing),
	}

	for _, stat := range []Stat{
		CacheHits, CacheMisses, CacheReadErrors, CacheWriteErrors, LiveFetches,
		FetchErrors, RateWaits, RateStoreErrors, BytesFetched, Cancellations,
	} {
		c.counters[stat] = &atomic.Int64{}
	}

	return c
}

func (c *Collector) counter(stat Stat) *atomic.Int64 {
	c.mu.RLock()
	ctr, ok := c.counters[stat]
	c.mu.RUnlock()

	if ok {
		return ctr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ctr, ok = c.counters[stat]
	if !ok {
		ctr = &atomic.Int64{}
		c.counters[stat] = ctr
	}

	return ctr
}

// Incr increments the count of a statistic by the given value.
func (c *Collector) Incr(stat Stat, value int64) {
	c.counter(stat).Add(value)
}

// Timing records one sample for a timing statistic.
func (c *Collector) Timing(stat Stat, value int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.timings[stat]
	if !ok {
		t = &timing{min: math.MaxInt64, max: math.MinInt64}
		c.timings[stat] = t
	}

	t.count++
	t.sum += value
	t.min = min(t.min, value)
	t.max = max(t.max, value)
}

// GetStats returns a snapshot of every statistic.
func (c *Collector) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := Stats{
		Counters: make(map[string]int64, len(c.counters)),
		Timings:  make(map[string]TimingSummary, len(c.timings)),
	}

	for stat, ctr := range c.counters {
		out.Counters[stat.String()] = ctr.Load()
	}

	for stat, t := range c.timings {
		out.Timings[stat.String()] = TimingSummary{
			Count: t.count,
			Mean:  float64(t.sum) / float64(t.count),
			Min:   t.min,
			Max:   t.max,
		}
	}

	return out
}

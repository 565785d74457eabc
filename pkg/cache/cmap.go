// Package cache provides a thread-safe concurrent map implementation with sharding
// for improved performance in high-concurrency scenarios. It backs the
// process-local cache and counter stores.
package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ShardCount is the number of shards.
const ShardCount = 32

// ConcurrentMap is a "thread" safe map of type string:Anything.
// To avoid lock bottlenecks this map is divided to several (ShardCount) map shards.
type ConcurrentMap[V any] struct {
	shards []*ConcurrentMapShared[V]
}

// ConcurrentMapShared is a "thread" safe string to anything map.
type ConcurrentMapShared[V any] struct {
	sync.RWMutex // Read Write mutex, guards access to internal map.

	items map[string]V
}

// New creates a new concurrent map.
func New[V any]() ConcurrentMap[V] {
	cmap := ConcurrentMap[V]{
		shards: make([]*ConcurrentMapShared[V], ShardCount),
	}
	for i := range ShardCount {
		cmap.shards[i] = &ConcurrentMapShared[V]{items: make(map[string]V)}
	}

	return cmap
}

// GetShard returns shard under given key.
func (m ConcurrentMap[V]) GetShard(key string) *ConcurrentMapShared[V] {
	return m.shards[xxhash.Sum64String(key)%uint64(ShardCount)]
}

// Set sets the given value under the specified key.
func (m ConcurrentMap[V]) Set(key string, value V) {
	shard := m.GetShard(key)
	shard.Lock()

	shard.items[key] = value
	shard.Unlock()
}

// UpsertCb callback to return new element to be inserted into the map
// It is called while lock is held, therefore it MUST NOT
// try to access other keys in same map, as it can lead to deadlock since
// Go sync.RWLock is not reentrant.
type UpsertCb[V any] func(exist bool, valueInMap V) V

// Upsert Insert or Update - updates existing element or inserts a new one using UpsertCb.
func (m ConcurrentMap[V]) Upsert(key string, cb UpsertCb[V]) V {
	shard := m.GetShard(key)
	shard.Lock()

	v, ok := shard.items[key]
	res := cb(ok, v)

	shard.items[key] = res
	shard.Unlock()

	return res
}

// Get retrieves an element from map under given key.
func (m ConcurrentMap[V]) Get(key string) (V, bool) {
	shard := m.GetShard(key)
	shard.RLock()

	val, ok := shard.items[key]
	shard.RUnlock()

	return val, ok
}

// Count returns the number of elements within the map.
func (m ConcurrentMap[V]) Count() int {
	count := 0

	for i := range ShardCount {
		shard := m.shards[i]
		shard.RLock()

		count += len(shard.items)
		shard.RUnlock()
	}

	return count
}

// Has looks up an item under specified key.
func (m ConcurrentMap[V]) Has(key string) bool {
	_, ok := m.Get(key)

	return ok
}

// Remove removes an element from the map.
func (m ConcurrentMap[V]) Remove(key string) {
	shard := m.GetShard(key)
	shard.Lock()

	delete(shard.items, key)
	shard.Unlock()
}

// RemoveIf walks every shard and deletes the entries for which pred returns true.
// pred is called while the shard lock is held. It returns the number of removed entries.
func (m ConcurrentMap[V]) RemoveIf(pred func(key string, v V) bool) int {
	removed := 0

	for _, shard := range m.shards {
		shard.Lock()

		for key, value := range shard.items {
			if pred(key, value) {
				delete(shard.items, key)

				removed++
			}
		}

		shard.Unlock()
	}

	return removed
}

// IterCb is the iterator callback called for every key,value found in maps.
// RLock is held for all calls for a given shard
// therefore callback sess consistent view of a shard,
// but not across the shards.
type IterCb[V any] func(key string, v V)

// IterCb callback based iterator, cheapest way to read
// all elements in a map.
func (m ConcurrentMap[V]) IterCb(fn IterCb[V]) {
	for idx := range m.shards {
		shard := (m.shards)[idx]
		shard.RLock()

		for key, value := range shard.items {
			fn(key, value)
		}

		shard.RUnlock()
	}
}

// Keys returns all keys as []string.
func (m ConcurrentMap[V]) Keys() []string {
	keys := make([]string, 0, m.Count())

	m.IterCb(func(key string, _ V) {
		keys = append(keys, key)
	})

	return keys
}

// Clear removes all items from map.
func (m ConcurrentMap[V]) Clear() {
	for _, shard := range m.shards {
		shard.Lock()
		clear(shard.items)
		shard.Unlock()
	}
}

package cache

import (
	"strconv"
	"sync"
	"testing"

	"github.com/longbridgeapp/assert"
)

func TestNew(t *testing.T) {
	cmap := New[int]()

	assert.Equal(t, 0, cmap.Count())
	assert.Equal(t, ShardCount, len(cmap.shards))
}

func TestSetGetRemove(t *testing.T) {
	cmap := New[[]byte]()

	cmap.Set("httpcache:abc", []byte{0x00, 0xff})

	got, ok := cmap.Get("httpcache:abc")
	assert.True(t, ok)
	assert.Equal(t, []byte{0x00, 0xff}, got)
	assert.True(t, cmap.Has("httpcache:abc"))

	cmap.Remove("httpcache:abc")

	_, ok = cmap.Get("httpcache:abc")
	assert.False(t, ok)
	assert.Equal(t, 0, cmap.Count())
}

func TestUpsert(t *testing.T) {
	cmap := New[int64]()

	add := func(n int64) UpsertCb[int64] {
		return func(exist bool, current int64) int64 {
			if !exist {
				return n
			}

			return current + n
		}
	}

	assert.Equal(t, int64(5), cmap.Upsert("k", add(5)))
	assert.Equal(t, int64(12), cmap.Upsert("k", add(7)))
}

func TestUpsertConcurrent(t *testing.T) {
	cmap := New[int64]()

	var wg sync.WaitGroup

	for range 64 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 100 {
				cmap.Upsert("bucket", func(_ bool, current int64) int64 { return current + 1 })
			}
		}()
	}

	wg.Wait()

	got, ok := cmap.Get("bucket")
	assert.True(t, ok)
	assert.Equal(t, int64(6400), got)
}

func TestRemoveIf(t *testing.T) {
	cmap := New[int]()
	for i := range 100 {
		cmap.Set(strconv.Itoa(i), i)
	}

	removed := cmap.RemoveIf(func(_ string, v int) bool { return v%2 == 0 })

	assert.Equal(t, 50, removed)
	assert.Equal(t, 50, cmap.Count())
	assert.False(t, cmap.Has("0"))
	assert.True(t, cmap.Has("1"))
}

func TestKeysAndClear(t *testing.T) {
	cmap := New[string]()
	cmap.Set("a", "1")
	cmap.Set("b", "2")

	keys := cmap.Keys()
	assert.Equal(t, 2, len(keys))

	cmap.Clear()
	assert.Equal(t, 0, cmap.Count())
}

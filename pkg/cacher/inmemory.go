package cacher

import (
	"context"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/hyperfetch/internal/constants"
	"github.com/hyp3rd/hyperfetch/internal/libs/serializer"
	"github.com/hyp3rd/hyperfetch/internal/sentinel"
	"github.com/hyp3rd/hyperfetch/pkg/cache"
	"github.com/hyp3rd/hyperfetch/pkg/models"
)

// InMemory keeps encoded responses in a process-local sharded map.
// Entries are stored encoded so that callers never share a Response with the store.
type InMemory struct {
	items cache.ConcurrentMap[[]byte]
	settings
}

// NewInMemory returns an empty process-local cacher.
func NewInMemory(opts ...Option) (*InMemory, error) {
	ser, err := serializer.New(constants.DefaultSerializer)
	if err != nil {
		return nil, err
	}

	c := &InMemory{
		items: cache.New[[]byte](),
		settings: settings{
			namespace:  constants.CacheNamespace,
			serializer: ser,
		},
	}

	for _, opt := range opts {
		opt(&c.settings)
	}

	return c, nil
}

// Key returns the store key for rawURL.
func (c *InMemory) Key(rawURL string) string { return Key(c.namespace, rawURL) }

// Get decodes the entry for req.
func (c *InMemory) Get(_ context.Context, req *models.Request) (*models.Response, bool, error) {
	key := c.Key(req.URL)

	data, ok := c.items.Get(key)
	if !ok {
		return nil, false, nil
	}

	resp := &models.Response{}

	err := c.serializer.Unmarshal(data, resp)
	if err != nil {
		return nil, false, ewrap.Wrapf(sentinel.ErrCacheRead, "decode %s: %v", key, err)
	}

	resp.FromCache = true

	return resp, true, nil
}

// Put encodes resp and overwrites the entry for req.
func (c *InMemory) Put(_ context.Context, req *models.Request, resp *models.Response) error {
	key := c.Key(req.URL)

	stored := *resp
	stored.FromCache = false

	data, err := c.serializer.Marshal(&stored)
	if err != nil {
		return ewrap.Wrapf(sentinel.ErrCacheWrite, "encode %s: %v", key, err)
	}

	c.items.Set(key, data)

	return nil
}

// Len returns the number of cached entries.
func (c *InMemory) Len() int { return c.items.Count() }

// Clear drops every entry.
func (c *InMemory) Clear() { c.items.Clear() }

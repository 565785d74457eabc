package cacher

import (
	"context"
	"errors"

	"github.com/hyp3rd/ewrap"
	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/hyperfetch/internal/constants"
	"github.com/hyp3rd/hyperfetch/internal/libs/serializer"
	"github.com/hyp3rd/hyperfetch/internal/sentinel"
	"github.com/hyp3rd/hyperfetch/pkg/models"
)

// Redis keeps responses in a Redis server shared by every service instance.
type Redis struct {
	client redis.UniversalClient
	settings
}

// NewRedis returns a Redis cacher over client. The default codec is msgpack.
func NewRedis(client redis.UniversalClient, opts ...Option) (*Redis, error) {
	if client == nil {
		return nil, sentinel.ErrNilClient
	}

	ser, err := serializer.New(constants.DefaultSerializer)
	if err != nil {
		return nil, err
	}

	c := &Redis{
		client: client,
		settings: settings{
			namespace:  constants.CacheNamespace,
			serializer: ser,
			timeout:    constants.DefaultStoreTimeout,
		},
	}

	for _, opt := range opts {
		opt(&c.settings)
	}

	return c, nil
}

// Key returns the store key for rawURL.
func (c *Redis) Key(rawURL string) string { return Key(c.namespace, rawURL) }

// Get reads and decodes the entry for req.
func (c *Redis) Get(ctx context.Context, req *models.Request) (*models.Response, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	key := c.Key(req.URL)

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, ewrap.Wrapf(sentinel.ErrCacheRead, "get %s: %v", key, err)
	}

	resp := &models.Response{}

	err = c.serializer.Unmarshal(data, resp)
	if err != nil {
		return nil, false, ewrap.Wrapf(sentinel.ErrCacheRead, "decode %s: %v", key, err)
	}

	resp.FromCache = true

	return resp, true, nil
}

// Put encodes resp and overwrites the entry for req without expiry.
func (c *Redis) Put(ctx context.Context, req *models.Request, resp *models.Response) error {
	key := c.Key(req.URL)

	stored := *resp
	stored.FromCache = false

	data, err := c.serializer.Marshal(&stored)
	if err != nil {
		return ewrap.Wrapf(sentinel.ErrCacheWrite, "encode %s: %v", key, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err = c.client.Set(ctx, key, data, 0).Err()
	if err != nil {
		return ewrap.Wrapf(sentinel.ErrCacheWrite, "set %s: %v", key, err)
	}

	return nil
}

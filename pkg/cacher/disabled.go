package cacher

import (
	"context"

	"github.com/hyp3rd/hyperfetch/pkg/models"
)

// Disabled never stores anything: every Get misses and Put discards the response.
// It backs the live-only mode.
type Disabled struct {
	namespace string
}

// NewDisabled returns a cacher that always misses.
func NewDisabled() *Disabled { return &Disabled{} }

// Key returns the key the response would have been stored under.
func (c *Disabled) Key(rawURL string) string { return Key(c.namespace, rawURL) }

// Get always misses.
func (*Disabled) Get(context.Context, *models.Request) (*models.Response, bool, error) {
	return nil, false, nil
}

// Put discards resp.
func (*Disabled) Put(context.Context, *models.Request, *models.Response) error { return nil }

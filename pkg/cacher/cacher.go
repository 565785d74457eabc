// Package cacher stores fetched responses keyed by the request URL.
//
// The key is derived from the URL alone: method, cookies and form data do
// not participate, so two requests for the same URL share one entry. Entries
// never expire; a later Put for the same URL overwrites the earlier one.
package cacher

import (
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"

	"github.com/hyp3rd/hyperfetch/internal/constants"
	"github.com/hyp3rd/hyperfetch/pkg/models"
)

// Cacher is the cache store adapter used by the fetch pipeline.
type Cacher interface {
	// Get returns the cached response for req with FromCache set.
	// A miss is (nil, false, nil). Store or decoding failures match sentinel.ErrCacheRead.
	Get(ctx context.Context, req *models.Request) (*models.Response, bool, error)
	// Put stores resp under the key of req. Failures match sentinel.ErrCacheWrite.
	Put(ctx context.Context, req *models.Request, resp *models.Response) error
	// Key returns the store key for rawURL.
	Key(rawURL string) string
}

// Key returns namespace + ":" + hex(sha1(rawURL)).
// An empty namespace falls back to the default one.
func Key(namespace, rawURL string) string {
	if namespace == "" {
		namespace = constants.CacheNamespace
	}

	sum := sha1.Sum([]byte(rawURL)) //nolint:gosec

	return namespace + ":" + hex.EncodeToString(sum[:])
}

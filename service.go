package hyperfetch

import (
	"context"

	"github.com/hyp3rd/hyperfetch/pkg/models"
	"github.com/hyp3rd/hyperfetch/pkg/stats"
)

// Service is the service interface for HyperFetch.
// It enables middleware to be added to the service.
type Service interface {
	// URLOpen returns the response for req, from the cache when possible,
	// otherwise from a live fetch admitted by the rate limiter.
	URLOpen(ctx context.Context, req *models.Request) (*models.Response, error)
	// CacheKey returns the cache store key a URL maps to.
	CacheKey(rawURL string) string
	// GetStats returns the pipeline statistics.
	GetStats() stats.Stats
	// Stop releases the store clients.
	Stop(ctx context.Context) error
}

// Middleware describes a service middleware.
type Middleware func(Service) Service

// ApplyMiddleware applies middlewares to a service.
// The first middleware is the innermost one.
func ApplyMiddleware(svc Service, mw ...Middleware) Service {
	for _, m := range mw {
		svc = m(svc)
	}

	return svc
}

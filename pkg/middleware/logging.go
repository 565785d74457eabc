// Package middleware provides decorators for the hyperfetch.Service interface:
// structured logging, OpenTelemetry metrics and tracing, and stats collection.
// Apply them with hyperfetch.ApplyMiddleware.
package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyp3rd/hyperfetch"
	"github.com/hyp3rd/hyperfetch/internal/telemetry/attrs"
	"github.com/hyp3rd/hyperfetch/pkg/models"
	"github.com/hyp3rd/hyperfetch/pkg/stats"
)

// LoggingMiddleware logs every call with its duration.
// Must implement the hyperfetch.Service interface.
type LoggingMiddleware struct {
	next   hyperfetch.Service
	logger zerolog.Logger
}

// NewLoggingMiddleware returns a new LoggingMiddleware.
func NewLoggingMiddleware(next hyperfetch.Service, logger zerolog.Logger) hyperfetch.Service {
	return &LoggingMiddleware{next: next, logger: logger}
}

// URLOpen logs the outcome of the call at info level, failures at warn level.
func (mw LoggingMiddleware) URLOpen(ctx context.Context, req *models.Request) (*models.Response, error) {
	begin := time.Now()

	resp, err := mw.next.URLOpen(ctx, req)

	event := mw.logger.Info()
	if err != nil {
		event = mw.logger.Warn().Err(err).Str(attrs.AttrErrorKind, errorKind(err))
	}

	if req != nil {
		event = event.Str("url", req.URL).Str(attrs.AttrHTTPMethod, req.Method).Bool(attrs.AttrNoCache, req.NoCache)
	}

	if resp != nil {
		event = event.
			Int(attrs.AttrStatusCode, resp.StatusCode).
			Bool(attrs.AttrFromCache, resp.FromCache).
			Int64(attrs.AttrContentBytes, resp.ContentLength())
	}

	event.Dur("took", time.Since(begin)).Msg("urlopen")

	return resp, err
}

// CacheKey passes through.
func (mw LoggingMiddleware) CacheKey(rawURL string) string {
	return mw.next.CacheKey(rawURL)
}

// GetStats passes through.
func (mw LoggingMiddleware) GetStats() stats.Stats {
	return mw.next.GetStats()
}

// Stop logs the shutdown.
func (mw LoggingMiddleware) Stop(ctx context.Context) error {
	defer func(begin time.Time) {
		mw.logger.Info().Dur("took", time.Since(begin)).Msg("service stopped")
	}(time.Now())

	return mw.next.Stop(ctx)
}

package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyp3rd/hyperfetch"
	"github.com/hyp3rd/hyperfetch/internal/telemetry/attrs"
	"github.com/hyp3rd/hyperfetch/pkg/models"
	"github.com/hyp3rd/hyperfetch/pkg/stats"
)

// OTelTracingMiddleware wraps hyperfetch.Service methods with OpenTelemetry spans.
type OTelTracingMiddleware struct {
	next   hyperfetch.Service
	tracer trace.Tracer
	// static attributes applied to all spans
	commonAttrs []attribute.KeyValue
}

// OTelTracingOption allows configuring the tracing middleware.
type OTelTracingOption func(*OTelTracingMiddleware)

// WithCommonAttributes sets attributes applied to all spans.
func WithCommonAttributes(attributes ...attribute.KeyValue) OTelTracingOption {
	return func(m *OTelTracingMiddleware) { m.commonAttrs = append(m.commonAttrs, attributes...) }
}

// NewOTelTracingMiddleware creates a tracing middleware.
func NewOTelTracingMiddleware(next hyperfetch.Service, tracer trace.Tracer, opts ...OTelTracingOption) hyperfetch.Service {
	mw := &OTelTracingMiddleware{next: next, tracer: tracer}
	for _, o := range opts {
		o(mw)
	}

	return mw
}

// URLOpen implements Service.URLOpen with tracing.
func (mw OTelTracingMiddleware) URLOpen(ctx context.Context, req *models.Request) (*models.Response, error) {
	var start []attribute.KeyValue
	if req != nil {
		start = append(start,
			attribute.Int(attrs.AttrURLLength, len(req.URL)),
			attribute.String(attrs.AttrHTTPMethod, req.Method),
			attribute.Bool(attrs.AttrNoCache, req.NoCache),
		)
	}

	ctx, span := mw.startSpan(ctx, "hyperfetch.URLOpen", start...)
	defer span.End()

	resp, err := mw.next.URLOpen(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errorKind(err))
		span.SetAttributes(attribute.String(attrs.AttrErrorKind, errorKind(err)))

		return resp, err
	}

	span.SetAttributes(
		attribute.Bool(attrs.AttrFromCache, resp.FromCache),
		attribute.Int(attrs.AttrStatusCode, resp.StatusCode),
		attribute.Int64(attrs.AttrContentBytes, resp.ContentLength()),
	)

	return resp, nil
}

// CacheKey passes through.
func (mw OTelTracingMiddleware) CacheKey(rawURL string) string { return mw.next.CacheKey(rawURL) }

// Stop stops the service with a span.
func (mw OTelTracingMiddleware) Stop(ctx context.Context) error {
	ctx, span := mw.startSpan(ctx, "hyperfetch.Stop")
	defer span.End()

	return mw.next.Stop(ctx)
}

// GetStats returns stats.
func (mw OTelTracingMiddleware) GetStats() stats.Stats { return mw.next.GetStats() }

// startSpan starts a span with common and provided attributes.
func (mw OTelTracingMiddleware) startSpan(ctx context.Context, name string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := mw.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	if len(mw.commonAttrs) > 0 {
		span.SetAttributes(mw.commonAttrs...)
	}

	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}

	return ctx, span
}

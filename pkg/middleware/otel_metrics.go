package middleware

import (
	"context"
	"time"

	"github.com/hyp3rd/ewrap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hyp3rd/hyperfetch"
	"github.com/hyp3rd/hyperfetch/internal/telemetry/attrs"
	"github.com/hyp3rd/hyperfetch/pkg/models"
	"github.com/hyp3rd/hyperfetch/pkg/stats"
)

// OTelMetricsMiddleware emits OpenTelemetry metrics for service methods.
type OTelMetricsMiddleware struct {
	next  hyperfetch.Service
	meter metric.Meter

	// instruments
	calls     metric.Int64Counter
	durations metric.Float64Histogram
	bytes     metric.Int64Counter
}

// NewOTelMetricsMiddleware constructs a metrics middleware using the provided meter.
func NewOTelMetricsMiddleware(next hyperfetch.Service, meter metric.Meter) (hyperfetch.Service, error) {
	calls, err := meter.Int64Counter("hyperfetch.calls")
	if err != nil {
		return nil, ewrap.Wrap(err, "create counter")
	}

	durations, err := meter.Float64Histogram("hyperfetch.duration.ms")
	if err != nil {
		return nil, ewrap.Wrap(err, "create histogram")
	}

	bytes, err := meter.Int64Counter("hyperfetch.content.bytes")
	if err != nil {
		return nil, ewrap.Wrap(err, "create content counter")
	}

	return &OTelMetricsMiddleware{next: next, meter: meter, calls: calls, durations: durations, bytes: bytes}, nil
}

// URLOpen implements Service.URLOpen with metrics.
func (mw *OTelMetricsMiddleware) URLOpen(ctx context.Context, req *models.Request) (*models.Response, error) {
	start := time.Now()
	resp, err := mw.next.URLOpen(ctx, req)

	attributes := []attribute.KeyValue{}
	if resp != nil {
		attributes = append(attributes, attribute.Bool(attrs.AttrFromCache, resp.FromCache))
		mw.bytes.Add(ctx, resp.ContentLength(), metric.WithAttributes(attribute.Bool(attrs.AttrFromCache, resp.FromCache)))
	}

	if err != nil {
		attributes = append(attributes, attribute.String(attrs.AttrErrorKind, errorKind(err)))
	}

	mw.rec(ctx, "URLOpen", start, attributes...)

	return resp, err
}

// CacheKey implements Service.CacheKey.
func (mw *OTelMetricsMiddleware) CacheKey(rawURL string) string {
	return mw.next.CacheKey(rawURL)
}

// GetStats implements Service.GetStats.
func (mw *OTelMetricsMiddleware) GetStats() stats.Stats { return mw.next.GetStats() }

// Stop implements Service.Stop with metrics.
func (mw *OTelMetricsMiddleware) Stop(ctx context.Context) error {
	start := time.Now()
	err := mw.next.Stop(ctx)
	mw.rec(ctx, "Stop", start)

	return err
}

func (mw *OTelMetricsMiddleware) rec(ctx context.Context, method string, start time.Time, kv ...attribute.KeyValue) {
	base := []attribute.KeyValue{attribute.String(attrs.AttrMethod, method)}
	if len(kv) > 0 {
		base = append(base, kv...)
	}

	mw.calls.Add(ctx, 1, metric.WithAttributes(base...))
	mw.durations.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(base...))
}

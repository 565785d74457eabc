// Package attrs provides reusable OpenTelemetry attribute key constants
// to avoid duplication across middlewares.
// Package attrs defines telemetry attribute keys used for observability and monitoring
// across the hyperfetch system. These constants provide standardized key names for
// metrics, traces, and logs to ensure consistent telemetry data collection.
package attrs

const (
	// AttrMethod is the RPC method name attached to every middleware measurement.
	AttrMethod = "method"
	// AttrHTTPMethod represents the HTTP verb of the fetch request.
	AttrHTTPMethod = "http.method"
	// AttrURLLength represents the length of the requested URL in bytes.
	// Oversized URLs are worth spotting since the URL is the cache partition key.
	AttrURLLength = "url.len"
	// AttrHost represents the rate-limiter partition key of the request.
	AttrHost = "host"
	// AttrNoCache reports whether the caller bypassed the cache lookup.
	AttrNoCache = "no_cache"
	// AttrFromCache reports whether the response was served from the cache store.
	AttrFromCache = "from_cache"
	// AttrStatusCode represents the HTTP status code of the returned response.
	AttrStatusCode = "status_code"
	// AttrContentBytes represents the size of the returned content in bytes.
	AttrContentBytes = "content.bytes"
	// AttrErrorKind classifies a failed call (bad_method, fetch, canceled, invalid, other).
	AttrErrorKind = "error.kind"
)

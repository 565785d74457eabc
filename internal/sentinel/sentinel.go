// Package sentinel provides standardized error definitions for the hyperfetch system.
// This package centralizes all error kinds used across the fetch pipeline,
// ensuring consistent error handling and messaging throughout the application.
//
// The errors defined here cover:
// - Request validation failures (empty URL, unsupported HTTP verb)
// - Required-path failures that always reach the caller (live fetch, cancellation)
// - Best-effort failures that are only observed, never returned (cache and rate store I/O)
// - Component initialization errors (nil clients, missing serializers)
//
// All errors are created using the ewrap package to provide enhanced error
// wrapping and context capabilities.
package sentinel

import (
	"github.com/hyp3rd/ewrap"
)

var (
	// ErrInvalidRequest is returned when a request is nil or carries an empty URL.
	ErrInvalidRequest = ewrap.New("invalid request")

	// ErrInvalidURL is returned when the request URL cannot be parsed or has no host.
	ErrInvalidURL = ewrap.New("invalid url")

	// ErrBadMethod is returned when the request names an unsupported HTTP verb.
	ErrBadMethod = ewrap.New("bad method")

	// ErrFetch is matched by every failure raised while performing the live HTTP call.
	ErrFetch = ewrap.New("http request error")

	// ErrCacheRead is returned when the cache store cannot be read or the stored blob cannot be decoded.
	// The orchestrator treats it as a miss.
	ErrCacheRead = ewrap.New("cache read error")

	// ErrCacheWrite is returned when a response cannot be encoded or written to the cache store.
	// The orchestrator only logs it.
	ErrCacheWrite = ewrap.New("cache write error")

	// ErrRateStore is returned when the counter store cannot be read or incremented.
	ErrRateStore = ewrap.New("rate store error")

	// ErrCanceled is returned when the rate admission wait is interrupted by the caller context.
	ErrCanceled = ewrap.New("the operation timed out or was canceled")

	// ErrNilClient is returned when a nil client is passed to a store adapter.
	ErrNilClient = ewrap.New("nil client")

	// ErrNilStore is returned when a nil counter store is passed to the limiter.
	ErrNilStore = ewrap.New("nil counter store")

	// ErrParamCannotBeEmpty is returned when a parameter cannot be empty.
	ErrParamCannotBeEmpty = ewrap.New("param cannot be empty")

	// ErrSerializerNotFound is returned when a serializer is not found.
	ErrSerializerNotFound = ewrap.New("serializer not found")

	// ErrInvalidConfig is returned when the configuration fails validation.
	ErrInvalidConfig = ewrap.New("invalid configuration")

	// ErrRPCShutdownTimeout is returned when the RPC server fails to shutdown before context deadline.
	ErrRPCShutdownTimeout = ewrap.New("rpc http shutdown timeout")
)

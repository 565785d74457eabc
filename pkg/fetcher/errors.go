package fetcher

import (
	"context"
	"errors"
	"net"

	"github.com/hyp3rd/hyperfetch/internal/sentinel"
)

// FetchErrorCause is a coarse classification of a transport failure.
type FetchErrorCause string

const (
	// CauseBuildRequest means the outbound request could not be constructed.
	CauseBuildRequest FetchErrorCause = "invalid request"
	// CauseTimeout means the fetch timeout or the caller deadline elapsed.
	CauseTimeout FetchErrorCause = "timeout"
	// CauseNetwork covers connect, DNS, TLS and protocol failures.
	CauseNetwork FetchErrorCause = "network failure"
	// CauseReadBody means the response body could not be read to the end.
	CauseReadBody FetchErrorCause = "failed to read response body"
)

// FetchError reports a failed live HTTP call. It matches sentinel.ErrFetch
// through errors.Is and unwraps to the transport error.
type FetchError struct {
	URL   string
	Cause FetchErrorCause
	Err   error
}

func (e *FetchError) Error() string {
	return "HTTP Request Error: " + e.Err.Error()
}

// Unwrap returns the underlying transport error.
func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, sentinel.ErrFetch) hold for every FetchError.
func (e *FetchError) Is(target error) bool {
	return target == sentinel.ErrFetch //nolint:errorlint
}

// Timeout reports whether the call failed because a deadline elapsed.
func (e *FetchError) Timeout() bool { return e.Cause == CauseTimeout }

func newFetchError(rawURL string, cause FetchErrorCause, err error) *FetchError {
	return &FetchError{URL: rawURL, Cause: cause, Err: err}
}

// classify maps a client error to its cause.
func classify(err error) FetchErrorCause {
	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CauseTimeout
	}

	return CauseNetwork
}

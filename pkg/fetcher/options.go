package fetcher

import (
	"net/http"
	"time"
)

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithTimeout bounds every live call. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(f *HTTPFetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = userAgent
	}
}

// WithHTTPClient replaces the underlying client, e.g. to install a custom transport.
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithClock overrides the time source used for Timestamp and ResponseTime.
func WithClock(now func() time.Time) Option {
	return func(f *HTTPFetcher) {
		if now != nil {
			f.now = now
		}
	}
}

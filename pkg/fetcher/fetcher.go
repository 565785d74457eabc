// Package fetcher performs the single live HTTP call behind a cache miss and
// turns the outcome into a models.Response.
//
// The fetcher never interprets content: the body is returned as raw bytes.
// It never retries either; a failed call surfaces as a *FetchError.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/hyperfetch/internal/constants"
	"github.com/hyp3rd/hyperfetch/internal/sentinel"
	"github.com/hyp3rd/hyperfetch/internal/urlutil"
	"github.com/hyp3rd/hyperfetch/pkg/models"
)

// Fetcher performs a live HTTP request.
type Fetcher interface {
	Fetch(ctx context.Context, req *models.Request) (*models.Response, error)
}

// HTTPFetcher is the net/http implementation of Fetcher.
type HTTPFetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	now       func() time.Time
}

// New returns an HTTPFetcher with the default timeout and user agent.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{},
		timeout:   constants.DefaultFetchTimeout,
		userAgent: constants.DefaultUserAgent,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch issues exactly one HTTP call for req.
// An unsupported verb fails with sentinel.ErrBadMethod before any I/O.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *models.Request) (*models.Response, error) {
	method, ok := models.NormalizeMethod(req.Method)
	if !ok {
		return nil, ewrap.Wrapf(sentinel.ErrBadMethod, "Bad method: %s", req.Method)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	httpReq, err := f.buildRequest(ctx, method, req)
	if err != nil {
		return nil, newFetchError(req.URL, CauseBuildRequest, err)
	}

	start := f.now()

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, newFetchError(req.URL, classify(err), err)
	}

	defer func() { _ = resp.Body.Close() }()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newFetchError(req.URL, CauseReadBody, err)
	}

	finished := f.now()

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &models.Response{
		URL:          urlutil.Normalize(finalURL),
		StatusCode:   resp.StatusCode,
		Headers:      flattenHeaders(resp.Header),
		Content:      content,
		Cookies:      responseCookies(resp),
		ResponseTime: finished.Sub(start).Seconds(),
		Timestamp:    unixSeconds(finished),
	}, nil
}

func (f *HTTPFetcher) buildRequest(ctx context.Context, method string, req *models.Request) (*http.Request, error) {
	var body io.Reader

	if models.SendsBody(method) && len(req.Data) > 0 {
		form := url.Values{}
		for k, v := range req.Data {
			form.Set(k, v)
		}

		body = strings.NewReader(form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, err
	}

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if f.userAgent != "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}

	for name, value := range req.Cookies {
		httpReq.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	return httpReq, nil
}

// flattenHeaders joins multi-valued headers with ", ".
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[name] = strings.Join(values, ", ")
	}

	return out
}

func responseCookies(resp *http.Response) map[string]string {
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return nil
	}

	out := make(map[string]string, len(cookies))
	for _, c := range cookies {
		out[c.Name] = c.Value
	}

	return out
}

func unixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

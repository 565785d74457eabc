package hyperfetch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/hyperfetch/pkg/fetcher"
	"github.com/hyp3rd/hyperfetch/pkg/models"
	"github.com/hyp3rd/hyperfetch/pkg/stats"
)

func startRPC(t *testing.T, svc Service) (*RPCServer, *Client) {
	t.Helper()

	srv := NewRPCServer("127.0.0.1:0")
	assert.NoError(t, srv.Start(context.Background(), svc))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_ = srv.Shutdown(ctx)
	})

	return srv, NewClient(srv.Address(), &http.Client{Timeout: 5 * time.Second})
}

func TestRPCURLOpenRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.fetch.content = []byte{0x00, 0xff, 0x10}

	_, client := startRPC(t, h.hf)

	resp, err := client.URLOpen(context.Background(), &models.Request{URL: "http://example.com/"})
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff, 0x10}, resp.Content)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, resp.FromCache)

	resp, err = client.URLOpen(context.Background(), &models.Request{URL: "http://example.com/"})
	assert.NoError(t, err)
	assert.True(t, resp.FromCache)
}

func TestRPCErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		req        *models.Request
		fetchErr   error
		wantStatus int
		wantErr    error
	}{
		{
			name:       "empty url",
			req:        &models.Request{},
			wantStatus: http.StatusBadRequest,
			wantErr:    ErrInvalidRequest,
		},
		{
			name:       "bad method",
			req:        &models.Request{URL: "http://example.com/", Method: "BREW"},
			wantStatus: http.StatusBadRequest,
			wantErr:    ErrBadMethod,
		},
		{
			name:       "fetch failure",
			req:        &models.Request{URL: "http://example.com/"},
			fetchErr:   &fetcher.FetchError{URL: "http://example.com/", Cause: fetcher.CauseNetwork, Err: errors.New("no route to host")},
			wantStatus: http.StatusBadGateway,
			wantErr:    ErrFetch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.fetch.err = tt.fetchErr

			_, client := startRPC(t, h.hf)

			_, err := client.URLOpen(context.Background(), tt.req)

			var remote *RemoteError
			assert.True(t, errors.As(err, &remote))
			assert.Equal(t, tt.wantStatus, remote.StatusCode)
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}

func TestRPCFetchErrorMessage(t *testing.T) {
	h := newHarness(t)
	h.fetch.err = &fetcher.FetchError{URL: "http://example.com/", Cause: fetcher.CauseNetwork, Err: errors.New("no route to host")}

	srv, _ := startRPC(t, h.hf)

	status, body := postRaw(t, srv.Address(), `{"url":"http://example.com/"}`, "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "HTTP Request Error: no route to host", body.Msg)
}

func TestRPCRequestTimeoutHeader(t *testing.T) {
	h := newHarness(t, WithPollInterval(time.Hour))
	h.limiter.remaining = func(int) int64 { return 0 }

	srv, _ := startRPC(t, h.hf)

	start := time.Now()
	status, body := postRaw(t, srv.Address(), `{"url":"http://example.com/"}`, "50ms")

	assert.Equal(t, http.StatusGatewayTimeout, status)
	assert.True(t, body.Msg != "")
	assert.True(t, time.Since(start) < 3*time.Second)
	assert.Equal(t, int32(0), h.fetch.calls.Load())
}

func TestRPCRejectsMalformedInput(t *testing.T) {
	h := newHarness(t)
	srv, _ := startRPC(t, h.hf)

	status, _ := postRaw(t, srv.Address(), `{"url":`, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = postRaw(t, srv.Address(), `{"url":"http://example.com/"}`, "soon")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRPCIgnoresUnknownFields(t *testing.T) {
	h := newHarness(t)
	srv, _ := startRPC(t, h.hf)

	status, _ := postRaw(t, srv.Address(), `{"url":"http://example.com/","priority":"high"}`, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int32(1), h.fetch.calls.Load())
}

func TestRPCStatsKeyAndHealth(t *testing.T) {
	h := newHarness(t)
	srv, client := startRPC(t, h.hf)

	_, err := client.URLOpen(context.Background(), &models.Request{URL: "http://example.com/"})
	assert.NoError(t, err)

	snapshot, err := client.Stats(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.Counter(stats.LiveFetches))

	key, err := client.Key(context.Background(), "http://example.com/")
	assert.NoError(t, err)
	assert.Equal(t, h.hf.CacheKey("http://example.com/"), key)

	resp, err := http.Get("http://" + srv.Address() + "/health")
	assert.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
}

func TestRPCShutdownBeforeStart(t *testing.T) {
	srv := NewRPCServer("127.0.0.1:0")

	assert.Equal(t, "", srv.Address())
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func postRaw(t *testing.T, addr, payload, timeout string) (int, ErrorBody) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, "http://"+addr+"/urlopen", bytes.NewBufferString(payload))
	assert.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")

	if timeout != "" {
		req.Header.Set(RequestTimeoutHeader, timeout)
	}

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	assert.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	var body ErrorBody

	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &body)

	return resp.StatusCode, body
}

// slowFetcher fails once the request context expires, like a live fetch cut by its deadline.
type slowFetcher struct{}

func (slowFetcher) Fetch(ctx context.Context, req *models.Request) (*models.Response, error) {
	<-ctx.Done()

	return nil, &fetcher.FetchError{URL: req.URL, Cause: fetcher.CauseTimeout, Err: ctx.Err()}
}

func TestRPCFetchTimeoutIsAFetchError(t *testing.T) {
	h := newHarness(t, WithFetcher(slowFetcher{}))
	srv, _ := startRPC(t, h.hf)

	status, body := postRaw(t, srv.Address(), `{"url":"http://example.com/"}`, "50ms")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.True(t, strings.HasPrefix(body.Msg, "HTTP Request Error: "))

	err := &RemoteError{StatusCode: status, Msg: body.Msg}
	assert.True(t, errors.Is(err, ErrFetch))
	assert.False(t, errors.Is(err, ErrCanceled))
}

func TestStatusFor(t *testing.T) {
	expired, cancel := context.WithCancel(context.Background())
	cancel()

	fetchErr := &fetcher.FetchError{URL: "http://example.com/", Cause: fetcher.CauseTimeout, Err: context.DeadlineExceeded}

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want int
	}{
		{name: "invalid", ctx: context.Background(), err: ErrInvalidRequest, want: http.StatusBadRequest},
		{name: "bad method", ctx: expired, err: ErrBadMethod, want: http.StatusBadRequest},
		{name: "fetch", ctx: context.Background(), err: fetchErr, want: http.StatusBadGateway},
		{name: "fetch after deadline", ctx: expired, err: fetchErr, want: http.StatusBadGateway},
		{name: "canceled wait", ctx: context.Background(), err: ErrCanceled, want: http.StatusGatewayTimeout},
		{name: "other after deadline", ctx: expired, err: errors.New("boom"), want: http.StatusGatewayTimeout},
		{name: "other", ctx: context.Background(), err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.ctx, tt.err))
		})
	}
}

package hyperfetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/hyperfetch/internal/sentinel"
	"github.com/hyp3rd/hyperfetch/pkg/models"
	"github.com/hyp3rd/hyperfetch/pkg/stats"
)

// RemoteError is a failure reported by a hyperfetch server.
// errors.Is maps it back to the error kind the server's status code stands for.
type RemoteError struct {
	StatusCode int
	Msg        string
}

func (e *RemoteError) Error() string { return e.Msg }

// Is matches the sentinel the status code was derived from.
func (e *RemoteError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusBadRequest:
		if strings.HasPrefix(e.Msg, "Bad method") {
			return target == sentinel.ErrBadMethod //nolint:errorlint
		}

		return target == sentinel.ErrInvalidRequest //nolint:errorlint
	case http.StatusBadGateway:
		return target == sentinel.ErrFetch //nolint:errorlint
	case http.StatusGatewayTimeout:
		return target == sentinel.ErrCanceled //nolint:errorlint
	default:
		return false
	}
}

// Client calls a hyperfetch RPC server over HTTP JSON.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient returns a client for the server at baseURL ("http://host:port").
// A bare host:port gets the http scheme.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}

	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{baseURL: strings.TrimRight(baseURL, "/"), client: httpClient}
}

const (
	errMsgNewRequest = "new request"
	errMsgDoRequest  = "do request"
)

// URLOpen submits req. A deadline on ctx is forwarded to the server
// so that the whole remote invocation is bounded by it.
func (c *Client) URLOpen(ctx context.Context, req *models.Request) (*models.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, ewrap.Wrap(err, "marshal urlopen request")
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/urlopen", bytes.NewReader(payload))
	if err != nil {
		return nil, ewrap.Wrap(err, errMsgNewRequest)
	}

	hreq.Header.Set("Content-Type", "application/json")

	if deadline, ok := ctx.Deadline(); ok {
		hreq.Header.Set(RequestTimeoutHeader, time.Until(deadline).String())
	}

	resp := &models.Response{}

	err = c.do(hreq, resp)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// Key asks the server for the cache key of rawURL.
func (c *Client) Key(ctx context.Context, rawURL string) (string, error) {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/key?url="+url.QueryEscape(rawURL), nil)
	if err != nil {
		return "", ewrap.Wrap(err, errMsgNewRequest)
	}

	var out struct {
		Key string `json:"key"`
	}

	err = c.do(hreq, &out)
	if err != nil {
		return "", err
	}

	return out.Key, nil
}

// Stats returns the server pipeline statistics.
func (c *Client) Stats(ctx context.Context) (stats.Stats, error) {
	var out stats.Stats

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats", nil)
	if err != nil {
		return out, ewrap.Wrap(err, errMsgNewRequest)
	}

	err = c.do(hreq, &out)

	return out, err
}

func (c *Client) do(hreq *http.Request, out any) error {
	resp, err := c.client.Do(hreq)
	if err != nil {
		return ewrap.Wrap(err, errMsgDoRequest)
	}

	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // best-effort

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ewrap.Wrap(err, "read response body")
	}

	if resp.StatusCode != http.StatusOK {
		var eb ErrorBody

		if json.Unmarshal(body, &eb) != nil || eb.Msg == "" {
			eb.Msg = strings.TrimSpace(string(body))
		}

		return &RemoteError{StatusCode: resp.StatusCode, Msg: eb.Msg}
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return ewrap.Wrap(err, "decode response body")
	}

	return nil
}

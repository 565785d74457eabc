// Package models defines the request and response records exchanged between
// callers, the fetch pipeline and the cache store. The same structs travel over
// the RPC boundary (json tags) and into the cache blob (msgpack and codec tags),
// so every field is tagged for each encoding with the same wire name.
package models

import (
	"net/http"
	"strings"
)

// Request describes a single fetch submitted by a caller.
type Request struct {
	// URL is the target resource. It is the only input to the cache key and the rate partition.
	URL string `json:"url" msgpack:"url" codec:"url"`
	// Method is the HTTP verb, case-insensitive. Empty means GET.
	Method string `json:"method,omitempty" msgpack:"method" codec:"method"`
	// Data holds form fields for methods that send a body.
	Data map[string]string `json:"data,omitempty" msgpack:"data" codec:"data"`
	// Cookies are forwarded with the live request.
	Cookies map[string]string `json:"cookies,omitempty" msgpack:"cookies" codec:"cookies"`
	// NoCache bypasses the cache lookup. The fetched response still populates the cache.
	NoCache bool `json:"no_cache,omitempty" msgpack:"no_cache" codec:"no_cache"`
}

// Response is the canonical record of a fetched resource.
// Headers, Content and Cookies are always encoded, so an empty map or slice
// decodes as empty and a nil one as nil under every codec.
type Response struct {
	URL          string            `json:"url"                     msgpack:"url"           codec:"url"`
	StatusCode   int               `json:"status_code"             msgpack:"status_code"   codec:"status_code"`
	Headers      map[string]string `json:"headers"                 msgpack:"headers"       codec:"headers"`
	Content      []byte            `json:"content"                 msgpack:"content"       codec:"content"`
	Cookies      map[string]string `json:"cookies"                 msgpack:"cookies"       codec:"cookies"`
	FromCache    bool              `json:"from_cache"              msgpack:"from_cache"    codec:"from_cache"`
	ResponseTime float64           `json:"response_time,omitempty" msgpack:"response_time" codec:"response_time"`
	Timestamp    float64           `json:"timestamp,omitempty"     msgpack:"timestamp"     codec:"timestamp"`
}

// supportedMethods lists the verbs a live fetch may use.
//
//nolint:gochecknoglobals
var supportedMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodHead:    {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodOptions: {},
}

// NormalizeMethod upper-cases the verb, defaults an empty one to GET and
// reports whether the result is a supported verb.
func NormalizeMethod(method string) (string, bool) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return http.MethodGet, true
	}

	_, ok := supportedMethods[method]

	return method, ok
}

// SendsBody reports whether the verb carries the form-encoded Data as its body.
func SendsBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// ContentLength returns the number of content bytes, zero for a nil response.
func (r *Response) ContentLength() int64 {
	if r == nil {
		return 0
	}

	return int64(len(r.Content))
}

// Package urlutil normalizes fetched URLs and extracts the host used as the
// rate-limiter partition key.
package urlutil

import (
	"net/url"
	"strings"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/hyperfetch/internal/sentinel"
)

// Normalize applies a deterministic cleanup to a final URL.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased
//   - Default ports are omitted (:80 for http, :443 for https)
//   - Fragments are removed, including a bare trailing "#"
//   - A bare trailing "?" with no query is removed
//   - An empty path on an absolute URL becomes "/"
//
// The query string is kept as is: it is part of the resource identity.
// Unparseable input is returned trimmed but otherwise untouched.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if port := u.Port(); port != "" {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			u.Host = strings.TrimSuffix(u.Host, ":"+port)
		}
	}

	if u.Host != "" && u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.ForceQuery = false

	return u.String()
}

// Host returns the network location (host[:port], lowercased) of rawURL.
// Default ports are dropped so that "http://a:80" and "http://a" share a budget.
func Host(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", ewrap.Wrap(sentinel.ErrInvalidURL, err.Error())
	}

	if u.Host == "" {
		return "", ewrap.Wrapf(sentinel.ErrInvalidURL, "no host in %q", rawURL)
	}

	host := strings.ToLower(u.Host)

	scheme := strings.ToLower(u.Scheme)
	if port := u.Port(); (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		host = strings.TrimSuffix(host, ":"+port)
	}

	return host, nil
}

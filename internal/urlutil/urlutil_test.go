package urlutil

import (
	"errors"
	"testing"

	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/hyperfetch/internal/sentinel"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already normal", in: "http://example.com/a/b?x=1", want: "http://example.com/a/b?x=1"},
		{name: "uppercase scheme and host", in: "HTTP://Example.COM/Path", want: "http://example.com/Path"},
		{name: "fragment stripped", in: "http://example.com/a#section", want: "http://example.com/a"},
		{name: "bare fragment marker stripped", in: "http://example.com/a#", want: "http://example.com/a"},
		{name: "bare query marker stripped", in: "http://example.com/a?", want: "http://example.com/a"},
		{name: "default http port dropped", in: "http://example.com:80/a", want: "http://example.com/a"},
		{name: "default https port dropped", in: "https://example.com:443/a", want: "https://example.com/a"},
		{name: "custom port kept", in: "http://example.com:8080/a", want: "http://example.com:8080/a"},
		{name: "empty path becomes root", in: "http://example.com", want: "http://example.com/"},
		{name: "query kept", in: "http://example.com/?b=2&a=1#top", want: "http://example.com/?b=2&a=1"},
		{name: "surrounding whitespace trimmed", in: "  http://example.com/a  ", want: "http://example.com/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	in := "HTTPS://Example.com:443/a/b?q=1#frag"

	once := Normalize(in)
	assert.Equal(t, once, Normalize(once))
}

func TestHost(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain host", in: "http://example.com/a", want: "example.com"},
		{name: "host lowercased", in: "http://EXAMPLE.com/a", want: "example.com"},
		{name: "custom port kept", in: "http://example.com:8080/a", want: "example.com:8080"},
		{name: "default port dropped", in: "https://example.com:443/", want: "example.com"},
		{name: "no host", in: "/relative/path", wantErr: true},
		{name: "garbage", in: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Host(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, sentinel.ErrInvalidURL))

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

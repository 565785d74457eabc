package cacher

import (
	"time"

	"github.com/hyp3rd/hyperfetch/internal/libs/serializer"
)

// settings are shared by the Redis and InMemory cachers.
type settings struct {
	namespace  string
	serializer serializer.ISerializer
	timeout    time.Duration
}

// Option configures a cacher.
type Option func(*settings)

// WithNamespace sets the key prefix.
func WithNamespace(namespace string) Option {
	return func(s *settings) {
		if namespace != "" {
			s.namespace = namespace
		}
	}
}

// WithSerializer sets the codec for stored blobs.
func WithSerializer(ser serializer.ISerializer) Option {
	return func(s *settings) {
		if ser != nil {
			s.serializer = ser
		}
	}
}

// WithTimeout bounds each store operation. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

package middleware

import (
	"errors"

	"github.com/hyp3rd/hyperfetch"
)

// errorKind classifies a URLOpen error for logs and telemetry attributes.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, hyperfetch.ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, hyperfetch.ErrBadMethod):
		return "bad_method"
	case errors.Is(err, hyperfetch.ErrCanceled):
		return "canceled"
	case errors.Is(err, hyperfetch.ErrFetch):
		return "fetch"
	default:
		return "other"
	}
}

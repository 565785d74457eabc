package hyperfetch

import "github.com/hyp3rd/hyperfetch/internal/sentinel"

// Error kinds returned by URLOpen. Match them with errors.Is.
var (
	ErrInvalidRequest = sentinel.ErrInvalidRequest
	ErrBadMethod      = sentinel.ErrBadMethod
	ErrFetch          = sentinel.ErrFetch
	ErrCanceled       = sentinel.ErrCanceled
	ErrCacheRead      = sentinel.ErrCacheRead
	ErrCacheWrite     = sentinel.ErrCacheWrite
	ErrRateStore      = sentinel.ErrRateStore
	ErrInvalidConfig  = sentinel.ErrInvalidConfig
)

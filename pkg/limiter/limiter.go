// Package limiter estimates how many bytes each host has served recently and
// decides whether another live fetch may start.
//
// The budget is an estimate, not a reservation: the check happens before the
// fetch and the bytes are only recorded after it, so concurrent callers may
// overshoot the ceiling by up to one response each.
package limiter

import (
	"context"

	"github.com/hyp3rd/hyperfetch/internal/constants"
	"github.com/hyp3rd/hyperfetch/pkg/models"
)

// RateLimiter is the admission strategy consulted before every live fetch.
type RateLimiter interface {
	// CheckRateAllowed returns the remaining byte budget for the host of req.
	// A non-positive value means the host is over budget.
	CheckRateAllowed(ctx context.Context, req *models.Request) (int64, error)
	// Add records n bytes served by host.
	Add(ctx context.Context, host string, n int64) error
}

// Unlimited admits every fetch and records nothing.
type Unlimited struct{}

// NewUnlimited returns the no-rate-limiting strategy.
func NewUnlimited() Unlimited { return Unlimited{} }

// CheckRateAllowed always reports a fixed positive allowance.
func (Unlimited) CheckRateAllowed(context.Context, *models.Request) (int64, error) {
	return constants.UnlimitedAllowance, nil
}

// Add is a no-op.
func (Unlimited) Add(context.Context, string, int64) error { return nil }

package middleware

import (
	"context"
	"time"

	"github.com/flowforge/flowforge/event"
)

// Timeout returns middleware that enforces a fixed execution deadline
// on every handler invocation. If d is non-positive the handler runs
// with the caller's context unchanged.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ event.Event, next Handler) error {
		if d <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	}
}

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/flowforge/flowforge/event"
)

// Recover returns middleware that recovers from panics in the handler
// chain. Panics are converted to errors and logged with a stack trace,
// so that a handler panic still surfaces as an error, which package
// handler turns into a terminal event, rather than silently losing the
// workflow's place.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, evt event.Event, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("event handler panicked",
					slog.String("topic", evt.Topic),
					slog.String("event_id", evt.ID.String()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic handling %s: %v", evt.Topic, r)
			}
		}()
		return next(ctx)
	}
}

package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/flowforge/flowforge/event"
)

// Logging returns middleware that logs event handling start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, evt event.Event, next Handler) error {
		logger.Info("event handler started",
			slog.String("topic", evt.Topic),
			slog.String("event_id", evt.ID.String()),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("event handler failed",
				slog.String("topic", evt.Topic),
				slog.String("event_id", evt.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("event handler completed",
				slog.String("topic", evt.Topic),
				slog.String("event_id", evt.ID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}

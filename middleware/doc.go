// Package middleware provides composable middleware for event handler
// execution.
//
// A [Middleware] wraps a handler invoked for one event. Middleware are
// composed into a chain using [Chain] and applied before each
// subscription fires. They are applied right-to-left: the first
// middleware in the slice is the outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] — logs topic, event id, duration, and outcome at each invocation
//   - [Recover] — catches panics and converts them to errors
//   - [Timeout] — cancels the handler context after a configured duration
//   - [Tracing] — wraps execution in an OpenTelemetry span
//   - [Metrics] — records per-handler duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, evt event.Event, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting.
package middleware

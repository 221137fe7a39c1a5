package flowforge

import "time"

// Config holds process-wide configuration for an orchestrator instance.
type Config struct {
	// EventDispatchConcurrency bounds the number of handler goroutines
	// the in-process event bus runs concurrently (see event/dispatchpool).
	EventDispatchConcurrency int

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	// of the event dispatch pool.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EventDispatchConcurrency: 10,
		ShutdownTimeout:          30 * time.Second,
	}
}

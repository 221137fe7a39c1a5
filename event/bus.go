// Package event defines the topic-based event bus that carries every
// transition of and between the engine, the compensator, and
// external step/compensation handlers.
package event

import "context"

// Handler processes one delivered Event. A non-nil error is logged by
// the dispatching Bus implementation; it never blocks other subscribers
// on the same topic.
type Handler func(ctx context.Context, evt Event) error

// Bus is the at-least-once publish/subscribe contract every backend
// implements. Delivery order is not guaranteed, not even within one
// topic: event/memory runs handler invocations concurrently on a
// worker pool.
type Bus interface {
	// Emit publishes data on topic to every current subscriber.
	Emit(ctx context.Context, topic string, data any) error

	// Subscribe registers handler for topic. Multiple handlers may
	// subscribe to the same topic; each receives every event.
	Subscribe(topic string, handler Handler) error

	// Close stops dispatch and releases the bus's resources. Emit and
	// Subscribe are invalid after Close.
	Close() error
}

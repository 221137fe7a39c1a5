// Package memory implements an in-process event.Bus backed by a bounded
// dispatch pool, adapted from a job dequeue/execute worker pool model to
// topic fan-out.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flowforge/flowforge/event"
	"github.com/flowforge/flowforge/event/dispatchpool"
	"github.com/flowforge/flowforge/id"
)

// Bus is an in-process, single-binary event.Bus. Every Emit dispatches
// to each of the topic's current subscribers on the shared pool, so a
// blocking handler delays only itself, not other subscribers.
type Bus struct {
	pool   *dispatchpool.Pool
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[string][]event.Handler
}

// Option configures a Bus.
type Option func(*Bus)

// WithConcurrency sets the number of dispatch goroutines. Default 16.
func WithConcurrency(n int) Option {
	return func(b *Bus) { b.pool = dispatchpool.New(n, n*4, b.logger) }
}

// WithLogger sets the logger used for handler panics and emit errors.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// New creates an in-process Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		logger:      slog.Default(),
		subscribers: make(map[string][]event.Handler),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.pool == nil {
		b.pool = dispatchpool.New(16, 64, b.logger)
	}
	return b
}

// Emit implements event.Bus.
func (b *Bus) Emit(ctx context.Context, topic string, data any) error {
	b.mu.RLock()
	handlers := append([]event.Handler(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	evt := event.Event{
		ID:        id.NewEventID(),
		Topic:     topic,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	for _, h := range handlers {
		h := h
		err := b.pool.Submit(ctx, func(dispatchCtx context.Context) {
			if hErr := h(dispatchCtx, evt); hErr != nil {
				b.logger.Error("event handler returned error",
					slog.String("topic", topic),
					slog.String("error", hErr.Error()),
				)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Subscribe implements event.Bus.
func (b *Bus) Subscribe(topic string, handler event.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], handler)
	return nil
}

// Close implements event.Bus.
func (b *Bus) Close() error {
	return b.pool.Close()
}

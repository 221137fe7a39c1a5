// Package redisbus implements event.Bus over Redis Pub/Sub, for
// multi-process deployments where the engine, compensator, and step
// handlers run in separate worker binaries. Adapted from a Stream-based
// event store to native Pub/Sub, since cross-process fan-out here needs
// no replay history.
//
// Event.Data reaches a handler as the JSON-decoded value (maps, slices,
// float64s and strings), not as the Go type that was emitted, so the
// handlers in this module that type-assert payload structs (orchestrator,
// handler, observability, audithook, dlq) do not match events delivered
// by this Bus.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flowforge/flowforge/event"
	"github.com/flowforge/flowforge/id"
)

const channelPrefix = "flowforge:topic:"

// Bus is an event.Bus backed by a Redis client. Each topic maps to one
// Redis Pub/Sub channel.
type Bus struct {
	client *goredis.Client
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[string]*goredis.PubSub
	cancel map[string]context.CancelFunc
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for decode and handler errors.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// New creates a Bus over an existing Redis client.
func New(client *goredis.Client, opts ...Option) *Bus {
	b := &Bus{
		client: client,
		logger: slog.Default(),
		subs:   make(map[string]*goredis.PubSub),
		cancel: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type wireEvent struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Data      json.RawMessage `json:"data"`
	CreatedAt string          `json:"createdAt"`
}

// Emit implements event.Bus.
func (b *Bus) Emit(ctx context.Context, topic string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("flowforge/redisbus: marshal event data: %w", err)
	}
	evt := wireEvent{
		ID:    id.NewEventID().String(),
		Topic: topic,
		Data:  payload,
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("flowforge/redisbus: marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, channelPrefix+topic, raw).Err(); err != nil {
		return fmt.Errorf("flowforge/redisbus: publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe implements event.Bus. Each call opens its own Redis
// subscription; multiple handlers on the same topic each get their own
// PubSub connection (simpler than multiplexing, and Redis Pub/Sub
// connections are cheap relative to workflow step latency).
func (b *Bus) Subscribe(topic string, handler event.Handler) error {
	ctx, cancel := context.WithCancel(context.Background())
	sub := b.client.Subscribe(ctx, channelPrefix+topic)

	b.mu.Lock()
	key := topic + "#" + fmt.Sprint(len(b.subs))
	b.subs[key] = sub
	b.cancel[key] = cancel
	b.mu.Unlock()

	go b.consume(ctx, sub, topic, handler)
	return nil
}

func (b *Bus) consume(ctx context.Context, sub *goredis.PubSub, topic string, handler event.Handler) {
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var wire wireEvent
			if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
				b.logger.Error("redisbus: decode event envelope", slog.String("error", err.Error()))
				continue
			}
			var data any
			if err := json.Unmarshal(wire.Data, &data); err != nil {
				b.logger.Error("redisbus: decode event data", slog.String("error", err.Error()))
				continue
			}
			evt := event.Event{Topic: topic, Data: data}
			if parsed, err := id.ParseEventID(wire.ID); err == nil {
				evt.ID = parsed
			}
			if err := handler(ctx, evt); err != nil {
				b.logger.Error("redisbus: handler returned error",
					slog.String("topic", topic),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Close implements event.Bus.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, cancel := range b.cancel {
		cancel()
		if sub, ok := b.subs[key]; ok {
			_ = sub.Close()
		}
	}
	b.subs = make(map[string]*goredis.PubSub)
	b.cancel = make(map[string]context.CancelFunc)
	return nil
}

// Package orchestrator is the composition root: it sits above the
// core subsystem packages (registry, store, event, engine,
// compensator) and wires them together. It lives in its own package,
// above engine and compensator, because both of those already import
// the root package for Bag and the sentinel errors — putting the
// composition root there too would create an import cycle.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowforge/flowforge/compensator"
	"github.com/flowforge/flowforge/engine"
	"github.com/flowforge/flowforge/event"
	"github.com/flowforge/flowforge/registry"
	"github.com/flowforge/flowforge/store"
)

// Orchestrator owns the registry, the store, the event bus, and the
// Engine and Compensator that drive them, and wires the reserved
// internal topics onto the Engine and Compensator methods that
// handle them. Nothing outside this type drives the Engine or
// Compensator from those topics: the per-step/per-compensation
// dispatch topics are owned by `handler`, and the other subscribers of
// reserved topics (`observability`, `audithook`, `dlq`) only observe.
type Orchestrator struct {
	Registry    *registry.Registry
	Store       store.Store
	Bus         event.Bus
	Engine      *engine.Engine
	Compensator *compensator.Compensator

	logger *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger passed through to the Engine and
// Compensator.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New builds an Orchestrator over reg, st, and bus, and subscribes the
// reserved internal topics. It returns an error if any subscription
// fails.
func New(reg *registry.Registry, st store.Store, bus event.Bus, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		Registry: reg,
		Store:    st,
		Bus:      bus,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.Engine = engine.New(reg, st, bus, engine.WithLogger(o.logger))
	o.Compensator = compensator.New(st, bus, compensator.WithLogger(o.logger))

	if err := o.subscribe(); err != nil {
		return nil, err
	}
	return o, nil
}

// subscribe wires the six engine- and compensator-owned reserved topics onto the
// Engine/Compensator method that owns it. A payload type mismatch is
// logged and ignored rather than propagated, since Bus.Subscribe
// allows multiple handlers to share a topic and a future extension
// could register an incompatible one on the same topic by mistake.
func (o *Orchestrator) subscribe() error {
	subs := []struct {
		topic   string
		handler event.Handler
	}{
		{event.TopicExecuteStep, o.onExecuteStep},
		{event.TopicStepCompleted, o.onStepCompleted},
		{event.TopicStepFailed, o.onStepFailed},
		{event.TopicCompensate, o.onCompensate},
		{event.TopicExecuteCompensation, o.onExecuteCompensation},
		{event.TopicCompensationDone, o.onCompensationDone},
	}
	for _, s := range subs {
		if err := o.Bus.Subscribe(s.topic, s.handler); err != nil {
			return fmt.Errorf("orchestrator: subscribe %s: %w", s.topic, err)
		}
	}
	return nil
}

func (o *Orchestrator) onExecuteStep(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(engine.ExecuteStepPayload)
	if !ok {
		o.logger.Error("orchestrator: unexpected payload on execute-step")
		return nil
	}
	o.Engine.ExecuteStep(ctx, p.WorkflowID, p.StepName)
	return nil
}

func (o *Orchestrator) onStepCompleted(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(engine.StepCompletedPayload)
	if !ok {
		o.logger.Error("orchestrator: unexpected payload on step-completed")
		return nil
	}
	o.Engine.HandleStepCompleted(ctx, p.WorkflowID, p.StepName, p.Output)
	return nil
}

func (o *Orchestrator) onStepFailed(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(engine.StepFailedPayload)
	if !ok {
		o.logger.Error("orchestrator: unexpected payload on step-failed")
		return nil
	}
	o.Engine.HandleStepFailed(ctx, p.WorkflowID, p.StepName, p.Error)
	return nil
}

func (o *Orchestrator) onCompensate(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(engine.CompensatePayload)
	if !ok {
		o.logger.Error("orchestrator: unexpected payload on compensate")
		return nil
	}
	o.Compensator.StartCompensation(ctx, p.WorkflowID)
	return nil
}

func (o *Orchestrator) onExecuteCompensation(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(compensator.ExecuteCompensationPayload)
	if !ok {
		o.logger.Error("orchestrator: unexpected payload on execute-compensation")
		return nil
	}
	o.Compensator.ExecuteCompensation(ctx, p.WorkflowID, p.StepName, p.CompensationName)
	return nil
}

func (o *Orchestrator) onCompensationDone(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(compensator.CompensationCompletedPayload)
	if !ok {
		o.logger.Error("orchestrator: unexpected payload on compensation-completed")
		return nil
	}
	o.Compensator.HandleCompensationCompleted(ctx, p.WorkflowID, p.StepName, p.Success, p.Error)
	return nil
}

// Close releases the event bus's resources. The store is owned by the
// caller and is not closed here.
func (o *Orchestrator) Close() error {
	return o.Bus.Close()
}

package compensator

import (
	"context"
	"log/slog"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/compensation"
	"github.com/flowforge/flowforge/event"
	"github.com/flowforge/flowforge/id"
	"github.com/flowforge/flowforge/store"
	"github.com/flowforge/flowforge/workflow"
)

// Compensator drives the reverse path for failed workflows, chaining
// one compensation at a time through the event bus. Like
// Engine, it holds no state between calls.
type Compensator struct {
	store  store.Store
	bus    event.Bus
	logger *slog.Logger
}

// Option configures a Compensator.
type Option func(*Compensator)

// WithLogger sets the logger used for guard-violation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compensator) { c.logger = logger }
}

// New creates a Compensator backed by st for persistence and bus for
// event dispatch.
func New(st store.Store, bus event.Bus, opts ...Option) *Compensator {
	c := &Compensator{store: st, bus: bus, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartCompensation transitions a failed workflow to compensating and
// emits execute-compensation for the most recently registered pending
// record, or finishes immediately if there is nothing to undo.
func (c *Compensator) StartCompensation(ctx context.Context, workflowID string) {
	parsedID, err := id.ParseWorkflowID(workflowID)
	if err != nil {
		c.logger.Error("startCompensation: invalid workflow id", slog.String("workflowId", workflowID))
		return
	}
	inst, err := c.store.GetWorkflow(ctx, parsedID)
	if err != nil {
		c.logger.Error("startCompensation: workflow not found", slog.String("workflowId", workflowID))
		return
	}
	if inst.Status != workflow.StatusFailed {
		c.logger.Warn("startCompensation: workflow not failed",
			slog.String("workflowId", workflowID), slog.String("status", string(inst.Status)))
		return
	}

	if _, err := c.store.UpdateWorkflowStatus(ctx, parsedID, workflow.StatusCompensating, workflow.StatusUpdate{}); err != nil {
		c.logger.Error("startCompensation: update status failed", slog.String("error", err.Error()))
		return
	}

	c.dispatchNextOrFinish(ctx, workflowID)
}

// ExecuteCompensation loads the instance and the original step's
// output, then dispatches on compensate.<compensationName>.
func (c *Compensator) ExecuteCompensation(ctx context.Context, workflowID, stepName, compensationName string) {
	parsedID, err := id.ParseWorkflowID(workflowID)
	if err != nil {
		c.logger.Error("executeCompensation: invalid workflow id", slog.String("workflowId", workflowID))
		return
	}
	inst, err := c.store.GetWorkflow(ctx, parsedID)
	if err != nil {
		c.logger.Error("executeCompensation: workflow not found", slog.String("workflowId", workflowID))
		return
	}

	var originalOutput flowforge.Bag
	exec, err := c.store.GetStep(ctx, workflowID, stepName)
	if err != nil {
		c.logger.Error("executeCompensation: original step not found",
			slog.String("workflowId", workflowID), slog.String("stepName", stepName))
	} else {
		originalOutput = exec.Output
	}

	_ = c.bus.Emit(ctx, event.CompensationTopic(compensationName), CompensationDispatchPayload{
		WorkflowID:       workflowID,
		OriginalStep:     stepName,
		CompensationStep: compensationName,
		Context:          inst.Context,
		OriginalOutput:   originalOutput,
	})
}

// HandleCompensationCompleted records the outcome, marks the original
// step compensated, and either dispatches the new head of the pending
// queue or finishes the chain. A reported success=false does not stop
// the chain.
func (c *Compensator) HandleCompensationCompleted(ctx context.Context, workflowID, stepName string, success bool, errMsg string) {
	result := compensation.ResultSuccess
	if !success {
		result = compensation.ResultFailed
	}
	if _, err := c.store.MarkCompensationExecuted(ctx, workflowID, stepName, result, errMsg); err != nil {
		c.logger.Error("handleCompensationCompleted: mark executed failed", slog.String("error", err.Error()))
		return
	}
	if _, err := c.store.MarkStepCompensated(ctx, workflowID, stepName); err != nil {
		c.logger.Error("handleCompensationCompleted: mark step compensated failed", slog.String("error", err.Error()))
		return
	}

	c.dispatchNextOrFinish(ctx, workflowID)
}

// FinishCompensation transitions the workflow to compensated and
// emits compensation-finished (finishCompensation).
func (c *Compensator) FinishCompensation(ctx context.Context, workflowID string) {
	parsedID, err := id.ParseWorkflowID(workflowID)
	if err != nil {
		c.logger.Error("finishCompensation: invalid workflow id", slog.String("workflowId", workflowID))
		return
	}
	if _, err := c.store.UpdateWorkflowStatus(ctx, parsedID, workflow.StatusCompensated, workflow.StatusUpdate{}); err != nil {
		c.logger.Error("finishCompensation: update status failed", slog.String("error", err.Error()))
		return
	}
	_ = c.bus.Emit(ctx, event.TopicCompensationFinished, CompensationFinishedPayload{WorkflowID: workflowID})
}

// dispatchNextOrFinish re-reads the pending-compensation queue and
// either emits execute-compensation for its head or finishes the
// chain. Re-reading rather than caching the head across calls keeps
// the compensator a pure function of persisted state.
func (c *Compensator) dispatchNextOrFinish(ctx context.Context, workflowID string) {
	pending, err := c.store.GetPendingCompensations(ctx, workflowID)
	if err != nil {
		c.logger.Error("dispatchNextOrFinish: list pending failed", slog.String("error", err.Error()))
		return
	}
	if len(pending) == 0 {
		c.FinishCompensation(ctx, workflowID)
		return
	}

	head := pending[0]
	_ = c.bus.Emit(ctx, event.TopicExecuteCompensation, ExecuteCompensationPayload{
		WorkflowID:       workflowID,
		StepName:         head.StepName,
		CompensationName: head.CompensationName,
	})
}

package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/event"
	"github.com/flowforge/flowforge/id"
	"github.com/flowforge/flowforge/registry"
	"github.com/flowforge/flowforge/step"
	"github.com/flowforge/flowforge/store"
	"github.com/flowforge/flowforge/workflow"
)

// Engine drives forward progress for every registered workflow type. It
// holds no per-workflow state: each method reads what it needs from the
// store and the registry, then persists and emits.
type Engine struct {
	registry *registry.Registry
	store    store.Store
	bus      event.Bus
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for guard-violation and
// persistence-miss diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an Engine over reg, backed by st for persistence and bus
// for event dispatch.
func New(reg *registry.Registry, st store.Store, bus event.Bus, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		store:    st,
		bus:      bus,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartWorkflow validates workflowType, creates a new instance (or
// returns the existing one at workflowID for an idempotent restart),
// and emits execute-step for the first step (startWorkflow).
func (e *Engine) StartWorkflow(ctx context.Context, workflowType string, input flowforge.Bag, workflowID id.WorkflowID) (*workflow.Instance, error) {
	def, ok := e.registry.Get(workflowType)
	if !ok {
		return nil, flowforge.ErrUnknownWorkflowType
	}
	if len(def.Steps) == 0 {
		return nil, flowforge.ErrEmptyWorkflowDefinition
	}

	if workflowID.IsNil() {
		workflowID = id.NewWorkflowID()
	}

	first := def.Steps[0]
	inst, err := e.store.CreateWorkflow(ctx, workflowID, workflowType, first.Name, input)
	if err != nil {
		if errors.Is(err, flowforge.ErrWorkflowAlreadyExists) {
			return e.store.GetWorkflow(ctx, workflowID)
		}
		return nil, err
	}

	if err := e.bus.Emit(ctx, event.TopicExecuteStep, ExecuteStepPayload{
		WorkflowID: inst.ID.String(),
		StepName:   first.Name,
		Context:    inst.Context,
	}); err != nil {
		return nil, err
	}
	return inst, nil
}

// ExecuteStep loads the instance and step definition, records the
// attempt, and dispatches on the step's topic (executeStep). A
// missing instance or step definition is logged and treated as a
// silent no-op — persistence misses never propagate as errors here.
func (e *Engine) ExecuteStep(ctx context.Context, workflowID, stepName string) {
	parsedID, err := id.ParseWorkflowID(workflowID)
	if err != nil {
		e.logger.Error("executeStep: invalid workflow id", slog.String("workflowId", workflowID))
		return
	}
	inst, err := e.store.GetWorkflow(ctx, parsedID)
	if err != nil {
		e.logger.Error("executeStep: workflow not found", slog.String("workflowId", workflowID))
		return
	}

	stepDef, ok := e.registry.GetStep(inst.Type, stepName)
	if !ok {
		e.logger.Error("executeStep: unknown step",
			slog.String("workflowId", workflowID), slog.String("stepName", stepName))
		return
	}

	exec, isNew, err := e.store.RecordStepStart(ctx, workflowID, stepName, inst.Context, 1)
	if err != nil {
		e.logger.Error("executeStep: record start failed", slog.String("error", err.Error()))
		return
	}

	if !isNew {
		switch exec.Status {
		case step.StatusCompleted:
			_ = e.bus.Emit(ctx, event.TopicStepCompleted, StepCompletedPayload{
				WorkflowID: workflowID, StepName: stepName, Output: exec.Output,
			})
			return
		case step.StatusFailed:
			stepErr := step.Error{}
			if exec.Error != nil {
				stepErr = *exec.Error
			}
			_ = e.bus.Emit(ctx, event.TopicStepFailed, StepFailedPayload{
				WorkflowID: workflowID, StepName: stepName, Error: stepErr,
			})
			return
		}
		// StatusRunning: tolerate a possible duplicate dispatch.
	}

	_ = e.bus.Emit(ctx, stepDef.Topic, ExecuteStepPayload{
		WorkflowID: workflowID,
		StepName:   stepName,
		Context:    inst.Context,
	})
}

// HandleStepCompleted records completion, registers a compensation if
// the step is compensable, merges output into the workflow context, and
// either finishes the workflow or advances to the next step.
func (e *Engine) HandleStepCompleted(ctx context.Context, workflowID, stepName string, output flowforge.Bag) {
	if _, err := e.store.RecordStepComplete(ctx, workflowID, stepName, output); err != nil {
		e.logger.Error("handleStepCompleted: record complete failed", slog.String("error", err.Error()))
		return
	}

	parsedID, err := id.ParseWorkflowID(workflowID)
	if err != nil {
		e.logger.Error("handleStepCompleted: invalid workflow id", slog.String("workflowId", workflowID))
		return
	}
	inst, err := e.store.GetWorkflow(ctx, parsedID)
	if err != nil {
		e.logger.Error("handleStepCompleted: workflow not found", slog.String("workflowId", workflowID))
		return
	}

	stepDef, ok := e.registry.GetStep(inst.Type, stepName)
	if !ok {
		e.logger.Error("handleStepCompleted: unknown step",
			slog.String("workflowId", workflowID), slog.String("stepName", stepName))
		return
	}

	if stepDef.Compensable() {
		stepIndex, _ := e.registry.StepIndex(inst.Type, stepName)
		if _, err := e.store.RegisterCompensation(ctx, workflowID, stepName, stepDef.CompensationName, stepIndex); err != nil {
			e.logger.Error("handleStepCompleted: register compensation failed", slog.String("error", err.Error()))
			return
		}
	}

	if e.registry.IsLastStep(inst.Type, stepName) {
		if _, err := e.store.UpdateWorkflowStatus(ctx, parsedID, workflow.StatusCompleted, workflow.StatusUpdate{
			Context: output,
		}); err != nil {
			e.logger.Error("handleStepCompleted: update status failed", slog.String("error", err.Error()))
			return
		}
		_ = e.bus.Emit(ctx, event.TopicWorkflowCompleted, WorkflowCompletedPayload{WorkflowID: workflowID})
		return
	}

	next, ok := e.registry.NextStep(inst.Type, stepName)
	if !ok {
		e.logger.Error("handleStepCompleted: no next step despite not-last",
			slog.String("workflowId", workflowID), slog.String("stepName", stepName))
		return
	}

	if _, err := e.store.AdvanceToStep(ctx, parsedID, next.Name, output); err != nil {
		e.logger.Error("handleStepCompleted: advance failed", slog.String("error", err.Error()))
		return
	}
	_ = e.bus.Emit(ctx, event.TopicExecuteStep, ExecuteStepPayload{
		WorkflowID: workflowID,
		StepName:   next.Name,
	})
}

// HandleStepFailed records the failure, transitions the workflow to
// failed, and hands off to the compensator (handleStepFailed).
func (e *Engine) HandleStepFailed(ctx context.Context, workflowID, stepName string, stepErr step.Error) {
	if _, err := e.store.RecordStepFailure(ctx, workflowID, stepName, stepErr); err != nil {
		e.logger.Error("handleStepFailed: record failure failed", slog.String("error", err.Error()))
		return
	}

	parsedID, err := id.ParseWorkflowID(workflowID)
	if err != nil {
		e.logger.Error("handleStepFailed: invalid workflow id", slog.String("workflowId", workflowID))
		return
	}
	failedStep := stepName
	errMsg := stepErr.Message
	if _, err := e.store.UpdateWorkflowStatus(ctx, parsedID, workflow.StatusFailed, workflow.StatusUpdate{
		FailedStep: &failedStep,
		Error:      &errMsg,
	}); err != nil {
		e.logger.Error("handleStepFailed: update status failed", slog.String("error", err.Error()))
		return
	}

	_ = e.bus.Emit(ctx, event.TopicWorkflowFailed, WorkflowFailedPayload{
		WorkflowID: workflowID,
		FailedStep: failedStep,
		Error:      errMsg,
	})
	_ = e.bus.Emit(ctx, event.TopicCompensate, CompensatePayload{WorkflowID: workflowID})
}

// PauseWorkflow transitions a running workflow to waiting. Any other
// current status is a silent no-op.
func (e *Engine) PauseWorkflow(ctx context.Context, workflowID id.WorkflowID) error {
	_, err := e.store.UpdateWorkflowStatus(ctx, workflowID, workflow.StatusWaiting, workflow.StatusUpdate{})
	return err
}

// ResumeWorkflow transitions a waiting workflow back to running,
// merges signal and payload into context, and re-emits execute-step
// for the current step (resumeWorkflow). Resuming a non-waiting
// workflow is a no-op with a warning log.
func (e *Engine) ResumeWorkflow(ctx context.Context, workflowID id.WorkflowID, signal string, payload flowforge.Bag) {
	inst, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		e.logger.Error("resumeWorkflow: workflow not found", slog.String("workflowId", workflowID.String()))
		return
	}
	if inst.Status != workflow.StatusWaiting {
		e.logger.Warn("resumeWorkflow: workflow not waiting",
			slog.String("workflowId", workflowID.String()), slog.String("status", string(inst.Status)))
		return
	}

	delta := payload.Clone()
	if delta == nil {
		delta = flowforge.Bag{}
	}
	delta["signal"] = signal

	updated, err := e.store.UpdateWorkflowStatus(ctx, workflowID, workflow.StatusRunning, workflow.StatusUpdate{
		Context: delta,
	})
	if err != nil {
		e.logger.Error("resumeWorkflow: update status failed", slog.String("error", err.Error()))
		return
	}

	_ = e.bus.Emit(ctx, event.TopicExecuteStep, ExecuteStepPayload{
		WorkflowID: workflowID.String(),
		StepName:   updated.CurrentStep,
		Context:    updated.Context,
	})
}

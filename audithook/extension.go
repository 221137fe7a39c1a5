package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowforge/flowforge/compensator"
	"github.com/flowforge/flowforge/engine"
	"github.com/flowforge/flowforge/event"
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event, deliberately
// decoupled from any specific audit backend's schema.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges the reserved engine/compensator topics to an
// audit trail backend. It holds no workflow state of its own; each
// subscribed handler turns one event into one audit record.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// Option configures an Extension.
type Option func(*Extension)

// WithActions restricts the extension to emit only the listed actions.
// By default all actions from AllActions are enabled.
func WithActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool, len(actions))
		for _, a := range actions {
			e.enabled[a] = true
		}
	}
}

// WithLogger sets a custom logger for the extension.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extension) { e.logger = l }
}

// New creates an Extension that emits audit events through the
// provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{recorder: r, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe wires every reserved topic to this extension's
// recorder. It returns the first subscription error, if any.
func (e *Extension) Subscribe(bus event.Bus) error {
	subs := []struct {
		topic   string
		handler event.Handler
	}{
		{event.TopicExecuteStep, e.onExecuteStep},
		{event.TopicStepCompleted, e.onStepCompleted},
		{event.TopicStepFailed, e.onStepFailed},
		{event.TopicWorkflowCompleted, e.onWorkflowCompleted},
		{event.TopicWorkflowFailed, e.onWorkflowFailed},
		{event.TopicCompensate, e.onCompensationStarted},
		{event.TopicExecuteCompensation, e.onCompensationDispatched},
		{event.TopicCompensationDone, e.onCompensationCompleted},
		{event.TopicCompensationFinished, e.onCompensationFinished},
	}
	for _, s := range subs {
		if err := bus.Subscribe(s.topic, s.handler); err != nil {
			return fmt.Errorf("audithook: subscribe %s: %w", s.topic, err)
		}
	}
	return nil
}

func (e *Extension) onExecuteStep(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(engine.ExecuteStepPayload)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionStepDispatched, SeverityInfo, OutcomeSuccess,
		p.WorkflowID, CategoryStep, "", "step_name", p.StepName)
}

func (e *Extension) onStepCompleted(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(engine.StepCompletedPayload)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionStepCompleted, SeverityInfo, OutcomeSuccess,
		p.WorkflowID, CategoryStep, "", "step_name", p.StepName)
}

func (e *Extension) onStepFailed(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(engine.StepFailedPayload)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionStepFailed, SeverityWarning, OutcomeFailure,
		p.WorkflowID, CategoryStep, p.Error.Message, "step_name", p.StepName)
}

func (e *Extension) onWorkflowCompleted(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(engine.WorkflowCompletedPayload)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionWorkflowCompleted, SeverityInfo, OutcomeSuccess,
		p.WorkflowID, CategoryWorkflow, "")
}

func (e *Extension) onWorkflowFailed(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(engine.WorkflowFailedPayload)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionWorkflowFailed, SeverityCritical, OutcomeFailure,
		p.WorkflowID, CategoryWorkflow, p.Error, "failed_step", p.FailedStep)
}

func (e *Extension) onCompensationStarted(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(engine.CompensatePayload)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionCompensationStarted, SeverityWarning, OutcomeFailure,
		p.WorkflowID, CategoryCompensation, "")
}

func (e *Extension) onCompensationDispatched(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(compensator.ExecuteCompensationPayload)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionCompensationDispatched, SeverityInfo, OutcomeSuccess,
		p.WorkflowID, CategoryCompensation, "",
		"step_name", p.StepName, "compensation_name", p.CompensationName)
}

func (e *Extension) onCompensationCompleted(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(compensator.CompensationCompletedPayload)
	if !ok {
		return nil
	}
	outcome := OutcomeSuccess
	severity := SeverityInfo
	if !p.Success {
		outcome = OutcomeFailure
		severity = SeverityWarning
	}
	return e.record(ctx, ActionCompensationCompleted, severity, outcome,
		p.WorkflowID, CategoryCompensation, p.Error, "step_name", p.StepName)
}

func (e *Extension) onCompensationFinished(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(compensator.CompensationFinishedPayload)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionCompensationFinished, SeverityInfo, OutcomeSuccess,
		p.WorkflowID, CategoryCompensation, "")
}

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(ctx context.Context, action, severity, outcome, workflowID, category, reason string, kvPairs ...any) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   ResourceWorkflow,
		Category:   category,
		ResourceID: workflowID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if err := e.recorder.Record(ctx, evt); err != nil {
		e.logger.Warn("audithook: failed to record audit event",
			slog.String("action", action),
			slog.String("workflow_id", workflowID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

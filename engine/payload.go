package engine

import (
	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/step"
)

// ExecuteStepPayload is emitted on a step definition's topic to invoke
// its forward handler (executeStep).
type ExecuteStepPayload struct {
	WorkflowID string        `json:"workflowId"`
	StepName   string        `json:"stepName"`
	Context    flowforge.Bag `json:"context"`
}

// StepCompletedPayload is emitted on flowforge.step-completed by a
// forward step handler reporting success.
type StepCompletedPayload struct {
	WorkflowID string        `json:"workflowId"`
	StepName   string        `json:"stepName"`
	Output     flowforge.Bag `json:"output"`
}

// StepFailedPayload is emitted on flowforge.step-failed by a forward
// step handler reporting a business-level failure.
type StepFailedPayload struct {
	WorkflowID string     `json:"workflowId"`
	StepName   string     `json:"stepName"`
	Error      step.Error `json:"error"`
}

// CompensatePayload is emitted on flowforge.compensate to hand a
// failed workflow to the compensator.
type CompensatePayload struct {
	WorkflowID string `json:"workflowId"`
}

// WorkflowCompletedPayload is emitted on flowforge.workflow-completed.
type WorkflowCompletedPayload struct {
	WorkflowID string `json:"workflowId"`
}

// WorkflowFailedPayload is emitted on flowforge.workflow-failed.
type WorkflowFailedPayload struct {
	WorkflowID string `json:"workflowId"`
	FailedStep string `json:"failedStep"`
	Error      string `json:"error"`
}

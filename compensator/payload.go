package compensator

import "github.com/flowforge/flowforge"

// ExecuteCompensationPayload is emitted on flowforge.execute-compensation
// to hand the next compensation in the chain to its dispatch topic.
type ExecuteCompensationPayload struct {
	WorkflowID       string `json:"workflowId"`
	StepName         string `json:"stepName"`
	CompensationName string `json:"compensationName"`
}

// CompensationDispatchPayload is emitted on compensate.<compensationName>
// to invoke a compensation handler (executeCompensation).
type CompensationDispatchPayload struct {
	WorkflowID       string        `json:"workflowId"`
	OriginalStep     string        `json:"originalStep"`
	CompensationStep string        `json:"compensationStep"`
	Context          flowforge.Bag `json:"context"`
	OriginalOutput   flowforge.Bag `json:"originalOutput"`
}

// CompensationCompletedPayload is emitted by a compensation handler on
// flowforge.compensation-completed reporting its outcome.
type CompensationCompletedPayload struct {
	WorkflowID string `json:"workflowId"`
	StepName   string `json:"stepName"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// CompensationFinishedPayload is emitted on
// flowforge.compensation-finished once the reverse path is exhausted.
type CompensationFinishedPayload struct {
	WorkflowID string `json:"workflowId"`
}

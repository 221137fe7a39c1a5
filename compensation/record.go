package compensation

import "time"

// Result is the outcome of a compensation handler invocation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailed  Result = "failed"
)

// Record is the runtime record of one registered compensation on one
// workflow instance. It is keyed by
// (workflowId, stepName), mirroring the Step Execution it undoes.
type Record struct {
	WorkflowID string `json:"workflowId"`
	StepName   string `json:"stepName"`

	// CompensationName is the handler key the step definition declared.
	CompensationName string `json:"compensationName"`

	// RegisteredAt orders compensations within a workflow. Ties (two
	// records registered in the same instant) are broken by StepIndex.
	RegisteredAt time.Time `json:"registeredAt"`
	// StepIndex is the registered step's position in the workflow
	// definition, used only to break RegisteredAt ties deterministically.
	StepIndex int `json:"stepIndex"`

	Executed   bool       `json:"executed"`
	ExecutedAt *time.Time `json:"executedAt,omitempty"`
	Result     Result     `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
}

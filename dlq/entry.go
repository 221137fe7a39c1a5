package dlq

import (
	"time"

	"github.com/flowforge/flowforge/id"
)

// Entry represents one compensation handler invocation that reported
// success=false and so needs operator attention.
type Entry struct {
	ID               id.StuckCompensationID `json:"id"`
	WorkflowID       string                 `json:"workflowId"`
	StepName         string                 `json:"stepName"`
	CompensationName string                 `json:"compensationName"`
	Error            string                 `json:"error"`
	FailedAt         time.Time              `json:"failedAt"`
	ResolvedAt       *time.Time             `json:"resolvedAt,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
}

package step

import (
	"time"

	"github.com/flowforge/flowforge"
)

// Status represents the lifecycle state of a step execution.
type Status string

const (
	// StatusPending means the step has been registered but not dispatched.
	StatusPending Status = "pending"
	// StatusRunning means the step's forward handler has been dispatched.
	StatusRunning Status = "running"
	// StatusCompleted means the handler reported success.
	StatusCompleted Status = "completed"
	// StatusFailed means the handler reported business-level failure.
	StatusFailed Status = "failed"
	// StatusSkipped means the step was never attempted (reserved for
	// future conditional-step support; the core never sets this today).
	StatusSkipped Status = "skipped"
	// StatusCompensated means a completed step's compensation ran.
	StatusCompensated Status = "compensated"
)

// Terminal reports whether s is a status the terminal-overwrite guard
// protects (Invariant 1).
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusSkipped, StatusCompensated:
		return true
	default:
		return false
	}
}

// Error captures a business-level failure reported on a step or
// compensation handler.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// Execution is the runtime record of one step on one workflow instance.
type Execution struct {
	flowforge.Entity

	WorkflowID string `json:"workflowId"`
	StepName   string `json:"stepName"`
	Status     Status `json:"status"`

	// Input is the context snapshot taken at dispatch time.
	Input flowforge.Bag `json:"input"`
	// Output is set on completion; nil until then.
	Output flowforge.Bag `json:"output,omitempty"`
	Error  *Error        `json:"error,omitempty"`

	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Attempt     int        `json:"attempt"`
}

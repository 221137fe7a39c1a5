package workflow

import (
	"context"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/id"
)

// StatusUpdate carries the optional fields UpdateWorkflowStatus may set
// alongside the new status. A nil pointer means "leave unchanged"; this
// distinguishes "clear currentStep" (explicit empty string) from
// "don't touch currentStep" (nil).
type StatusUpdate struct {
	CurrentStep *string
	Context     flowforge.Bag
	FailedStep  *string
	Error       *string
}

// ListOpts controls pagination and filtering for workflow list queries.
type ListOpts struct {
	// Limit is the maximum number of instances to return. Zero means no limit.
	Limit int
	// Offset is the number of instances to skip.
	Offset int
	// Status filters by workflow status. Empty means all statuses.
	Status Status
}

// Store defines the workflow-scoped persistence contract for workflow
// instances. Every operation reads the current record, applies its
// guard, and writes the derived record; there are no multi-key
// transactions.
type Store interface {
	// CreateWorkflow creates a new instance in status running with
	// CurrentStep set to firstStep. Fails with
	// flowforge.ErrWorkflowAlreadyExists if id is already in use.
	CreateWorkflow(ctx context.Context, workflowID id.WorkflowID, workflowType, firstStep string, initial flowforge.Bag) (*Instance, error)

	// GetWorkflow returns the instance at id, or
	// flowforge.ErrWorkflowNotFound if none exists.
	GetWorkflow(ctx context.Context, workflowID id.WorkflowID) (*Instance, error)

	// UpdateWorkflowStatus requires the instance to exist. It merges any
	// Context in update, applies the optional fields, clears CurrentStep
	// to empty when newStatus is terminal and update.CurrentStep is nil,
	// sets Status last, and bumps UpdatedAt. Transitions outside the
	// allowed status graph are rejected by returning the unchanged record.
	UpdateWorkflowStatus(ctx context.Context, workflowID id.WorkflowID, newStatus Status, update StatusUpdate) (*Instance, error)

	// UpdateWorkflowContext merges delta into the instance's context.
	// Requires the instance to exist and not be terminal; on a terminal
	// instance it is a no-op that returns the unchanged record.
	UpdateWorkflowContext(ctx context.Context, workflowID id.WorkflowID, delta flowforge.Bag) (*Instance, error)

	// AdvanceToStep sets CurrentStep=nextStep and merges contextDelta.
	// Requires the instance to exist and be in status running; otherwise
	// it is a no-op that returns the unchanged record.
	AdvanceToStep(ctx context.Context, workflowID id.WorkflowID, nextStep string, contextDelta flowforge.Bag) (*Instance, error)

	// ListWorkflows returns instances matching opts, most recently
	// created first (mirrors the GET /workflows contract).
	ListWorkflows(ctx context.Context, opts ListOpts) ([]*Instance, error)
}

package step

import (
	"context"

	"github.com/flowforge/flowforge"
)

// Store defines the persistence contract for step executions (the
// step-scoped subset of store.Store).
type Store interface {
	// RecordStepStart is an idempotent create: if an Execution already
	// exists for (workflowID, stepName) it is returned unchanged with
	// isNew=false; otherwise one is inserted in status running with the
	// given input snapshot and attempt count.
	RecordStepStart(ctx context.Context, workflowID, stepName string, input flowforge.Bag, attempt int) (exec *Execution, isNew bool, err error)

	// GetStep returns the execution for (workflowID, stepName), or
	// flowforge.ErrStepNotFound if none exists.
	GetStep(ctx context.Context, workflowID, stepName string) (*Execution, error)

	// RecordStepComplete transitions the execution to completed and sets
	// Output/CompletedAt. If the record is already terminal (// Invariant 1) it is returned unchanged.
	RecordStepComplete(ctx context.Context, workflowID, stepName string, output flowforge.Bag) (*Execution, error)

	// RecordStepFailure transitions the execution to failed and sets
	// Error/CompletedAt. If the record is already terminal it is
	// returned unchanged.
	RecordStepFailure(ctx context.Context, workflowID, stepName string, stepErr Error) (*Execution, error)

	// MarkStepCompensated transitions the execution to compensated and
	// sets CompletedAt. Requires the record to exist.
	MarkStepCompensated(ctx context.Context, workflowID, stepName string) (*Execution, error)

	// ListSteps returns every execution recorded for workflowID, ordered
	// by StartedAt ascending (mirrors the GET /workflows/:id contract).
	ListSteps(ctx context.Context, workflowID string) ([]*Execution, error)
}

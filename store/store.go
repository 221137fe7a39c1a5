package store

import (
	"context"

	"github.com/flowforge/flowforge/compensation"
	"github.com/flowforge/flowforge/id"
	"github.com/flowforge/flowforge/step"
	"github.com/flowforge/flowforge/workflow"
)

// History is the aggregate view returned by GetWorkflowHistory: the
// instance plus every step execution and compensation record recorded
// against it.
type History struct {
	Workflow      *workflow.Instance     `json:"workflow"`
	Steps         []*step.Execution      `json:"steps"`
	Compensations []*compensation.Record `json:"compensations"`
}

// Store is the aggregate persistence interface. A single backend
// (memory, postgres) implements all three subsystem contracts plus the
// lifecycle and aggregate-read methods below.
type Store interface {
	workflow.Store
	step.Store
	compensation.Store

	// GetWorkflowHistory returns the instance plus all step executions
	// and compensation records for workflowID, or
	// flowforge.ErrWorkflowNotFound if the instance does not exist.
	GetWorkflowHistory(ctx context.Context, workflowID id.WorkflowID) (*History, error)

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

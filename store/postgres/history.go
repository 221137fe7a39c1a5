package postgres

import (
	"context"

	"github.com/flowforge/flowforge/id"
	"github.com/flowforge/flowforge/store"
)

// GetWorkflowHistory implements store.Store.
func (s *Store) GetWorkflowHistory(ctx context.Context, workflowID id.WorkflowID) (*store.History, error) {
	inst, err := s.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	steps, err := s.ListSteps(ctx, workflowID.String())
	if err != nil {
		return nil, err
	}
	comps, err := s.ListCompensations(ctx, workflowID.String())
	if err != nil {
		return nil, err
	}
	return &store.History{Workflow: inst, Steps: steps, Compensations: comps}, nil
}

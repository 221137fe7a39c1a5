package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/id"
	"github.com/flowforge/flowforge/workflow"
)

// CreateWorkflow implements workflow.Store.
func (s *Store) CreateWorkflow(ctx context.Context, workflowID id.WorkflowID, workflowType, firstStep string, initial flowforge.Bag) (*workflow.Instance, error) {
	inst := &workflow.Instance{
		Entity:      flowforge.NewEntity(),
		ID:          workflowID,
		Type:        workflowType,
		Status:      workflow.StatusRunning,
		CurrentStep: firstStep,
		Context:     initial.Clone(),
	}
	m, err := toWorkflowModel(inst)
	if err != nil {
		return nil, fmt.Errorf("flowforge/postgres: create workflow: %w", err)
	}
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		if isDuplicateKey(err) {
			return nil, flowforge.ErrWorkflowAlreadyExists
		}
		return nil, fmt.Errorf("flowforge/postgres: create workflow: %w", err)
	}
	return inst, nil
}

// GetWorkflow implements workflow.Store.
func (s *Store) GetWorkflow(ctx context.Context, workflowID id.WorkflowID) (*workflow.Instance, error) {
	m := new(workflowModel)
	err := s.db.NewSelect().Model(m).Where("id = ?", workflowID.String()).Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, flowforge.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("flowforge/postgres: get workflow: %w", err)
	}
	return fromWorkflowModel(m)
}

func allowedStatusTransition(from, to workflow.Status) bool {
	switch from {
	case workflow.StatusRunning:
		switch to {
		case workflow.StatusRunning, workflow.StatusWaiting, workflow.StatusCompleted, workflow.StatusFailed:
			return true
		}
	case workflow.StatusWaiting:
		return to == workflow.StatusRunning
	case workflow.StatusFailed:
		return to == workflow.StatusCompensating
	case workflow.StatusCompensating:
		return to == workflow.StatusCompensated
	}
	return false
}

// UpdateWorkflowStatus implements workflow.Store.
func (s *Store) UpdateWorkflowStatus(ctx context.Context, workflowID id.WorkflowID, newStatus workflow.Status, update workflow.StatusUpdate) (*workflow.Instance, error) {
	var result *workflow.Instance
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		m := new(workflowModel)
		if err := tx.NewSelect().Model(m).Where("id = ?", workflowID.String()).Limit(1).For("UPDATE").Scan(ctx); err != nil {
			if isNoRows(err) {
				return flowforge.ErrWorkflowNotFound
			}
			return err
		}

		inst, err := fromWorkflowModel(m)
		if err != nil {
			return err
		}

		if !allowedStatusTransition(inst.Status, newStatus) {
			result = inst
			return nil
		}

		if update.Context != nil {
			inst.Context = inst.Context.Merge(update.Context)
		}
		if update.FailedStep != nil {
			inst.FailedStep = *update.FailedStep
		}
		if update.Error != nil {
			inst.Error = *update.Error
		}
		switch {
		case update.CurrentStep != nil:
			inst.CurrentStep = *update.CurrentStep
		case newStatus.Terminal():
			inst.CurrentStep = ""
		}
		inst.Status = newStatus
		inst.Entity = inst.Entity.Touch()

		updated, mErr := toWorkflowModel(inst)
		if mErr != nil {
			return mErr
		}
		if _, err := tx.NewUpdate().Model(updated).WherePK().Exec(ctx); err != nil {
			return err
		}
		result = inst
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("flowforge/postgres: update workflow status: %w", err)
	}
	return result, nil
}

// UpdateWorkflowContext implements workflow.Store.
func (s *Store) UpdateWorkflowContext(ctx context.Context, workflowID id.WorkflowID, delta flowforge.Bag) (*workflow.Instance, error) {
	var result *workflow.Instance
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		m := new(workflowModel)
		if err := tx.NewSelect().Model(m).Where("id = ?", workflowID.String()).Limit(1).For("UPDATE").Scan(ctx); err != nil {
			if isNoRows(err) {
				return flowforge.ErrWorkflowNotFound
			}
			return err
		}
		inst, err := fromWorkflowModel(m)
		if err != nil {
			return err
		}
		if inst.Status.Terminal() {
			result = inst
			return nil
		}
		inst.Context = inst.Context.Merge(delta)
		inst.Entity = inst.Entity.Touch()

		updated, mErr := toWorkflowModel(inst)
		if mErr != nil {
			return mErr
		}
		if _, err := tx.NewUpdate().Model(updated).WherePK().Exec(ctx); err != nil {
			return err
		}
		result = inst
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("flowforge/postgres: update workflow context: %w", err)
	}
	return result, nil
}

// AdvanceToStep implements workflow.Store.
func (s *Store) AdvanceToStep(ctx context.Context, workflowID id.WorkflowID, nextStep string, contextDelta flowforge.Bag) (*workflow.Instance, error) {
	var result *workflow.Instance
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		m := new(workflowModel)
		if err := tx.NewSelect().Model(m).Where("id = ?", workflowID.String()).Limit(1).For("UPDATE").Scan(ctx); err != nil {
			if isNoRows(err) {
				return flowforge.ErrWorkflowNotFound
			}
			return err
		}
		inst, err := fromWorkflowModel(m)
		if err != nil {
			return err
		}
		if inst.Status != workflow.StatusRunning {
			result = inst
			return nil
		}
		inst.CurrentStep = nextStep
		inst.Context = inst.Context.Merge(contextDelta)
		inst.Entity = inst.Entity.Touch()

		updated, mErr := toWorkflowModel(inst)
		if mErr != nil {
			return mErr
		}
		if _, err := tx.NewUpdate().Model(updated).WherePK().Exec(ctx); err != nil {
			return err
		}
		result = inst
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("flowforge/postgres: advance to step: %w", err)
	}
	return result, nil
}

// ListWorkflows implements workflow.Store.
func (s *Store) ListWorkflows(ctx context.Context, opts workflow.ListOpts) ([]*workflow.Instance, error) {
	var models []workflowModel
	q := s.db.NewSelect().Model(&models)
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	q = q.Order("created_at DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("flowforge/postgres: list workflows: %w", err)
	}

	result := make([]*workflow.Instance, 0, len(models))
	for i := range models {
		inst, err := fromWorkflowModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("flowforge/postgres: list workflows convert: %w", err)
		}
		result = append(result, inst)
	}
	return result, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/step"
)

// RecordStepStart implements step.Store.
func (s *Store) RecordStepStart(ctx context.Context, workflowID, stepName string, input flowforge.Bag, attempt int) (*step.Execution, bool, error) {
	var (
		result *step.Execution
		isNew  bool
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := new(stepModel)
		err := tx.NewSelect().Model(existing).
			Where("workflow_id = ? AND step_name = ?", workflowID, stepName).
			Limit(1).For("UPDATE").Scan(ctx)
		if err == nil {
			result, err = fromStepModel(existing)
			return err
		}
		if !isNoRows(err) {
			return err
		}

		exec := &step.Execution{
			Entity:     flowforge.NewEntity(),
			WorkflowID: workflowID,
			StepName:   stepName,
			Status:     step.StatusRunning,
			Input:      input.Clone(),
			StartedAt:  time.Now().UTC(),
			Attempt:    attempt,
		}
		m, mErr := toStepModel(exec)
		if mErr != nil {
			return mErr
		}
		if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
			if isDuplicateKey(err) {
				// Lost the race to a concurrent inserter; read it back.
				if selErr := tx.NewSelect().Model(existing).
					Where("workflow_id = ? AND step_name = ?", workflowID, stepName).
					Limit(1).Scan(ctx); selErr != nil {
					return selErr
				}
				result, err = fromStepModel(existing)
				return err
			}
			return err
		}
		result = exec
		isNew = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("flowforge/postgres: record step start: %w", err)
	}
	return result, isNew, nil
}

// GetStep implements step.Store.
func (s *Store) GetStep(ctx context.Context, workflowID, stepName string) (*step.Execution, error) {
	m := new(stepModel)
	err := s.db.NewSelect().Model(m).
		Where("workflow_id = ? AND step_name = ?", workflowID, stepName).
		Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, flowforge.ErrStepNotFound
		}
		return nil, fmt.Errorf("flowforge/postgres: get step: %w", err)
	}
	return fromStepModel(m)
}

func (s *Store) transitionStepTerminal(ctx context.Context, workflowID, stepName string, apply func(*step.Execution)) (*step.Execution, error) {
	var result *step.Execution
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		m := new(stepModel)
		if err := tx.NewSelect().Model(m).
			Where("workflow_id = ? AND step_name = ?", workflowID, stepName).
			Limit(1).For("UPDATE").Scan(ctx); err != nil {
			if isNoRows(err) {
				return flowforge.ErrStepNotFound
			}
			return err
		}
		exec, err := fromStepModel(m)
		if err != nil {
			return err
		}
		if exec.Status.Terminal() {
			result = exec
			return nil
		}
		apply(exec)
		exec.Entity = exec.Entity.Touch()

		updated, mErr := toStepModel(exec)
		if mErr != nil {
			return mErr
		}
		if _, err := tx.NewUpdate().Model(updated).
			Where("workflow_id = ? AND step_name = ?", workflowID, stepName).
			Exec(ctx); err != nil {
			return err
		}
		result = exec
		return nil
	})
	return result, err
}

// RecordStepComplete implements step.Store.
func (s *Store) RecordStepComplete(ctx context.Context, workflowID, stepName string, output flowforge.Bag) (*step.Execution, error) {
	now := time.Now().UTC()
	result, err := s.transitionStepTerminal(ctx, workflowID, stepName, func(e *step.Execution) {
		e.Status = step.StatusCompleted
		e.Output = output.Clone()
		e.CompletedAt = &now
	})
	if err != nil {
		return nil, fmt.Errorf("flowforge/postgres: record step complete: %w", err)
	}
	return result, nil
}

// RecordStepFailure implements step.Store.
func (s *Store) RecordStepFailure(ctx context.Context, workflowID, stepName string, stepErr step.Error) (*step.Execution, error) {
	now := time.Now().UTC()
	result, err := s.transitionStepTerminal(ctx, workflowID, stepName, func(e *step.Execution) {
		e.Status = step.StatusFailed
		e.Error = &stepErr
		e.CompletedAt = &now
	})
	if err != nil {
		return nil, fmt.Errorf("flowforge/postgres: record step failure: %w", err)
	}
	return result, nil
}

// MarkStepCompensated implements step.Store.
func (s *Store) MarkStepCompensated(ctx context.Context, workflowID, stepName string) (*step.Execution, error) {
	now := time.Now().UTC()
	m := new(stepModel)
	err := s.db.NewSelect().Model(m).
		Where("workflow_id = ? AND step_name = ?", workflowID, stepName).
		Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, flowforge.ErrStepNotFound
		}
		return nil, fmt.Errorf("flowforge/postgres: mark step compensated: %w", err)
	}
	exec, err := fromStepModel(m)
	if err != nil {
		return nil, err
	}
	exec.Status = step.StatusCompensated
	exec.CompletedAt = &now
	exec.Entity = exec.Entity.Touch()

	updated, err := toStepModel(exec)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.NewUpdate().Model(updated).
		Where("workflow_id = ? AND step_name = ?", workflowID, stepName).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("flowforge/postgres: mark step compensated: %w", err)
	}
	return exec, nil
}

// ListSteps implements step.Store.
func (s *Store) ListSteps(ctx context.Context, workflowID string) ([]*step.Execution, error) {
	var models []stepModel
	err := s.db.NewSelect().Model(&models).
		Where("workflow_id = ?", workflowID).
		Order("started_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("flowforge/postgres: list steps: %w", err)
	}
	result := make([]*step.Execution, 0, len(models))
	for i := range models {
		e, err := fromStepModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("flowforge/postgres: list steps convert: %w", err)
		}
		result = append(result, e)
	}
	return result, nil
}

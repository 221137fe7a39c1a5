package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/compensation"
)

// RegisterCompensation implements compensation.Store.
func (s *Store) RegisterCompensation(ctx context.Context, workflowID, stepName, compensationName string, stepIndex int) (*compensation.Record, error) {
	rec := &compensation.Record{
		WorkflowID:       workflowID,
		StepName:         stepName,
		CompensationName: compensationName,
		RegisteredAt:     time.Now().UTC(),
		StepIndex:        stepIndex,
	}
	m := toCompensationModel(rec)
	_, err := s.db.NewInsert().Model(m).
		On("CONFLICT (workflow_id, step_name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("flowforge/postgres: register compensation: %w", err)
	}

	existing := new(compensationModel)
	if err := s.db.NewSelect().Model(existing).
		Where("workflow_id = ? AND step_name = ?", workflowID, stepName).
		Limit(1).Scan(ctx); err != nil {
		return nil, fmt.Errorf("flowforge/postgres: register compensation read-back: %w", err)
	}
	return fromCompensationModel(existing), nil
}

// GetPendingCompensations implements compensation.Store.
func (s *Store) GetPendingCompensations(ctx context.Context, workflowID string) ([]*compensation.Record, error) {
	var models []compensationModel
	err := s.db.NewSelect().Model(&models).
		Where("workflow_id = ? AND executed = FALSE", workflowID).
		Order("registered_at DESC", "step_index DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("flowforge/postgres: get pending compensations: %w", err)
	}
	result := make([]*compensation.Record, 0, len(models))
	for i := range models {
		result = append(result, fromCompensationModel(&models[i]))
	}
	return result, nil
}

// MarkCompensationExecuted implements compensation.Store.
func (s *Store) MarkCompensationExecuted(ctx context.Context, workflowID, stepName string, result compensation.Result, errMsg string) (*compensation.Record, error) {
	existing := new(compensationModel)
	err := s.db.NewSelect().Model(existing).
		Where("workflow_id = ? AND step_name = ?", workflowID, stepName).
		Limit(1).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, flowforge.ErrCompensationNotFound
		}
		return nil, fmt.Errorf("flowforge/postgres: mark compensation executed: %w", err)
	}
	if existing.Executed {
		return fromCompensationModel(existing), nil
	}

	now := time.Now().UTC()
	existing.Executed = true
	existing.ExecutedAt = &now
	existing.Result = string(result)
	existing.Error = errMsg

	if _, err := s.db.NewUpdate().Model(existing).
		Where("workflow_id = ? AND step_name = ?", workflowID, stepName).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("flowforge/postgres: mark compensation executed: %w", err)
	}
	return fromCompensationModel(existing), nil
}

// ListCompensations implements compensation.Store.
func (s *Store) ListCompensations(ctx context.Context, workflowID string) ([]*compensation.Record, error) {
	var models []compensationModel
	err := s.db.NewSelect().Model(&models).
		Where("workflow_id = ?", workflowID).
		Order("registered_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("flowforge/postgres: list compensations: %w", err)
	}
	result := make([]*compensation.Record, 0, len(models))
	for i := range models {
		result = append(result, fromCompensationModel(&models[i]))
	}
	return result, nil
}

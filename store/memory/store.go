package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/compensation"
	"github.com/flowforge/flowforge/id"
	"github.com/flowforge/flowforge/step"
	"github.com/flowforge/flowforge/store"
	"github.com/flowforge/flowforge/workflow"
)

// Ensure Store implements store.Store at compile time.
var _ store.Store = (*Store)(nil)

// Store is a fully in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	workflows map[string]*workflow.Instance
	steps     map[string]*step.Execution      // key: stepKey(workflowID, stepName)
	comps     map[string]*compensation.Record // key: stepKey(workflowID, stepName)
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		workflows: make(map[string]*workflow.Instance),
		steps:     make(map[string]*step.Execution),
		comps:     make(map[string]*compensation.Record),
	}
}

func stepKey(workflowID, stepName string) string {
	return workflowID + "\x00" + stepName
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Workflow Store
// ──────────────────────────────────────────────────

// CreateWorkflow implements workflow.Store.
func (m *Store) CreateWorkflow(_ context.Context, workflowID id.WorkflowID, workflowType, firstStep string, initial flowforge.Bag) (*workflow.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := workflowID.String()
	if _, exists := m.workflows[key]; exists {
		return nil, flowforge.ErrWorkflowAlreadyExists
	}

	inst := &workflow.Instance{
		Entity:      flowforge.NewEntity(),
		ID:          workflowID,
		Type:        workflowType,
		Status:      workflow.StatusRunning,
		CurrentStep: firstStep,
		Context:     initial.Clone(),
	}
	m.workflows[key] = inst
	return inst.Clone(), nil
}

// GetWorkflow implements workflow.Store.
func (m *Store) GetWorkflow(_ context.Context, workflowID id.WorkflowID) (*workflow.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.workflows[workflowID.String()]
	if !ok {
		return nil, flowforge.ErrWorkflowNotFound
	}
	return inst.Clone(), nil
}

// allowedStatusTransition reports whether the workflow status graph
// documented in package workflow permits from → to. Advancing within running (currentStep
// changes without a status change) is handled by AdvanceToStep, not
// this table.
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
func (m *Store) UpdateWorkflowStatus(_ context.Context, workflowID id.WorkflowID, newStatus workflow.Status, update workflow.StatusUpdate) (*workflow.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.workflows[workflowID.String()]
	if !ok {
		return nil, flowforge.ErrWorkflowNotFound
	}

	if !allowedStatusTransition(inst.Status, newStatus) {
		return inst.Clone(), nil
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
	return inst.Clone(), nil
}

// UpdateWorkflowContext implements workflow.Store.
func (m *Store) UpdateWorkflowContext(_ context.Context, workflowID id.WorkflowID, delta flowforge.Bag) (*workflow.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.workflows[workflowID.String()]
	if !ok {
		return nil, flowforge.ErrWorkflowNotFound
	}
	if inst.Status.Terminal() {
		return inst.Clone(), nil
	}
	inst.Context = inst.Context.Merge(delta)
	inst.Entity = inst.Entity.Touch()
	return inst.Clone(), nil
}

// AdvanceToStep implements workflow.Store.
func (m *Store) AdvanceToStep(_ context.Context, workflowID id.WorkflowID, nextStep string, contextDelta flowforge.Bag) (*workflow.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.workflows[workflowID.String()]
	if !ok {
		return nil, flowforge.ErrWorkflowNotFound
	}
	if inst.Status != workflow.StatusRunning {
		return inst.Clone(), nil
	}
	inst.CurrentStep = nextStep
	inst.Context = inst.Context.Merge(contextDelta)
	inst.Entity = inst.Entity.Touch()
	return inst.Clone(), nil
}

// ListWorkflows implements workflow.Store.
func (m *Store) ListWorkflows(_ context.Context, opts workflow.ListOpts) ([]*workflow.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*workflow.Instance, 0, len(m.workflows))
	for _, inst := range m.workflows {
		if opts.Status != "" && inst.Status != opts.Status {
			continue
		}
		all = append(all, inst)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(all) {
			return []*workflow.Instance{}, nil
		}
		all = all[opts.Offset:]
	}
	if opts.Limit > 0 && len(all) > opts.Limit {
		all = all[:opts.Limit]
	}

	result := make([]*workflow.Instance, len(all))
	for i, inst := range all {
		result[i] = inst.Clone()
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Step Store
// ──────────────────────────────────────────────────

// RecordStepStart implements step.Store.
func (m *Store) RecordStepStart(_ context.Context, workflowID, stepName string, input flowforge.Bag, attempt int) (*step.Execution, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := stepKey(workflowID, stepName)
	if existing, ok := m.steps[key]; ok {
		cp := *existing
		return &cp, false, nil
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
	m.steps[key] = exec
	cp := *exec
	return &cp, true, nil
}

// GetStep implements step.Store.
func (m *Store) GetStep(_ context.Context, workflowID, stepName string) (*step.Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exec, ok := m.steps[stepKey(workflowID, stepName)]
	if !ok {
		return nil, flowforge.ErrStepNotFound
	}
	cp := *exec
	return &cp, nil
}

// RecordStepComplete implements step.Store.
func (m *Store) RecordStepComplete(_ context.Context, workflowID, stepName string, output flowforge.Bag) (*step.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exec, ok := m.steps[stepKey(workflowID, stepName)]
	if !ok {
		return nil, flowforge.ErrStepNotFound
	}
	if exec.Status.Terminal() {
		cp := *exec
		return &cp, nil
	}
	now := time.Now().UTC()
	exec.Status = step.StatusCompleted
	exec.Output = output.Clone()
	exec.CompletedAt = &now
	exec.Entity = exec.Entity.Touch()
	cp := *exec
	return &cp, nil
}

// RecordStepFailure implements step.Store.
func (m *Store) RecordStepFailure(_ context.Context, workflowID, stepName string, stepErr step.Error) (*step.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exec, ok := m.steps[stepKey(workflowID, stepName)]
	if !ok {
		return nil, flowforge.ErrStepNotFound
	}
	if exec.Status.Terminal() {
		cp := *exec
		return &cp, nil
	}
	now := time.Now().UTC()
	exec.Status = step.StatusFailed
	exec.Error = &stepErr
	exec.CompletedAt = &now
	exec.Entity = exec.Entity.Touch()
	cp := *exec
	return &cp, nil
}

// MarkStepCompensated implements step.Store.
func (m *Store) MarkStepCompensated(_ context.Context, workflowID, stepName string) (*step.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exec, ok := m.steps[stepKey(workflowID, stepName)]
	if !ok {
		return nil, flowforge.ErrStepNotFound
	}
	now := time.Now().UTC()
	exec.Status = step.StatusCompensated
	exec.CompletedAt = &now
	exec.Entity = exec.Entity.Touch()
	cp := *exec
	return &cp, nil
}

// ListSteps implements step.Store.
func (m *Store) ListSteps(_ context.Context, workflowID string) ([]*step.Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*step.Execution, 0)
	for _, exec := range m.steps {
		if exec.WorkflowID != workflowID {
			continue
		}
		cp := *exec
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result, nil
}

// ──────────────────────────────────────────────────
// Compensation Store
// ──────────────────────────────────────────────────

// RegisterCompensation implements compensation.Store.
func (m *Store) RegisterCompensation(_ context.Context, workflowID, stepName, compensationName string, stepIndex int) (*compensation.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := stepKey(workflowID, stepName)
	if existing, ok := m.comps[key]; ok {
		cp := *existing
		return &cp, nil
	}
	rec := &compensation.Record{
		WorkflowID:       workflowID,
		StepName:         stepName,
		CompensationName: compensationName,
		RegisteredAt:     time.Now().UTC(),
		StepIndex:        stepIndex,
	}
	m.comps[key] = rec
	cp := *rec
	return &cp, nil
}

// GetPendingCompensations implements compensation.Store.
func (m *Store) GetPendingCompensations(_ context.Context, workflowID string) ([]*compensation.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pending := make([]*compensation.Record, 0)
	for _, rec := range m.comps {
		if rec.WorkflowID != workflowID || rec.Executed {
			continue
		}
		cp := *rec
		pending = append(pending, &cp)
	}
	// Stable reverse sort by RegisteredAt, ties broken by StepIndex — both
	// descending, so the most recently registered (and, within a tie, the
	// later step) comes first.
	sort.SliceStable(pending, func(i, j int) bool {
		if !pending[i].RegisteredAt.Equal(pending[j].RegisteredAt) {
			return pending[i].RegisteredAt.After(pending[j].RegisteredAt)
		}
		return pending[i].StepIndex > pending[j].StepIndex
	})
	return pending, nil
}

// MarkCompensationExecuted implements compensation.Store.
func (m *Store) MarkCompensationExecuted(_ context.Context, workflowID, stepName string, result compensation.Result, errMsg string) (*compensation.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.comps[stepKey(workflowID, stepName)]
	if !ok {
		return nil, flowforge.ErrCompensationNotFound
	}
	if rec.Executed {
		cp := *rec
		return &cp, nil
	}
	now := time.Now().UTC()
	rec.Executed = true
	rec.ExecutedAt = &now
	rec.Result = result
	rec.Error = errMsg
	cp := *rec
	return &cp, nil
}

// ListCompensations implements compensation.Store.
func (m *Store) ListCompensations(_ context.Context, workflowID string) ([]*compensation.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*compensation.Record, 0)
	for _, rec := range m.comps {
		if rec.WorkflowID != workflowID {
			continue
		}
		cp := *rec
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RegisteredAt.Before(result[j].RegisteredAt)
	})
	return result, nil
}

// ──────────────────────────────────────────────────
// Aggregate read
// ──────────────────────────────────────────────────

// GetWorkflowHistory implements store.Store.
func (m *Store) GetWorkflowHistory(ctx context.Context, workflowID id.WorkflowID) (*store.History, error) {
	inst, err := m.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	steps, err := m.ListSteps(ctx, workflowID.String())
	if err != nil {
		return nil, err
	}
	comps, err := m.ListCompensations(ctx, workflowID.String())
	if err != nil {
		return nil, err
	}
	return &store.History{Workflow: inst, Steps: steps, Compensations: comps}, nil
}

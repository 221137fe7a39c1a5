package compensation

import "context"

// Store defines the persistence contract for compensation records (the
// compensation-scoped subset of store.Store).
type Store interface {
	// RegisterCompensation is an idempotent create: if a record already
	// exists for (workflowID, stepName) it is returned unchanged;
	// otherwise one is inserted with Executed=false and RegisteredAt=now.
	RegisterCompensation(ctx context.Context, workflowID, stepName, compensationName string, stepIndex int) (*Record, error)

	// GetPendingCompensations returns every unexecuted record for
	// workflowID, sorted by RegisteredAt descending with ties broken by
	// StepIndex descending — a
	// stable reverse sort over registration order.
	GetPendingCompensations(ctx context.Context, workflowID string) ([]*Record, error)

	// MarkCompensationExecuted sets Executed=true, ExecutedAt, Result and
	// Error on the record for (workflowID, stepName). If the record is
	// already executed, it is returned unchanged. Requires the record to
	// exist.
	MarkCompensationExecuted(ctx context.Context, workflowID, stepName string, result Result, errMsg string) (*Record, error)

	// ListCompensations returns every record for workflowID, ordered by
	// RegisteredAt ascending (mirrors the GET /workflows/:id contract).
	ListCompensations(ctx context.Context, workflowID string) ([]*Record, error)
}

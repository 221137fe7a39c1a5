package dlq

import (
	"context"
	"time"

	"github.com/flowforge/flowforge/id"
)

// ListOpts controls pagination and filtering for ledger list queries.
type ListOpts struct {
	// Limit is the maximum number of entries to return. Zero means no limit.
	Limit int
	// Offset is the number of entries to skip.
	Offset int
	// WorkflowID filters to a single workflow instance. Empty means all.
	WorkflowID string
}

// Store defines the persistence contract for the stuck-compensation
// ledger.
type Store interface {
	// PushEntry adds a failed-compensation entry.
	PushEntry(ctx context.Context, entry *Entry) error

	// ListEntries returns entries matching opts.
	ListEntries(ctx context.Context, opts ListOpts) ([]*Entry, error)

	// GetEntry retrieves an entry by ID.
	GetEntry(ctx context.Context, entryID id.StuckCompensationID) (*Entry, error)

	// ResolveEntry marks an entry resolved.
	ResolveEntry(ctx context.Context, entryID id.StuckCompensationID) error

	// PurgeEntries removes entries with FailedAt before the given time.
	// Returns the number of entries removed.
	PurgeEntries(ctx context.Context, before time.Time) (int64, error)

	// CountEntries returns the total number of unresolved entries.
	CountEntries(ctx context.Context) (int64, error)
}

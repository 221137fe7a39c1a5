package dlq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowforge/flowforge/compensator"
	"github.com/flowforge/flowforge/event"
	"github.com/flowforge/flowforge/id"
)

// Service subscribes to the compensation-completed topic and maintains
// the stuck-compensation ledger over a Store.
type Service struct {
	store  Store
	bus    event.Bus
	logger *slog.Logger
}

// NewService creates a Service backed by store, dispatching retries
// through bus.
func NewService(store Store, bus event.Bus) *Service {
	return &Service{store: store, bus: bus, logger: slog.Default()}
}

// Subscribe wires the service to flowforge.compensation-completed. Every
// success=false report is pushed as a new ledger Entry.
func (s *Service) Subscribe(bus event.Bus) error {
	return bus.Subscribe(event.TopicCompensationDone, s.onCompensationCompleted)
}

func (s *Service) onCompensationCompleted(ctx context.Context, evt event.Event) error {
	p, ok := evt.Data.(compensator.CompensationCompletedPayload)
	if !ok || p.Success {
		return nil
	}

	now := time.Now().UTC()
	entry := &Entry{
		ID:         id.NewStuckCompensationID(),
		WorkflowID: p.WorkflowID,
		StepName:   p.StepName,
		Error:      p.Error,
		FailedAt:   now,
		CreatedAt:  now,
	}
	if err := s.store.PushEntry(ctx, entry); err != nil {
		s.logger.Error("dlq: push entry failed",
			slog.String("workflowId", p.WorkflowID), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Resolve marks entryID resolved.
func (s *Service) Resolve(ctx context.Context, entryID id.StuckCompensationID) error {
	return s.store.ResolveEntry(ctx, entryID)
}

// errEntryResolved is returned by Retry when entryID has already been resolved.
var errEntryResolved = fmt.Errorf("dlq: entry already resolved")

// errEntryNotFound is returned by Store implementations when no entry
// matches the given ID.
var errEntryNotFound = fmt.Errorf("dlq: entry not found")

// LedgerStore returns the underlying Store for direct list/get/purge/count access.
func (s *Service) LedgerStore() Store {
	return s.store
}

package dlq

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flowforge/flowforge/id"
)

// MemStore is an in-process Store backed by a guarded map, suitable for
// tests and single-process deployments.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemStore creates an empty in-memory ledger store.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]*Entry)}
}

// PushEntry implements Store.
func (m *MemStore) PushEntry(_ context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID.String()] = entry
	return nil
}

// ListEntries implements Store.
func (m *MemStore) ListEntries(_ context.Context, opts ListOpts) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if opts.WorkflowID != "" && e.WorkflowID != opts.WorkflowID {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].FailedAt.Before(result[k].FailedAt)
	})

	if opts.Offset > 0 && opts.Offset < len(result) {
		result = result[opts.Offset:]
	} else if opts.Offset >= len(result) {
		result = nil
	}
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

// GetEntry implements Store.
func (m *MemStore) GetEntry(_ context.Context, entryID id.StuckCompensationID) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[entryID.String()]
	if !ok {
		return nil, fmt.Errorf("dlq: entry %s: %w", entryID, errEntryNotFound)
	}
	return e, nil
}

// ResolveEntry implements Store.
func (m *MemStore) ResolveEntry(_ context.Context, entryID id.StuckCompensationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID.String()]
	if !ok {
		return fmt.Errorf("dlq: entry %s: %w", entryID, errEntryNotFound)
	}
	now := time.Now().UTC()
	e.ResolvedAt = &now
	return nil
}

// PurgeEntries implements Store.
func (m *MemStore) PurgeEntries(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for key, e := range m.entries {
		if e.FailedAt.Before(before) {
			delete(m.entries, key)
			count++
		}
	}
	return count, nil
}

// CountEntries implements Store.
func (m *MemStore) CountEntries(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, e := range m.entries {
		if e.ResolvedAt == nil {
			count++
		}
	}
	return count, nil
}

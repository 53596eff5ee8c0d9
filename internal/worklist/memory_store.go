package worklist

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store, used when no
// database is configured and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	pending   map[string][]string        // reviewer -> queued IDs, insertion order
	pendingIx map[string]map[string]bool // reviewer -> set of queued IDs
	history   map[string][]Decision      // reviewer -> decisions, append order
}

// NewMemoryStore creates a new in-memory worklist store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pending:   make(map[string][]string),
		pendingIx: make(map[string]map[string]bool),
		history:   make(map[string][]Decision),
	}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// Add queues a transaction for a reviewer.
func (m *MemoryStore) Add(ctx context.Context, reviewer, txID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pendingIx[reviewer] == nil {
		m.pendingIx[reviewer] = make(map[string]bool)
	}
	if m.pendingIx[reviewer][txID] {
		return false, nil
	}
	m.pendingIx[reviewer][txID] = true
	m.pending[reviewer] = append(m.pending[reviewer], txID)
	return true, nil
}

// Remove deletes a pending entry.
func (m *MemoryStore) Remove(ctx context.Context, reviewer, txID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.pendingIx[reviewer][txID] {
		return false, nil
	}
	delete(m.pendingIx[reviewer], txID)
	ids := m.pending[reviewer]
	for i, id := range ids {
		if id == txID {
			m.pending[reviewer] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return true, nil
}

// Pending returns queued IDs in insertion order.
func (m *MemoryStore) Pending(ctx context.Context, reviewer string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.pending[reviewer]))
	copy(out, m.pending[reviewer])
	return out, nil
}

// AppendDecision appends to the reviewer's history.
func (m *MemoryStore) AppendDecision(ctx context.Context, reviewer string, d Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history[reviewer] = append(m.history[reviewer], d)
	return nil
}

// History returns decisions in append order.
func (m *MemoryStore) History(ctx context.Context, reviewer string) ([]Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Decision, len(m.history[reviewer]))
	copy(out, m.history[reviewer])
	return out, nil
}

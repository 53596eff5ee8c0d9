package newsfeed

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of Store, used when no
// database is configured and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	feeds map[string][]*Notification // receiver -> entries
}

// NewMemoryStore creates a new in-memory newsfeed store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{feeds: make(map[string][]*Notification)}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// Append adds an entry to the receiver's feed.
func (m *MemoryStore) Append(ctx context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *n
	m.feeds[n.Receiver] = append(m.feeds[n.Receiver], &copied)
	return nil
}

// Feed returns the receiver's entries, newest first.
func (m *MemoryStore) Feed(ctx context.Context, receiver string) ([]*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.feeds[receiver]
	out := make([]*Notification, 0, len(entries))
	for _, n := range entries {
		copied := *n
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Get retrieves one entry by ID.
func (m *MemoryStore) Get(ctx context.Context, receiver, id string) (*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, n := range m.feeds[receiver] {
		if n.ID == id {
			copied := *n
			return &copied, nil
		}
	}
	return nil, ErrNotificationNotFound
}

// MarkAllSeen flips every unseen entry for the receiver.
func (m *MemoryStore) MarkAllSeen(ctx context.Context, receiver string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	flipped := 0
	for _, n := range m.feeds[receiver] {
		if n.Unseen {
			n.Unseen = false
			flipped++
		}
	}
	return flipped, nil
}

// Delete removes an entry from the receiver's feed.
func (m *MemoryStore) Delete(ctx context.Context, receiver, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.feeds[receiver]
	for i, n := range entries {
		if n.ID == id {
			m.feeds[receiver] = append(entries[:i:i], entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// UnseenCount counts the receiver's unseen entries.
func (m *MemoryStore) UnseenCount(ctx context.Context, receiver string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, n := range m.feeds[receiver] {
		if n.Unseen {
			count++
		}
	}
	return count, nil
}

package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore implements Store using in-memory storage.
// All data is lost when the process exits; intended for tests and
// ephemeral deployments.
//
// MemoryStore is thread-safe and supports concurrent access using sync.RWMutex.
type MemoryStore struct {
	// balance is the singleton record; nil until first created.
	balance *BalanceRecord

	// snapshots is the append-only snapshot log, oldest first.
	snapshots []*Snapshot

	// recipients maps email to registration order.
	recipients map[string]int

	nextSnapshotID int64
	nextOrder      int

	mu sync.RWMutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recipients:     make(map[string]int),
		nextSnapshotID: 1,
	}
}

// GetBalance returns a copy of the balance record, or (nil, nil) if absent.
func (m *MemoryStore) GetBalance(ctx context.Context) (*BalanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.balance == nil {
		return nil, nil
	}
	rec := *m.balance
	return &rec, nil
}

// SaveBalance creates or replaces the singleton balance record.
func (m *MemoryStore) SaveBalance(ctx context.Context, rec *BalanceRecord) error {
	if rec == nil {
		return fmt.Errorf("balance record cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	m.balance = &cp
	return nil
}

// LatestSnapshot returns the most recent snapshot, or (nil, nil) if the log
// is empty.
func (m *MemoryStore) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.snapshots) == 0 {
		return nil, nil
	}
	snap := *m.snapshots[len(m.snapshots)-1]
	return &snap, nil
}

// AppendSnapshot appends a new snapshot to the log.
func (m *MemoryStore) AppendSnapshot(ctx context.Context, timestamp int64, raw []byte) (*Snapshot, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("raw response cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &Snapshot{
		ID:        m.nextSnapshotID,
		Timestamp: timestamp,
		Raw:       append([]byte(nil), raw...),
	}
	m.nextSnapshotID++
	m.snapshots = append(m.snapshots, snap)

	cp := *snap
	return &cp, nil
}

// SnapshotCount returns the number of snapshots in the log.
// This is primarily for testing.
func (m *MemoryStore) SnapshotCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}

// AddRecipient registers an alert email address. Duplicate registrations
// are ignored.
func (m *MemoryStore) AddRecipient(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.recipients[email]; exists {
		return nil
	}
	m.recipients[email] = m.nextOrder
	m.nextOrder++
	return nil
}

// ListRecipients returns up to limit registered addresses in registration
// order. A non-positive limit returns all addresses.
func (m *MemoryStore) ListRecipients(ctx context.Context, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emails := make([]string, 0, len(m.recipients))
	for email := range m.recipients {
		emails = append(emails, email)
	}
	sort.Slice(emails, func(i, j int) bool {
		return m.recipients[emails[i]] < m.recipients[emails[j]]
	})

	if limit > 0 && len(emails) > limit {
		emails = emails[:limit]
	}
	return emails, nil
}

// Ping always succeeds for the memory store.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close releases resources. The memory store has none.
func (m *MemoryStore) Close() error {
	return nil
}

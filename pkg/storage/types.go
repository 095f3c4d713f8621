package storage

import "context"

// BalanceRecord is the singleton remaining-credit record.
//
// RemainingCredits only decreases through reconciliation; external updates
// through the control plane may set it to any non-negative value.
// LastUsageValue is the cumulative usage total observed by the most recent
// successful reconciliation and is the subtrahend base for delta computation.
type BalanceRecord struct {
	// RemainingCredits is the current remaining budget in USD.
	RemainingCredits float64 `json:"remaining_credits"`

	// Threshold is the balance level at or below which alerts fire.
	Threshold float64 `json:"threshold"`

	// LastUsageValue is the last observed cumulative usage total.
	LastUsageValue float64 `json:"last_usage_value"`

	// LastCheckedAt is the epoch-second timestamp of the last successful
	// reconciliation cycle.
	LastCheckedAt int64 `json:"last_checked_ts"`
}

// Snapshot is one raw usage report captured from the metering provider.
// Snapshots are immutable once written.
type Snapshot struct {
	// ID is the backend-assigned, monotonically increasing identifier.
	ID int64 `json:"id"`

	// Timestamp is the epoch-second capture time.
	Timestamp int64 `json:"timestamp"`

	// Raw is the provider's full usage payload, stored verbatim.
	Raw []byte `json:"raw_response"`
}

// BalanceStore persists the singleton balance record.
type BalanceStore interface {
	// GetBalance returns the balance record, or (nil, nil) if none exists.
	GetBalance(ctx context.Context) (*BalanceRecord, error)

	// SaveBalance creates or replaces the singleton balance record.
	SaveBalance(ctx context.Context, rec *BalanceRecord) error
}

// SnapshotStore persists the append-only usage snapshot log.
type SnapshotStore interface {
	// LatestSnapshot returns the most recent snapshot, or (nil, nil) if the
	// log is empty.
	LatestSnapshot(ctx context.Context) (*Snapshot, error)

	// AppendSnapshot appends a new snapshot and returns it with its
	// assigned ID.
	AppendSnapshot(ctx context.Context, timestamp int64, raw []byte) (*Snapshot, error)
}

// RecipientStore persists the set of alert email recipients.
type RecipientStore interface {
	// AddRecipient registers an email address. Registering an address that
	// already exists is a no-op.
	AddRecipient(ctx context.Context, email string) error

	// ListRecipients returns up to limit registered addresses in
	// registration order. A non-positive limit returns all addresses.
	ListRecipients(ctx context.Context, limit int) ([]string, error)
}

// Store is the full persistence surface used by the monitor and the
// control plane.
type Store interface {
	BalanceStore
	SnapshotStore
	RecipientStore

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources. Close is idempotent.
	Close() error
}

package notify

import "time"

// Alert describes a threshold breach detected by a reconciliation cycle.
type Alert struct {
	// CycleID identifies the reconciliation cycle that raised the alert.
	CycleID string

	// RemainingCredits is the balance after the cycle.
	RemainingCredits float64

	// Threshold is the configured trigger level.
	Threshold float64

	// CheckedAt is when the cycle completed.
	CheckedAt time.Time
}

// SendOutcome is the result of one per-recipient delivery attempt.
type SendOutcome struct {
	// Recipient is the destination email address.
	Recipient string

	// Err is nil on success.
	Err error
}

// Sender is the outbound mail transport.
type Sender interface {
	// Send delivers a plaintext subject+body message to a single recipient.
	Send(to, subject, body string) error
}

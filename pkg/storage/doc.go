// Package storage provides persistence for the credit monitor's state:
// the singleton balance record, the append-only usage snapshot log, and
// the set of alert recipients.
//
// Two backends are provided:
//
//   - SQLiteStore: durable storage backed by modernc.org/sqlite with WAL
//     journaling, suitable for single-instance deployments.
//   - MemoryStore: in-memory storage for tests and ephemeral deployments.
//
// Both implement the Store interface. Absent records are reported as
// (nil, nil) rather than an error so callers can distinguish "not yet
// created" from a real persistence failure.
package storage

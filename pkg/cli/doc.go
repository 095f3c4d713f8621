// Package cli provides shared helpers for the creditwatch command line:
// typed startup errors and signal-aware contexts.
package cli

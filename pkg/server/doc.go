// Package server provides the HTTP control plane for creditwatch: setting
// the balance and threshold, registering alert recipients, and the ambient
// health, readiness, and metrics endpoints.
//
// Reconciliation failures are invisible here; the control plane only reads
// and writes the stores. Store write failures surface as generic 500
// responses with the cause logged server-side.
package server

// Package usage fetches cost reports from the OpenAI organization costs
// API. It is a pure read client: a fetch either yields a structured
// UsageReport (with the raw payload preserved for snapshotting) or a
// FetchError carrying the HTTP status and cause. Nothing is retried here;
// the reconciliation loop decides how to handle a failed cycle.
package usage

package usage

import "time"

// Amount is a monetary value with its currency code.
type Amount struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// CostResult is a single cost entry inside a time bucket.
type CostResult struct {
	Amount Amount `json:"amount"`
}

// Bucket is one time-bucketed cost entry in a usage report.
type Bucket struct {
	StartTime int64        `json:"start_time"`
	EndTime   int64        `json:"end_time"`
	Results   []CostResult `json:"results"`
}

// UsageReport is a structured usage document for one billing window.
// Raw preserves the provider's payload verbatim for snapshotting.
type UsageReport struct {
	StartTime int64    `json:"start_time"`
	EndTime   int64    `json:"end_time"`
	Buckets   []Bucket `json:"data"`

	// Raw is the unparsed response body. It is not part of the wire format.
	Raw []byte `json:"-"`
}

// Total sums the monetary amounts across all buckets and results.
// An empty report totals zero.
func (r *UsageReport) Total() float64 {
	if r == nil {
		return 0
	}
	var total float64
	for _, b := range r.Buckets {
		for _, res := range b.Results {
			total += res.Amount.Value
		}
	}
	return total
}

// Window is the epoch-second billing query window.
type Window struct {
	Start int64
	End   int64
}

// BillingWindow computes the query window for a fetch at time now.
//
// With a zero lookback the window is the previous full UTC day, matching
// the provider's daily cost bucketing. A positive lookback yields a
// trailing window of that length ending at now.
func BillingWindow(now time.Time, lookback time.Duration) Window {
	if lookback > 0 {
		return Window{
			Start: now.Add(-lookback).Unix(),
			End:   now.Unix(),
		}
	}

	utc := now.UTC()
	dayStart := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	start := dayStart.AddDate(0, 0, -1)
	return Window{
		Start: start.Unix(),
		End:   dayStart.Unix(),
	}
}

package usage

import (
	"testing"
	"time"
)

func TestUsageReport_Total(t *testing.T) {
	report := &UsageReport{
		Buckets: []Bucket{
			{Results: []CostResult{
				{Amount: Amount{Value: 1.25, Currency: "usd"}},
				{Amount: Amount{Value: 0.75, Currency: "usd"}},
			}},
			{Results: []CostResult{
				{Amount: Amount{Value: 3.0, Currency: "usd"}},
			}},
			{Results: nil},
		},
	}

	if total := report.Total(); total != 5.0 {
		t.Errorf("Expected total 5.00, got %.2f", total)
	}
}

func TestUsageReport_TotalEmpty(t *testing.T) {
	var nilReport *UsageReport
	if total := nilReport.Total(); total != 0 {
		t.Errorf("Expected nil report total 0, got %.2f", total)
	}

	empty := &UsageReport{}
	if total := empty.Total(); total != 0 {
		t.Errorf("Expected empty report total 0, got %.2f", total)
	}
}

func TestBillingWindow_PreviousUTCDay(t *testing.T) {
	// 2026-09-01 10:30:00 UTC
	now := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	w := BillingWindow(now, 0)

	wantStart := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC).Unix()
	wantEnd := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC).Unix()

	if w.Start != wantStart {
		t.Errorf("Expected start %d, got %d", wantStart, w.Start)
	}
	if w.End != wantEnd {
		t.Errorf("Expected end %d, got %d", wantEnd, w.End)
	}
}

func TestBillingWindow_NonUTCLocalTime(t *testing.T) {
	// 2026-09-01 01:30 at UTC+5 is 2026-08-31 20:30 UTC; the window must be
	// computed from the UTC day, not the local one.
	loc := time.FixedZone("UTC+5", 5*3600)
	now := time.Date(2026, 9, 1, 1, 30, 0, 0, loc)
	w := BillingWindow(now, 0)

	wantStart := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC).Unix()
	wantEnd := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC).Unix()

	if w.Start != wantStart {
		t.Errorf("Expected start %d, got %d", wantStart, w.Start)
	}
	if w.End != wantEnd {
		t.Errorf("Expected end %d, got %d", wantEnd, w.End)
	}
}

func TestBillingWindow_Lookback(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	w := BillingWindow(now, 6*time.Hour)

	if w.End != now.Unix() {
		t.Errorf("Expected end at now, got %d", w.End)
	}
	if w.Start != now.Add(-6*time.Hour).Unix() {
		t.Errorf("Expected start 6h before now, got %d", w.Start)
	}
}

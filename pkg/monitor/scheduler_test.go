package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"creditwatch/pkg/notify"
	"creditwatch/pkg/storage"
	"creditwatch/pkg/usage"
)

// blockingFetcher blocks until released, simulating a slow provider.
type blockingFetcher struct {
	release chan struct{}
	entered chan struct{}
	report  *usage.UsageReport
}

func (f *blockingFetcher) Fetch(ctx context.Context, w usage.Window) (*usage.UsageReport, error) {
	f.entered <- struct{}{}
	<-f.release
	return f.report, nil
}

// fakeSink records dispatched alerts.
type fakeSink struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (s *fakeSink) Notify(ctx context.Context, alert notify.Alert) ([]notify.SendOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return []notify.SendOutcome{{Recipient: "ops@example.com"}}, nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func TestScheduler_DropsOverlappingTicks(t *testing.T) {
	store := storage.NewMemoryStore()
	fetcher := &blockingFetcher{
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
		report:  makeReport(t, 10.0),
	}

	r := NewReconciler(fetcher, store, ReconcilerConfig{}, nil)
	s := NewScheduler(r, nil, nil, time.Minute, nil)

	done := make(chan bool, 1)
	go func() {
		done <- s.RunOnce(context.Background())
	}()

	// Wait until the first cycle is inside the fetch, then a second tick
	// must be dropped.
	<-fetcher.entered
	if ran := s.RunOnce(context.Background()); ran {
		t.Error("Expected overlapping cycle to be dropped")
	}

	close(fetcher.release)
	if ran := <-done; !ran {
		t.Error("Expected first cycle to run")
	}
}

func TestScheduler_DispatchesAlertOnCrossing(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSnapshot(t, store, 200.0)
	if err := store.SaveBalance(context.Background(), &storage.BalanceRecord{
		RemainingCredits: 6.0,
		Threshold:        10.0,
	}); err != nil {
		t.Fatalf("SaveBalance failed: %v", err)
	}

	fetcher := &fakeFetcher{report: makeReport(t, 205.0)}
	sink := &fakeSink{}

	r := NewReconciler(fetcher, store, ReconcilerConfig{}, nil)
	s := NewScheduler(r, sink, nil, time.Minute, nil)

	if ran := s.RunOnce(context.Background()); !ran {
		t.Fatal("Expected cycle to run")
	}

	if sink.count() != 1 {
		t.Fatalf("Expected 1 alert, got %d", sink.count())
	}
	sink.mu.Lock()
	alert := sink.alerts[0]
	sink.mu.Unlock()
	if alert.RemainingCredits != 1.0 {
		t.Errorf("Expected alert balance 1.00, got %.2f", alert.RemainingCredits)
	}
	if alert.Threshold != 10.0 {
		t.Errorf("Expected alert threshold 10.00, got %.2f", alert.Threshold)
	}
	if alert.CycleID == "" {
		t.Error("Expected non-empty cycle ID")
	}
}

func TestScheduler_AlertRepeatsEveryCrossedCycle(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSnapshot(t, store, 200.0)
	if err := store.SaveBalance(context.Background(), &storage.BalanceRecord{
		RemainingCredits: 5.0,
		Threshold:        10.0,
	}); err != nil {
		t.Fatalf("SaveBalance failed: %v", err)
	}

	fetcher := &fakeFetcher{report: makeReport(t, 200.0)}
	sink := &fakeSink{}

	r := NewReconciler(fetcher, store, ReconcilerConfig{}, nil)
	s := NewScheduler(r, sink, nil, time.Minute, nil)

	// No dedup: every below-threshold cycle re-sends.
	for i := 0; i < 3; i++ {
		s.RunOnce(context.Background())
	}
	if sink.count() != 3 {
		t.Errorf("Expected 3 alerts, got %d", sink.count())
	}
}

func TestScheduler_NoAlertAboveThreshold(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSnapshot(t, store, 100.0)
	if err := store.SaveBalance(context.Background(), &storage.BalanceRecord{
		RemainingCredits: 100.0,
		Threshold:        10.0,
	}); err != nil {
		t.Fatalf("SaveBalance failed: %v", err)
	}

	fetcher := &fakeFetcher{report: makeReport(t, 101.0)}
	sink := &fakeSink{}

	r := NewReconciler(fetcher, store, ReconcilerConfig{}, nil)
	s := NewScheduler(r, sink, nil, time.Minute, nil)

	s.RunOnce(context.Background())
	if sink.count() != 0 {
		t.Errorf("Expected no alerts, got %d", sink.count())
	}
}

func TestScheduler_FailedCycleDoesNotAlert(t *testing.T) {
	store := storage.NewMemoryStore()
	fetcher := &fakeFetcher{err: &usage.FetchError{StatusCode: 500, Message: "boom"}}
	sink := &fakeSink{}

	r := NewReconciler(fetcher, store, ReconcilerConfig{}, nil)
	s := NewScheduler(r, sink, nil, time.Minute, nil)

	if ran := s.RunOnce(context.Background()); !ran {
		t.Fatal("Expected cycle to run (and fail)")
	}
	if sink.count() != 0 {
		t.Errorf("Expected no alerts from a failed cycle, got %d", sink.count())
	}
}

func TestScheduler_StartRejectsNonPositiveInterval(t *testing.T) {
	store := storage.NewMemoryStore()
	fetcher := &fakeFetcher{report: makeReport(t, 10.0)}

	r := NewReconciler(fetcher, store, ReconcilerConfig{}, nil)
	s := NewScheduler(r, nil, nil, 0, nil)

	if err := s.Start(context.Background()); err == nil {
		t.Error("Expected error for zero interval")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	store := storage.NewMemoryStore()
	fetcher := &fakeFetcher{report: makeReport(t, 10.0)}

	r := NewReconciler(fetcher, store, ReconcilerConfig{}, nil)
	s := NewScheduler(r, nil, nil, time.Hour, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("Expected error starting twice")
	}

	s.Stop()
	// Stop again is a no-op.
	s.Stop()
}

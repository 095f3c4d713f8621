package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"creditwatch/pkg/config"
	"creditwatch/pkg/storage"
)

func testServer(t *testing.T, store storage.Store) http.Handler {
	t.Helper()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return NewServer(cfg, store, nil, nil).Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestUpdateBalance_CreatesRecord(t *testing.T) {
	store := storage.NewMemoryStore()
	handler := testServer(t, store)

	rr := doJSON(t, handler, http.MethodPost, "/update-balance",
		`{"remaining_credits": 150.5, "threshold": 20}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	body := decodeBody(t, rr)
	if body["remaining_credits"] != 150.5 {
		t.Errorf("Expected remaining_credits 150.5, got %v", body["remaining_credits"])
	}
	if body["threshold"] != 20.0 {
		t.Errorf("Expected threshold 20, got %v", body["threshold"])
	}

	rec, err := store.GetBalance(context.Background())
	if err != nil || rec == nil {
		t.Fatalf("Expected record persisted, got %v, %v", rec, err)
	}
	if rec.RemainingCredits != 150.5 || rec.Threshold != 20.0 {
		t.Errorf("Persisted record mismatch: %+v", rec)
	}
}

func TestUpdateBalance_PartialUpdatePreservesOtherField(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.SaveBalance(context.Background(), &storage.BalanceRecord{
		RemainingCredits: 100.0,
		Threshold:        10.0,
		LastUsageValue:   42.0,
	}); err != nil {
		t.Fatalf("SaveBalance failed: %v", err)
	}
	handler := testServer(t, store)

	rr := doJSON(t, handler, http.MethodPost, "/update-balance", `{"threshold": 30}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rec, _ := store.GetBalance(context.Background())
	if rec.RemainingCredits != 100.0 {
		t.Errorf("Expected remaining credits preserved at 100.00, got %.2f", rec.RemainingCredits)
	}
	if rec.Threshold != 30.0 {
		t.Errorf("Expected threshold updated to 30.00, got %.2f", rec.Threshold)
	}
	// The reconciliation watermark is untouched by control-plane updates.
	if rec.LastUsageValue != 42.0 {
		t.Errorf("Expected watermark preserved at 42.00, got %.2f", rec.LastUsageValue)
	}
}

func TestUpdateBalance_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"negative credits", `{"remaining_credits": -5}`},
		{"negative threshold", `{"threshold": -1}`},
		{"malformed json", `{`},
		{"unknown field", `{"balance": 5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := testServer(t, storage.NewMemoryStore())
			rr := doJSON(t, handler, http.MethodPost, "/update-balance", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestUpdateBalance_MethodNotAllowed(t *testing.T) {
	handler := testServer(t, storage.NewMemoryStore())
	rr := doJSON(t, handler, http.MethodGet, "/update-balance", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rr.Code)
	}
}

func TestGetBalance(t *testing.T) {
	store := storage.NewMemoryStore()
	handler := testServer(t, store)

	// Absent record is a 404.
	rr := doJSON(t, handler, http.MethodGet, "/balance", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before creation, got %d", rr.Code)
	}

	if err := store.SaveBalance(context.Background(), &storage.BalanceRecord{
		RemainingCredits: 75.25,
		Threshold:        15.0,
	}); err != nil {
		t.Fatalf("SaveBalance failed: %v", err)
	}

	rr = doJSON(t, handler, http.MethodGet, "/balance", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["remaining_credits"] != 75.25 {
		t.Errorf("Expected remaining_credits 75.25, got %v", body["remaining_credits"])
	}
	if body["threshold"] != 15.0 {
		t.Errorf("Expected threshold 15, got %v", body["threshold"])
	}
}

func TestAddEmail(t *testing.T) {
	store := storage.NewMemoryStore()
	handler := testServer(t, store)

	rr := doJSON(t, handler, http.MethodPost, "/add-email", `{"email": "ops@example.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// Re-adding is idempotent.
	rr = doJSON(t, handler, http.MethodPost, "/add-email", `{"email": "ops@example.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 on duplicate, got %d", rr.Code)
	}

	emails, err := store.ListRecipients(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRecipients failed: %v", err)
	}
	if len(emails) != 1 {
		t.Errorf("Expected 1 recipient, got %d", len(emails))
	}
}

func TestAddEmail_InvalidAddress(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not an address", `{"email": "not-an-email"}`},
		{"empty", `{"email": ""}`},
		{"malformed json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := testServer(t, storage.NewMemoryStore())
			rr := doJSON(t, handler, http.MethodPost, "/add-email", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestListEmails(t *testing.T) {
	store := storage.NewMemoryStore()
	handler := testServer(t, store)

	// Empty list is a 200 with an empty array, not null.
	rr := doJSON(t, handler, http.MethodGet, "/emails", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"emails":[]`) {
		t.Errorf("Expected empty array, got %s", rr.Body.String())
	}

	ctx := context.Background()
	for _, email := range []string{"a@example.com", "b@example.com"} {
		if err := store.AddRecipient(ctx, email); err != nil {
			t.Fatalf("AddRecipient failed: %v", err)
		}
	}

	rr = doJSON(t, handler, http.MethodGet, "/emails", "")
	body := decodeBody(t, rr)
	emails, ok := body["emails"].([]any)
	if !ok {
		t.Fatalf("Expected emails array, got %v", body["emails"])
	}
	if len(emails) != 2 {
		t.Errorf("Expected 2 emails, got %d", len(emails))
	}
}

func TestHealthAndReady(t *testing.T) {
	handler := testServer(t, storage.NewMemoryStore())

	rr := doJSON(t, handler, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 from /health, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}

	rr = doJSON(t, handler, http.MethodGet, "/ready", "")
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 from /ready, got %d", rr.Code)
	}
	body = decodeBody(t, rr)
	if body["status"] != "ready" {
		t.Errorf("Expected status ready, got %v", body["status"])
	}
}

// failingPingStore reports an unreachable backend.
type failingPingStore struct {
	*storage.MemoryStore
}

func (s *failingPingStore) Ping(ctx context.Context) error {
	return context.DeadlineExceeded
}

func TestReady_NotReadyWhenStoreUnreachable(t *testing.T) {
	store := &failingPingStore{MemoryStore: storage.NewMemoryStore()}
	handler := testServer(t, store)

	rr := doJSON(t, handler, http.MethodGet, "/ready", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != "not_ready" {
		t.Errorf("Expected status not_ready, got %v", body["status"])
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	handler := testServer(t, storage.NewMemoryStore())

	rr := doJSON(t, handler, http.MethodGet, "/health", "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header on response")
	}
}

func TestMetricsRouteOnlyWhenConfigured(t *testing.T) {
	store := storage.NewMemoryStore()

	// Without a metrics handler the route is absent.
	handler := testServer(t, store)
	rr := doJSON(t, handler, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without metrics handler, got %d", rr.Code)
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	withMetrics := NewServer(cfg, store, metricsHandler, nil).Handler()

	rr = doJSON(t, withMetrics, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 with metrics handler, got %d", rr.Code)
	}
}

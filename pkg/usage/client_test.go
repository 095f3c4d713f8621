package usage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Error("Expected error for missing API key")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(ClientConfig{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.config.BaseURL != DefaultBaseURL {
		t.Errorf("Expected default base URL, got %s", c.config.BaseURL)
	}
	if c.config.Timeout != DefaultTimeout {
		t.Errorf("Expected default timeout, got %s", c.config.Timeout)
	}
}

func TestFetch_Success(t *testing.T) {
	payload := `{
		"data": [
			{"start_time": 1700000000, "end_time": 1700086400, "results": [
				{"amount": {"value": 12.5, "currency": "usd"}},
				{"amount": {"value": 2.5, "currency": "usd"}}
			]},
			{"start_time": 1700086400, "end_time": 1700172800, "results": [
				{"amount": {"value": 5.0, "currency": "usd"}}
			]}
		]
	}`

	var gotAuth, gotStart, gotEnd, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotStart = r.URL.Query().Get("start_time")
		gotEnd = r.URL.Query().Get("end_time")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer server.Close()

	c, err := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	report, err := c.Fetch(context.Background(), Window{Start: 1700000000, End: 1700172800})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Expected bearer auth, got %q", gotAuth)
	}
	if gotPath != "/v1/organization/costs" {
		t.Errorf("Expected costs path, got %s", gotPath)
	}
	if gotStart != "1700000000" || gotEnd != "1700172800" {
		t.Errorf("Expected window in query, got start=%s end=%s", gotStart, gotEnd)
	}

	if total := report.Total(); total != 20.0 {
		t.Errorf("Expected total 20.00, got %.2f", total)
	}
	if len(report.Raw) == 0 {
		t.Error("Expected raw payload to be preserved")
	}
	// Window echoed from the request when the payload omits it.
	if report.StartTime != 1700000000 || report.EndTime != 1700172800 {
		t.Errorf("Expected window filled in, got start=%d end=%d", report.StartTime, report.EndTime)
	}
}

func TestFetch_Non2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "rate limited"}`))
	}))
	defer server.Close()

	c, _ := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "sk-test"})

	_, err := c.Fetch(context.Background(), Window{Start: 1, End: 2})
	if err == nil {
		t.Fatal("Expected error for 429 response")
	}

	fe, ok := AsFetchError(err)
	if !ok {
		t.Fatalf("Expected FetchError, got %T", err)
	}
	if fe.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", fe.StatusCode)
	}
}

func TestFetch_MalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	c, _ := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "sk-test"})

	_, err := c.Fetch(context.Background(), Window{Start: 1, End: 2})
	if err == nil {
		t.Fatal("Expected error for malformed payload")
	}
	if _, ok := AsFetchError(err); !ok {
		t.Errorf("Expected FetchError, got %T", err)
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // immediately, to get a refused port

	c, _ := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "sk-test"})

	_, err := c.Fetch(context.Background(), Window{Start: 1, End: 2})
	if err == nil {
		t.Fatal("Expected error for refused connection")
	}
	if _, ok := AsFetchError(err); !ok {
		t.Errorf("Expected FetchError, got %T", err)
	}
}

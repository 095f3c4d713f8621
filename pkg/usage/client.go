package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultBaseURL is the OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com"

	// DefaultTimeout bounds a single fetch, including body read.
	DefaultTimeout = 30 * time.Second

	// costsPath is the organization costs endpoint.
	costsPath = "/v1/organization/costs"

	// maxResponseBytes caps the response body read to guard against a
	// misbehaving endpoint.
	maxResponseBytes = 10 << 20 // 10MB
)

// ClientConfig configures the usage client.
type ClientConfig struct {
	// BaseURL is the provider API base URL.
	// Default: https://api.openai.com
	BaseURL string

	// APIKey is the provider credential. Required.
	APIKey string

	// Timeout is the maximum duration for one fetch.
	// Default: 30s
	Timeout time.Duration
}

// Client fetches usage reports from the provider's costs endpoint.
type Client struct {
	config ClientConfig
	client *http.Client
}

// NewClient creates a usage client with connection pooling and a bounded
// request timeout.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key cannot be empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		config: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}, nil
}

// Fetch retrieves the usage report for the given window.
//
// Any failure (network error, timeout, non-2xx status, or a payload that
// does not parse) is returned as a *FetchError. Fetch has no side effects;
// the caller decides whether to skip the cycle.
func (c *Client) Fetch(ctx context.Context, w Window) (*UsageReport, error) {
	endpoint, err := url.Parse(c.config.BaseURL + costsPath)
	if err != nil {
		return nil, &FetchError{Message: "invalid base url", Err: err}
	}

	q := endpoint.Query()
	q.Set("start_time", strconv.FormatInt(w.Start, 10))
	q.Set("end_time", strconv.FormatInt(w.End, 10))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &FetchError{Message: "failed to build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Message:    truncate(string(body), 512),
		}
	}

	var report UsageReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Message: "malformed payload", Err: err}
	}

	// The endpoint echoes the window back inside the payload for some
	// providers but not all; fill from the request when absent.
	if report.StartTime == 0 {
		report.StartTime = w.Start
	}
	if report.EndTime == 0 {
		report.EndTime = w.End
	}
	report.Raw = body

	return &report, nil
}

// truncate shortens s to at most n bytes for inclusion in error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

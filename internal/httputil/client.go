// Package httputil provides the shared HTTP client for the external REST
// collaborators (custody, on-chain provider, rewards APIs).
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nimbusward/tokengate/internal/errors"
)

// Client wraps http.Client with JSON encoding and uniform error mapping.
// Every non-2xx response becomes an *errors.APIError carrying the status code
// and raw payload.
type Client struct {
	httpClient *http.Client
	baseURL    string
	service    string
	headers    map[string]string
	maxRetries int
}

// Config configures a Client.
type Config struct {
	// Service names the collaborator in errors and logs (e.g. "custody").
	Service string
	BaseURL string
	Timeout time.Duration
	// Headers are attached to every request (API keys, auth tokens).
	Headers map[string]string
	// MaxRetries applies to temporary transport failures and 5xx responses.
	MaxRetries int
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("httputil: base URL required for %s client", cfg.Service)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		service:    cfg.Service,
		headers:    cfg.Headers,
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Get performs a GET request and decodes the JSON response into target.
func (c *Client) Get(ctx context.Context, path string, target interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, target)
}

// Post performs a POST request with a JSON body and decodes the response.
func (c *Client) Post(ctx context.Context, path string, body, target interface{}) error {
	return c.Do(ctx, http.MethodPost, path, body, target)
}

// Do executes a request and decodes the JSON response into target.
// target may be nil when the response body is irrelevant.
func (c *Client) Do(ctx context.Context, method, path string, body, target interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
		retryable, err := c.doOnce(ctx, method, path, body, target)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return lastErr
}

// doOnce executes one attempt. The bool result reports whether the failure is
// worth retrying.
func (c *Client) doOnce(ctx context.Context, method, path string, body, target interface{}) (bool, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("%s request failed: %w", c.service, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return true, fmt.Errorf("read %s response: %w", c.service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := errors.NewAPIError(c.service, resp.StatusCode, respBody)
		return resp.StatusCode >= 500, apiErr
	}

	if target == nil {
		return false, nil
	}
	if err := json.Unmarshal(respBody, target); err != nil {
		return false, fmt.Errorf("decode %s response: %w", c.service, err)
	}
	return false, nil
}

// Package client provides a typed Go SDK for the TenantDesk admin REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is the top-level TenantDesk API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	Companies   *CompanyService
	Users       *UserService
	Diagnostics *DiagnosticsService
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token (admin token or tenant API key).
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a TenantDesk client for the given base URL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	c.Companies = &CompanyService{c: c}
	c.Users = &UserService{c: c}
	c.Diagnostics = &DiagnosticsService{c: c}
	return c
}

// Health returns the liveness check response.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ready returns the readiness check response.
func (c *Client) Ready(ctx context.Context) (*ReadinessResponse, error) {
	var resp ReadinessResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/ready", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns the platform statistics.
func (c *Client) Stats(ctx context.Context) (*PlatformStats, error) {
	var resp PlatformStats
	if err := c.get(ctx, "/api/v1/admin/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// envelope is the uniform response wrapper used by the admin API.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// do executes an HTTP request and decodes the raw JSON response.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	respBody, status, err := c.roundTrip(ctx, method, path, body)
	if err != nil {
		return err
	}

	if status >= 400 {
		return parseAPIError(status, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// doEnvelope executes a request against an envelope-wrapped endpoint and
// decodes the data payload into result.
func (c *Client) doEnvelope(ctx context.Context, method, path string, body any, result any) error {
	respBody, status, err := c.roundTrip(ctx, method, path, body)
	if err != nil {
		return err
	}

	if status >= 400 {
		return parseAPIError(status, respBody)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if !env.Success {
		return &APIError{StatusCode: status, Message: env.Error}
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	u := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// get is a convenience wrapper for envelope GET requests with query parameters.
func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.doEnvelope(ctx, http.MethodGet, path, nil, result)
}

// post is a convenience wrapper for envelope POST requests.
func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.doEnvelope(ctx, http.MethodPost, path, body, result)
}

// patch is a convenience wrapper for envelope PATCH requests.
func (c *Client) patch(ctx context.Context, path string, body any, result any) error {
	return c.doEnvelope(ctx, http.MethodPatch, path, body, result)
}

// del is a convenience wrapper for envelope DELETE requests.
func (c *Client) del(ctx context.Context, path string, result any) error {
	return c.doEnvelope(ctx, http.MethodDelete, path, nil, result)
}

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cyrup-ai/kodegen-tools-config/pkg/types"
)

// TestClient provides HTTP client utilities for testing
type TestClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewTestClient creates a new test HTTP client
func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// RequestOption configures HTTP requests
type RequestOption func(*http.Request)

// WithHeader adds a header to the request
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithQuery adds query parameters
func WithQuery(params map[string]string) RequestOption {
	return func(r *http.Request) {
		q := r.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		r.URL.RawQuery = q.Encode()
	}
}

// Response wraps HTTP response with helpers
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// JSON unmarshals response body into v
func (r *Response) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// String returns response body as string
func (r *Response) String() string {
	return string(r.Body)
}

// IsSuccess returns true if status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs HTTP GET request
func (c *TestClient) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts...)
}

// Post performs HTTP POST request with JSON body
func (c *TestClient) Post(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body, opts...)
}

// Put performs HTTP PUT request with JSON body
func (c *TestClient) Put(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body, opts...)
}

// Patch performs HTTP PATCH request with JSON body
func (c *TestClient) Patch(ctx context.Context, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPatch, path, body, opts...)
}

// Delete performs HTTP DELETE request
func (c *TestClient) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil, opts...)
}

// do performs the actual HTTP request
func (c *TestClient) do(ctx context.Context, method, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	fullURL := c.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

// ---- Config API Helpers ----

// APIError is the error envelope returned by the server.
type APIError struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// ValueResponse is the body of GET/PUT /config/{key}.
type ValueResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// CheckResponse is the body of the /check endpoints.
type CheckResponse struct {
	Allowed bool   `json:"allowed"`
	Command string `json:"command"`
	Path    string `json:"path"`
}

// HistoryEntry is one element of GET /client/history.
type HistoryEntry struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// Health is the body of GET /health.
type Health struct {
	Status         string  `json:"status"`
	Version        string  `json:"version"`
	Path           string  `json:"path"`
	Writes         uint64  `json:"writes"`
	WritesPerMin   float64 `json:"writes_per_minute"`
	SaveErrorCount uint64  `json:"save_error_count"`
}

func decode[T any](resp *Response, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, resp.String())
	}
	var out T
	if err := resp.JSON(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetConfig fetches the full configuration.
func (c *TestClient) GetConfig(ctx context.Context) (*types.ServerConfig, error) {
	return decode[types.ServerConfig](c.Get(ctx, "/config"))
}

// GetValue fetches a single key.
func (c *TestClient) GetValue(ctx context.Context, key string) (*ValueResponse, error) {
	return decode[ValueResponse](c.Get(ctx, "/config/"+url.PathEscape(key)))
}

// SetValue stores value under key. Non-2xx responses are returned, not treated as errors.
func (c *TestClient) SetValue(ctx context.Context, key string, value any) (*Response, error) {
	return c.Put(ctx, "/config/"+url.PathEscape(key), map[string]any{"value": value})
}

// SetClient records a client connection.
func (c *TestClient) SetClient(ctx context.Context, name, version string) error {
	resp, err := c.Post(ctx, "/client", types.ClientInfo{Name: name, Version: version})
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, resp.String())
	}
	return nil
}

// GetClientHistory fetches every client ever recorded.
func (c *TestClient) GetClientHistory(ctx context.Context) ([]HistoryEntry, error) {
	out, err := decode[[]HistoryEntry](c.Get(ctx, "/client/history"))
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// CheckCommand asks whether a command line is allowed.
func (c *TestClient) CheckCommand(ctx context.Context, cmd string) (*CheckResponse, error) {
	return decode[CheckResponse](c.Get(ctx, "/check/command", WithQuery(map[string]string{"cmd": cmd})))
}

// CheckPath asks whether a path is accessible.
func (c *TestClient) CheckPath(ctx context.Context, path string) (*CheckResponse, error) {
	return decode[CheckResponse](c.Get(ctx, "/check/path", WithQuery(map[string]string{"path": path})))
}

// Health fetches the health report.
func (c *TestClient) Health(ctx context.Context) (*Health, error) {
	return decode[Health](c.Get(ctx, "/health"))
}

// ParseError decodes an error envelope.
func (r *Response) ParseError() (*APIError, error) {
	var out APIError
	if err := r.JSON(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

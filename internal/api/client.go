package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/telltale-dev/telltale/internal/schema"
	"github.com/telltale-dev/telltale/internal/statepath"
)

// DefaultTimeout bounds every request issued by a Client that was not given
// its own http.Client.
const DefaultTimeout = 30 * time.Second

// StatusError is returned when the server answers with a non-2xx status.
// The body's error message and retry hint are carried when present.
type StatusError struct {
	StatusCode int
	Message    string
	RetryAfter int
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: HTTP %d", e.StatusCode)
}

// Unauthorized reports whether the server rejected the write credential.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// RateLimited reports whether the server throttled the request.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Client talks to a vehicle state server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientOpts holds parameters for NewClient.
type ClientOpts struct {
	BaseURL    string
	APIKey     string       // optional; sent as a Bearer credential on writes
	HTTPClient *http.Client // defaults to a client with DefaultTimeout
}

// NewClient creates a Client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: httpClient,
	}, nil
}

// Controls fetches and parses the control registry.
func (c *Client) Controls(ctx context.Context) (*schema.Registry, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/controls", nil, &raw); err != nil {
		return nil, fmt.Errorf("api: controls: %w", err)
	}
	reg, err := schema.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("api: controls: %w", err)
	}
	return reg, nil
}

// State fetches the current authoritative state document.
func (c *Client) State(ctx context.Context) (statepath.Document, error) {
	var doc statepath.Document
	if err := c.do(ctx, http.MethodGet, "/api/state", nil, &doc); err != nil {
		return nil, fmt.Errorf("api: state: %w", err)
	}
	return doc, nil
}

// UpdateState sends a partial patch and returns the full authoritative
// document the server settled on.
func (c *Client) UpdateState(ctx context.Context, patch statepath.Document) (statepath.Document, error) {
	var doc statepath.Document
	if err := c.do(ctx, http.MethodPost, "/api/state", patch, &doc); err != nil {
		return nil, fmt.Errorf("api: update state: %w", err)
	}
	return doc, nil
}

// Telemetry fetches the latest telemetry snapshot.
func (c *Client) Telemetry(ctx context.Context) (statepath.Document, error) {
	var doc statepath.Document
	if err := c.do(ctx, http.MethodGet, "/api/telemetry", nil, &doc); err != nil {
		return nil, fmt.Errorf("api: telemetry: %w", err)
	}
	return doc, nil
}

// Reset restores the server to its default state and returns the resulting
// document.
func (c *Client) Reset(ctx context.Context) (statepath.Document, error) {
	var doc statepath.Document
	if err := c.do(ctx, http.MethodPost, "/api/reset", struct{}{}, &doc); err != nil {
		return nil, fmt.Errorf("api: reset: %w", err)
	}
	return doc, nil
}

// Assistant relays a conversation turn to the server's assistant endpoint.
func (c *Client) Assistant(ctx context.Context, req AssistantRequest) (*AssistantResponse, error) {
	var resp AssistantResponse
	if err := c.do(ctx, http.MethodPost, "/api/assistant", req, &resp); err != nil {
		return nil, fmt.Errorf("api: assistant: %w", err)
	}
	return &resp, nil
}

// do issues one request. POST bodies are JSON; the configured API key rides
// along as a Bearer credential on writes only. Non-2xx responses become a
// *StatusError; success bodies are decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost && c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readStatusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readStatusError turns a non-2xx response into a *StatusError, preferring
// the standard {"error", "retry_after"} body over raw text.
func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var wire ErrorBody
	if json.Unmarshal(body, &wire) == nil && wire.Error != "" {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Message:    wire.Error,
			RetryAfter: wire.RetryAfter,
		}
	}
	return &StatusError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

// Package llm abstracts the text-generation backends the assistant relay
// can dispatch to. Implementations translate the shared conversation shape
// into each vendor's wire format and hand back the raw model text.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/telltale-dev/telltale/internal/api"
)

// DefaultTimeout bounds provider calls made without a custom http.Client.
const DefaultTimeout = 30 * time.Second

// Request is one assistant completion request. History carries only
// normalized user/assistant turns; Message is the new user turn.
type Request struct {
	System  string
	History []api.Message
	Message string
}

// Provider generates an assistant reply for a conversation turn.
type Provider interface {
	// Name is the wire identifier clients select the provider by.
	Name() string

	// Complete sends the conversation and returns the raw model text.
	Complete(ctx context.Context, req Request) (string, error)

	// WithKey returns a copy of the provider using a different API key,
	// for per-request credential overrides.
	WithKey(key string) Provider
}

// ProviderError is returned when a backend answers with a non-2xx status.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm: %s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
}

// readProviderError drains a bounded slice of the error body into a
// *ProviderError.
func readProviderError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &ProviderError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    string(body),
	}
}

// postJSON marshals payload, POSTs it with the given headers, and returns
// the response. Non-200 statuses become a *ProviderError with the body
// already consumed and closed; on success the caller closes the body.
func postJSON(ctx context.Context, httpClient *http.Client, provider, url string, payload any, headers map[string]string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: %s: marshal request: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: %s: create request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: %s: send request: %w", provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readProviderError(provider, resp)
	}
	return resp, nil
}

// historyEndsWith reports whether history already ends with the given user
// message. Clients commonly include the pending turn in the history they
// send, and forwarding it twice skews the model.
func historyEndsWith(history []api.Message, message string) bool {
	if len(history) == 0 {
		return false
	}
	last := history[len(history)-1]
	return last.Role == api.RoleUser && last.Content == message
}

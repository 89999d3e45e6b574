// Package api defines the wire contract between the dashboard engine and
// the vehicle state server, plus the HTTP client that speaks it.
package api

import (
	"github.com/telltale-dev/telltale/internal/statepath"
)

// Conversation roles accepted by the assistant endpoint.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one assistant conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistantRequest is the body of POST /api/assistant.
type AssistantRequest struct {
	Message  string    `json:"message"`
	History  []Message `json:"history,omitempty"`
	Provider string    `json:"provider,omitempty"`
	APIKey   string    `json:"api_key,omitempty"`
}

// AssistantResponse is the success body of POST /api/assistant. State, when
// present, is the full authoritative document after any updates were applied.
type AssistantResponse struct {
	Reply    string             `json:"reply"`
	Updates  statepath.Document `json:"updates"`
	State    statepath.Document `json:"state,omitempty"`
	Provider string             `json:"provider,omitempty"`
}

// ErrorBody is the JSON shape of every non-2xx response.
type ErrorBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

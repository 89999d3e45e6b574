// Package assistant manages the dashboard's conversation with the model
// relay: a capped message history, sends, and the feed-through of state
// snapshots into the sync session. Provider failures surface as synthetic
// assistant turns, never as errors to the caller.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/telltale-dev/telltale/internal/api"
	"github.com/telltale-dev/telltale/internal/statepath"
)

// MaxHistory caps the conversation transcript. Older entries are dropped
// first.
const MaxHistory = 10

const failureReply = "Sorry, I could not reach the assistant right now."

// Relay is the assistant endpoint the manager talks through. *api.Client
// implements it.
type Relay interface {
	Assistant(ctx context.Context, req api.AssistantRequest) (*api.AssistantResponse, error)
}

// StateSink receives the authoritative state snapshots assistant responses
// carry. *session.Session implements it.
type StateSink interface {
	ReplaceState(state statepath.Document)
	RefreshTelemetry(ctx context.Context) error
}

// Manager owns one assistant conversation.
type Manager struct {
	relay    Relay
	sink     StateSink
	provider string
	apiKey   string

	mu      sync.Mutex
	history []api.Message
}

// Opts holds parameters for New.
type Opts struct {
	Relay    Relay
	Sink     StateSink
	Provider string // server default when empty
	APIKey   string // per-request provider key override, optional
}

// New creates a Manager.
func New(opts Opts) (*Manager, error) {
	if opts.Relay == nil {
		return nil, fmt.Errorf("assistant: relay is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("assistant: sink is required")
	}
	return &Manager{
		relay:    opts.Relay,
		sink:     opts.Sink,
		provider: opts.Provider,
		apiKey:   opts.APIKey,
	}, nil
}

// Result is the outcome of one conversation turn.
type Result struct {
	Reply   string             // assistant text, synthetic on failure
	Updates statepath.Document // state updates the model applied
	Failed  bool
	Status  string // short status line for presentation, empty on success
}

// Send runs one conversation turn: the user message joins the history, the
// full transcript goes to the relay, and the reply (or a synthetic failure
// turn) is appended. A state snapshot in the response replaces the session
// mirror and triggers a telemetry refresh.
func (m *Manager) Send(ctx context.Context, message string) Result {
	message = strings.TrimSpace(message)
	if message == "" {
		return Result{Failed: true, Status: "message is empty"}
	}

	history := m.append(api.Message{Role: api.RoleUser, Content: message})

	resp, err := m.relay.Assistant(ctx, api.AssistantRequest{
		Message:  message,
		History:  history,
		Provider: m.provider,
		APIKey:   m.apiKey,
	})
	if err != nil {
		m.append(api.Message{Role: api.RoleAssistant, Content: failureReply})
		return Result{Reply: failureReply, Failed: true, Status: err.Error()}
	}

	reply := resp.Reply
	if strings.TrimSpace(reply) == "" {
		reply = failureReply
	}
	m.append(api.Message{Role: api.RoleAssistant, Content: reply})

	if resp.State != nil {
		m.sink.ReplaceState(resp.State)
		// Refreshed on a best-effort basis; telemetry failures stay silent.
		m.sink.RefreshTelemetry(ctx)
	}

	return Result{Reply: reply, Updates: resp.Updates}
}

// History returns a copy of the conversation transcript.
func (m *Manager) History() []api.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := make([]api.Message, len(m.history))
	copy(history, m.history)
	return history
}

// Clear drops the conversation transcript.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
}

// append adds one entry, enforces the cap, and returns a copy of the
// resulting transcript.
func (m *Manager) append(msg api.Message) []api.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, msg)
	if len(m.history) > MaxHistory {
		m.history = m.history[len(m.history)-MaxHistory:]
	}
	history := make([]api.Message, len(m.history))
	copy(history, m.history)
	return history
}

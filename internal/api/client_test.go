package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/telltale-dev/telltale/internal/statepath"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(ClientOpts{BaseURL: srv.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient(ClientOpts{}); err == nil {
		t.Fatal("expected error for missing base url")
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, err := NewClient(ClientOpts{BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.State(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/state" {
		t.Errorf("path = %q, want /api/state", gotPath)
	}
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

func TestClient_BearerOnWritesOnly(t *testing.T) {
	var getAuth, postAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			getAuth = r.Header.Get("Authorization")
		case http.MethodPost:
			postAuth = r.Header.Get("Authorization")
		}
		w.Write([]byte(`{}`))
	})

	ctx := context.Background()
	if _, err := client.State(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := client.UpdateState(ctx, statepath.Document{}); err != nil {
		t.Fatalf("post: %v", err)
	}

	if getAuth != "" {
		t.Errorf("GET carried Authorization %q, want none", getAuth)
	}
	if postAuth != "Bearer secret" {
		t.Errorf("POST Authorization = %q, want Bearer secret", postAuth)
	}
}

// ---------------------------------------------------------------------------
// UpdateState
// ---------------------------------------------------------------------------

func TestUpdateState_SendsPatchAndDecodesDocument(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var patch statepath.Document
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			t.Errorf("decode patch: %v", err)
		}
		value, ok := statepath.Get(patch, "ac.power")
		if !ok || value != true {
			t.Errorf("patch ac.power = %v (ok=%v), want true", value, ok)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ac": {"power": true, "temperature_c": 22}}`))
	})

	doc, err := client.UpdateState(context.Background(), statepath.BuildPatch("ac.power", true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	temp, ok := statepath.Get(doc, "ac.temperature_c")
	if !ok || temp != 22.0 {
		t.Errorf("ac.temperature_c = %v (ok=%v), want 22", temp, ok)
	}
}

// ---------------------------------------------------------------------------
// Controls
// ---------------------------------------------------------------------------

func TestControls_ParsesRegistry(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"schema_version": 1,
			"controls": [
				{"path": "ac.power", "type": "toggle", "value_type": "bool"}
			]
		}`))
	})

	reg, err := client.Controls(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := reg.ByPath("ac.power"); !ok {
		t.Error("registry missing ac.power")
	}
}

func TestControls_InvalidRegistryFails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"controls": [{"path": "x", "type": "dial", "value_type": "bool"}]}`))
	})

	if _, err := client.Controls(context.Background()); err == nil {
		t.Fatal("expected error for invalid registry")
	}
}

// ---------------------------------------------------------------------------
// Error decoding
// ---------------------------------------------------------------------------

func TestClient_UnauthorizedStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "Unauthorized"}`))
	})

	_, err := client.UpdateState(context.Background(), statepath.Document{})
	if err == nil {
		t.Fatal("expected error")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error %T is not a StatusError", err)
	}
	if !statusErr.Unauthorized() {
		t.Errorf("status = %d, want 401", statusErr.StatusCode)
	}
	if statusErr.Message != "Unauthorized" {
		t.Errorf("message = %q, want Unauthorized", statusErr.Message)
	}
}

func TestClient_RateLimitCarriesRetryAfter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "Rate limit exceeded. Try again soon.", "retry_after": 17}`))
	})

	_, err := client.Assistant(context.Background(), AssistantRequest{Message: "hi"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error %T is not a StatusError", err)
	}
	if !statusErr.RateLimited() {
		t.Errorf("status = %d, want 429", statusErr.StatusCode)
	}
	if statusErr.RetryAfter != 17 {
		t.Errorf("retry_after = %d, want 17", statusErr.RetryAfter)
	}
}

func TestClient_NonJSONErrorBodyFallsBackToText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	})

	_, err := client.State(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error %T is not a StatusError", err)
	}
	if statusErr.Message != "upstream exploded" {
		t.Errorf("message = %q, want raw body", statusErr.Message)
	}
}

// ---------------------------------------------------------------------------
// Assistant
// ---------------------------------------------------------------------------

func TestAssistant_RoundTrip(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req AssistantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Message != "turn on the ac" {
			t.Errorf("message = %q", req.Message)
		}
		if req.Provider != "google" {
			t.Errorf("provider = %q, want google", req.Provider)
		}
		if len(req.History) != 2 {
			t.Errorf("history length = %d, want 2", len(req.History))
		}
		w.Write([]byte(`{
			"reply": "Done.",
			"updates": {"ac": {"power": true}},
			"state": {"ac": {"power": true, "temperature_c": 22}},
			"provider": "google"
		}`))
	})

	resp, err := client.Assistant(context.Background(), AssistantRequest{
		Message: "turn on the ac",
		History: []Message{
			{Role: RoleUser, Content: "hello"},
			{Role: RoleAssistant, Content: "hi there"},
		},
		Provider: "google",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Reply != "Done." {
		t.Errorf("reply = %q, want Done.", resp.Reply)
	}
	power, ok := statepath.Get(resp.State, "ac.power")
	if !ok || power != true {
		t.Errorf("state ac.power = %v (ok=%v), want true", power, ok)
	}
}

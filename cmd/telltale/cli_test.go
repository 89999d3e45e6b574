package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/telltale-dev/telltale/internal/api"
	"github.com/telltale-dev/telltale/internal/car"
	"github.com/telltale-dev/telltale/internal/llm"
	"github.com/telltale-dev/telltale/internal/schema"
	"github.com/telltale-dev/telltale/internal/server"
)

// --- shared test fixtures ---

// scriptedProvider is a canned assistant backend for chat tests.
type scriptedProvider struct {
	mu      sync.Mutex
	name    string
	reply   string
	err     error
	lastKey string
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func (p *scriptedProvider) WithKey(key string) llm.Provider {
	p.mu.Lock()
	p.lastKey = key
	p.mu.Unlock()
	return p
}

func (p *scriptedProvider) key() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastKey
}

// backendOpts tweaks the in-process server commands run against.
type backendOpts struct {
	apiKey    string
	providers []llm.Provider
}

// newTestBackend starts a real state server and points the CLI's environment
// at it. The URL override plus blanked credentials make command runs
// hermetic.
func newTestBackend(t *testing.T, opts backendOpts) *httptest.Server {
	t.Helper()

	registry, err := schema.Default()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store, err := car.NewStore(car.StoreOpts{Registry: registry})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	srv, err := server.New(server.Opts{
		Registry:  registry,
		Store:     store,
		Simulator: car.NewSimulator(time.Now()),
		Providers: opts.providers,
		APIKey:    opts.apiKey,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	clearCLIEnv(t)
	t.Setenv("TELLTALE_SERVER_URL", ts.URL)
	return ts
}

// clearCLIEnv blanks every environment variable the config loader consults.
func clearCLIEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELLTALE_API_KEY", "TELLTALE_REGISTRY", "TELLTALE_SERVER_URL",
		"PORT", "LLM_RATE_LIMIT_RPM",
		"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_API_ENDPOINT",
		"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT",
		"AZURE_OPENAI_DEPLOYMENT", "AZURE_OPENAI_API_VERSION",
	} {
		t.Setenv(key, "")
	}
}

// runCLI executes the root command with args and returns combined output.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// backendState reads the authoritative state directly, bypassing the CLI.
func backendState(t *testing.T, url string) map[string]any {
	t.Helper()
	client, err := api.NewClient(api.ClientOpts{BaseURL: url})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := client.State(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return state
}

// --- end-to-end dashboard flow ---

func TestDashboardFlow_PowerToggle(t *testing.T) {
	ts := newTestBackend(t, backendOpts{})

	// The climate toggle starts Off and its temperature slider is hidden.
	out, err := runCLI(t, "", "controls", "--group", "Cabin")
	if err != nil {
		t.Fatalf("controls failed: %v", err)
	}
	if !strings.Contains(out, "ac.power") || !strings.Contains(out, "Off") {
		t.Errorf("expected ac.power Off in listing, got: %s", out)
	}
	if strings.Contains(out, "ac.temperature_c") {
		t.Errorf("temperature slider should be hidden while power is off, got: %s", out)
	}

	// One activation flips it on.
	out, err = runCLI(t, "", "cycle", "ac.power")
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if !strings.Contains(out, "ac.power = On") {
		t.Errorf("cycle output = %q, want ac.power = On", out)
	}

	state := backendState(t, ts.URL)
	ac := state["ac"].(map[string]any)
	if ac["power"] != true {
		t.Errorf("server ac.power = %v, want true", ac["power"])
	}

	// The slider is visible now that its gate is satisfied.
	out, err = runCLI(t, "", "controls", "--group", "Cabin")
	if err != nil {
		t.Fatalf("controls failed: %v", err)
	}
	if !strings.Contains(out, "ac.temperature_c") {
		t.Errorf("temperature slider should be visible after power on, got: %s", out)
	}
}

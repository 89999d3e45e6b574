// Package session keeps client-side mirrors of the authoritative vehicle
// state and telemetry in sync with the remote server, and commits control
// edits through it. Mirrors are always replaced wholesale, never merged;
// a failed call leaves them untouched and flips the connectivity flag.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/telltale-dev/telltale/internal/schema"
	"github.com/telltale-dev/telltale/internal/statepath"
)

// DefaultTelemetryInterval paces the background telemetry poll.
const DefaultTelemetryInterval = 2 * time.Second

// Remote is the server surface the session depends on. *api.Client
// implements it.
type Remote interface {
	State(ctx context.Context) (statepath.Document, error)
	UpdateState(ctx context.Context, patch statepath.Document) (statepath.Document, error)
	Telemetry(ctx context.Context) (statepath.Document, error)
	Reset(ctx context.Context) (statepath.Document, error)
}

// Session owns the state and telemetry mirrors for one dashboard instance.
type Session struct {
	registry *schema.Registry
	remote   Remote

	mu        sync.Mutex
	state     statepath.Document
	telemetry statepath.Document
	online    bool
}

// Opts holds parameters for New.
type Opts struct {
	Registry *schema.Registry
	Remote   Remote
}

// New creates a Session. It starts offline with empty mirrors; the first
// successful RefreshState establishes connectivity.
func New(opts Opts) (*Session, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("session: registry is required")
	}
	if opts.Remote == nil {
		return nil, fmt.Errorf("session: remote is required")
	}
	return &Session{
		registry:  opts.Registry,
		remote:    opts.Remote,
		state:     statepath.Document{},
		telemetry: statepath.Document{},
	}, nil
}

// Registry returns the control registry the session was created with.
func (s *Session) Registry() *schema.Registry {
	return s.registry
}

// State returns a copy of the state mirror.
func (s *Session) State() statepath.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return statepath.Clone(s.state)
}

// Telemetry returns a copy of the telemetry mirror.
func (s *Session) Telemetry() statepath.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return statepath.Clone(s.telemetry)
}

// Online reports whether the last state exchange succeeded.
func (s *Session) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// RefreshState fetches the authoritative state and replaces the mirror.
func (s *Session) RefreshState(ctx context.Context) error {
	state, err := s.remote.State(ctx)
	if err != nil {
		s.setOffline()
		return fmt.Errorf("session: refresh state: %w", err)
	}
	s.replaceState(state)
	return nil
}

// ApplyEdit coerces raw to the control's value type, sends it as a partial
// patch on the control's own path, and replaces the mirror with the full
// authoritative response. On failure the mirror is left untouched and the
// session goes offline.
func (s *Session) ApplyEdit(ctx context.Context, path string, raw any) (statepath.Document, error) {
	control, ok := s.registry.ByPath(path)
	if !ok {
		return nil, fmt.Errorf("session: no control at path %q", path)
	}
	value, err := coerceValue(control, raw)
	if err != nil {
		return nil, fmt.Errorf("session: %s: %w", path, err)
	}

	state, err := s.remote.UpdateState(ctx, statepath.BuildPatch(control.Path, value))
	if err != nil {
		s.setOffline()
		return nil, fmt.Errorf("session: apply edit: %w", err)
	}
	s.replaceState(state)
	return statepath.Clone(state), nil
}

// Reset asks the server to restore defaults and replaces the mirror with
// the result. On failure the mirror is left untouched.
func (s *Session) Reset(ctx context.Context) (statepath.Document, error) {
	state, err := s.remote.Reset(ctx)
	if err != nil {
		s.setOffline()
		return nil, fmt.Errorf("session: reset: %w", err)
	}
	s.replaceState(state)
	return statepath.Clone(state), nil
}

// ReplaceState installs an externally obtained authoritative state document
// (such as the snapshot an assistant response carries) as the new mirror.
func (s *Session) ReplaceState(state statepath.Document) {
	if state == nil {
		return
	}
	s.replaceState(state)
}

// RefreshTelemetry fetches the latest telemetry snapshot. Failures leave
// the previous snapshot in place and never touch the connectivity flag.
func (s *Session) RefreshTelemetry(ctx context.Context) error {
	telemetry, err := s.remote.Telemetry(ctx)
	if err != nil {
		return fmt.Errorf("session: refresh telemetry: %w", err)
	}
	s.mu.Lock()
	s.telemetry = telemetry
	s.mu.Unlock()
	return nil
}

// PollTelemetry refreshes telemetry immediately and then on every interval
// tick, emitting each new snapshot. Poll failures are skipped. The channel
// is closed when the context is cancelled.
func (s *Session) PollTelemetry(ctx context.Context, interval time.Duration) <-chan statepath.Document {
	if interval <= 0 {
		interval = DefaultTelemetryInterval
	}
	ch := make(chan statepath.Document, 1)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		emit := func() {
			if err := s.RefreshTelemetry(ctx); err != nil {
				return
			}
			select {
			case ch <- s.Telemetry():
			case <-ctx.Done():
			}
		}

		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				emit()
			}
		}
	}()
	return ch
}

func (s *Session) replaceState(state statepath.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.online = true
}

func (s *Session) setOffline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = false
}

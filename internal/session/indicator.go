package session

import (
	"context"
	"fmt"

	"github.com/telltale-dev/telltale/internal/schema"
	"github.com/telltale-dev/telltale/internal/statepath"
)

// NextValue computes the forward-cycled value for a control:
//   - toggle: negate the current truthiness
//   - select: the candidate after the current one, wrapping to the first
//     when the current value is absent, unknown, or last
//   - slider: current + step, wrapping to min when the result exceeds max;
//     an absent current lands on min
func NextValue(c *schema.Control, current any) any {
	switch c.Kind {
	case schema.KindToggle:
		return !truthy(current)
	case schema.KindSelect:
		return nextCandidate(c.Values, current)
	case schema.KindSlider:
		return nextStep(c, current)
	}
	return current
}

// Activate cycles the control at path one step forward and commits the
// result through ApplyEdit. The next value is computed from the current
// authoritative mirror, never from a cached preview, so a dropped edit
// cannot compound into drift.
func (s *Session) Activate(ctx context.Context, path string) (any, statepath.Document, error) {
	control, ok := s.registry.ByPath(path)
	if !ok {
		return nil, nil, fmt.Errorf("session: no control at path %q", path)
	}

	s.mu.Lock()
	current, resolved := schema.Resolve(control, s.state)
	s.mu.Unlock()
	if !resolved {
		current = nil
	}

	next := NextValue(control, current)
	state, err := s.ApplyEdit(ctx, path, next)
	if err != nil {
		return nil, nil, err
	}
	return next, state, nil
}

func nextCandidate(values []string, current any) any {
	if len(values) == 0 {
		return current
	}
	cur, _ := current.(string)
	for i, v := range values {
		if v == cur && i+1 < len(values) {
			return values[i+1]
		}
	}
	return values[0]
}

func nextStep(c *schema.Control, current any) any {
	if c.Min == nil || c.Max == nil {
		return current
	}
	cur, err := parseFloat(current)
	if err != nil {
		return *c.Min
	}
	next := cur + c.StepSize()
	if next > *c.Max {
		return *c.Min
	}
	return next
}

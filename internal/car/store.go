package car

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/telltale-dev/telltale/internal/schema"
	"github.com/telltale-dev/telltale/internal/statepath"
)

// Store is the authoritative in-memory vehicle state, guarded by a mutex.
// Reads hand out deep copies; writes go through update normalization so the
// document only ever holds canonical metric values.
type Store struct {
	registry *schema.Registry

	mu    sync.Mutex
	state statepath.Document
}

// StoreOpts holds parameters for NewStore.
type StoreOpts struct {
	Registry *schema.Registry
	Initial  statepath.Document // optional partial document merged over the defaults
}

// NewStore creates a Store seeded from the defaults, with Initial merged on
// top. Primary paths of mapped controls are pruned so the canonical metric
// fields stay the single source of truth.
func NewStore(opts StoreOpts) (*Store, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("car: registry is required")
	}
	initial := opts.Initial
	if initial == nil {
		initial = statepath.Document{}
	}
	s := &Store{
		registry: opts.Registry,
		state:    statepath.Merge(DefaultState(), initial),
	}
	s.pruneMappedLocked()
	return s, nil
}

// State returns a deep copy of the current document.
func (s *Store) State() statepath.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return statepath.Clone(s.state)
}

// SpeedKPH reads the current cruise speed, the signal the simulator
// integrates over.
func (s *Store) SpeedKPH() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := statepath.Get(s.state, "tacc.car_speed_kph")
	if !ok {
		return 0
	}
	switch n := value.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

// ApplyUpdate flattens the patch and applies every entry that addresses a
// registered control. Values are normalized, converted to their canonical
// metric form, and written to the control's maps_to target when one is
// declared. Unknown paths and rejected values are skipped silently. Returns
// the full resulting document.
func (s *Store) ApplyUpdate(patch statepath.Document) statepath.Document {
	flat := statepath.Flatten(patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Sorted order keeps the outcome deterministic when a patch addresses
	// both a mapped control and its target path.
	paths := make([]string, 0, len(flat))
	for path := range flat {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	for _, path := range paths {
		control, ok := s.registry.ByPath(path)
		if !ok {
			continue
		}
		value, ok := Normalize(control, flat[path])
		if !ok {
			continue
		}
		if n, isNumber := value.(float64); isNumber && control.Conversion != schema.ConvNone {
			n = schema.WriteValue(control.Conversion, n)
			if control.ValueType == schema.TypeInt {
				n = math.Round(n)
			}
			value = n
		}
		target := control.Path
		if control.MapsTo != "" {
			target = control.MapsTo
		}
		statepath.Set(s.state, target, value)
	}
	s.pruneMappedLocked()
	return statepath.Clone(s.state)
}

// Reset restores the factory document and returns it.
func (s *Store) Reset() statepath.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = DefaultState()
	return statepath.Clone(s.state)
}

// pruneMappedLocked removes the primary path of every mapped control, so a
// write redirected to maps_to can never leave a shadowing value behind.
func (s *Store) pruneMappedLocked() {
	for i := range s.registry.Controls {
		c := &s.registry.Controls[i]
		if c.MapsTo != "" {
			statepath.Delete(s.state, c.Path)
		}
	}
}

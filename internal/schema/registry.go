package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
)

// Default registry document shipped with the binary. Registry files may
// carry comments and trailing commas; they are stripped before parsing.
//
//go:embed controls.json
var defaultControls []byte

// Registry is the immutable set of controls loaded once at startup.
type Registry struct {
	SchemaVersion int       `json:"schema_version"`
	Controls      []Control `json:"controls"`

	byPath map[string]*Control
}

// Parse reads a registry document from raw JSON (or JSONC) bytes and
// validates every control against the closed type model. Later controls
// sharing a path shadow earlier ones in the path index.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	if err := json.Unmarshal(jsonc.ToJSON(data), &reg); err != nil {
		return nil, fmt.Errorf("schema: parse registry: %w", err)
	}
	if err := reg.validate(); err != nil {
		return nil, err
	}
	reg.byPath = make(map[string]*Control, len(reg.Controls))
	for i := range reg.Controls {
		reg.byPath[reg.Controls[i].Path] = &reg.Controls[i]
	}
	return &reg, nil
}

// LoadFile parses a registry document from a file on disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read registry: %w", err)
	}
	return Parse(data)
}

// Default parses the embedded registry document.
func Default() (*Registry, error) {
	return Parse(defaultControls)
}

// ByPath returns the control registered at the given dotted path.
func (r *Registry) ByPath(path string) (*Control, bool) {
	c, ok := r.byPath[path]
	return c, ok
}

// validate checks every control against the closed enums and the
// per-kind field requirements. All problems are reported at once.
func (r *Registry) validate() error {
	var errs []string
	for i := range r.Controls {
		c := &r.Controls[i]
		name := c.Path
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		report := func(format string, args ...any) {
			errs = append(errs, fmt.Sprintf("control %s: %s", name, fmt.Sprintf(format, args...)))
		}

		if c.Path == "" {
			report("path is required")
		}
		if !c.Kind.valid() {
			report("type %q is not one of toggle, slider, select", string(c.Kind))
		}
		if !c.ValueType.valid() {
			report("value_type %q is not one of bool, int, float, string", string(c.ValueType))
		}
		// "none" spells the absent conversion in registry files.
		if c.Conversion == "none" {
			c.Conversion = ConvNone
		}
		if !c.Conversion.valid() {
			report("conversion %q is not one of none, fahrenheit_to_celsius, mph_to_kph", string(c.Conversion))
		}

		switch c.Kind {
		case KindSlider:
			if c.Min == nil || c.Max == nil {
				report("slider requires min and max")
			} else if *c.Min > *c.Max {
				report("min %v exceeds max %v", *c.Min, *c.Max)
			}
			if c.Step != nil && *c.Step <= 0 {
				report("step must be positive")
			}
		case KindSelect:
			if len(c.Values) == 0 {
				report("select requires a non-empty values list")
			}
			if c.ValueType != TypeString {
				report("select requires value_type string")
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("schema: invalid registry: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Package schema models the control registry: typed descriptors that bind
// dotted state paths to editable affordances, plus the derivation, visibility,
// and formatting rules that turn raw state into display values.
package schema

// Kind identifies the edit affordance of a control and selects its cycling
// rule.
type Kind string

const (
	KindToggle Kind = "toggle"
	KindSlider Kind = "slider"
	KindSelect Kind = "select"
)

func (k Kind) valid() bool {
	switch k {
	case KindToggle, KindSlider, KindSelect:
		return true
	}
	return false
}

// ValueType governs how raw edit input is coerced before a write,
// independent of the display Kind.
type ValueType string

const (
	TypeBool   ValueType = "bool"
	TypeInt    ValueType = "int"
	TypeFloat  ValueType = "float"
	TypeString ValueType = "string"
)

func (v ValueType) valid() bool {
	switch v {
	case TypeBool, TypeInt, TypeFloat, TypeString:
		return true
	}
	return false
}

// Conversion names a unit conversion by its write direction: the direction
// applied when turning user-facing input into the canonical metric value.
// Display derivation applies the inverse.
type Conversion string

const (
	ConvNone                Conversion = ""
	ConvFahrenheitToCelsius Conversion = "fahrenheit_to_celsius"
	ConvMPHToKPH            Conversion = "mph_to_kph"
)

func (c Conversion) valid() bool {
	switch c {
	case ConvNone, ConvFahrenheitToCelsius, ConvMPHToKPH:
		return true
	}
	return false
}

// VisibleWhen gates a control on a live state value. Exactly one of Equals
// or In carries the rule; any other shape fails open to visible.
type VisibleWhen struct {
	Path   string `json:"path"`
	Equals any    `json:"equals,omitempty"`
	In     []any  `json:"in,omitempty"`
}

// Control is an immutable descriptor binding a dotted state path to a
// dashboard affordance. A control with MapsTo is an alias: reads fall back
// to the target path, and converted writes land there rather than on Path.
type Control struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Module      string       `json:"module,omitempty"`
	Group       string       `json:"group,omitempty"`
	Path        string       `json:"path"`
	Kind        Kind         `json:"type"`
	ValueType   ValueType    `json:"value_type"`
	Values      []string     `json:"values,omitempty"`
	Min         *float64     `json:"min,omitempty"`
	Max         *float64     `json:"max,omitempty"`
	Step        *float64     `json:"step,omitempty"`
	Units       string       `json:"units,omitempty"`
	MapsTo      string       `json:"maps_to,omitempty"`
	Conversion  Conversion   `json:"conversion,omitempty"`
	VisibleWhen *VisibleWhen `json:"visible_when,omitempty"`
	Description string       `json:"description,omitempty"`
}

// StepSize returns the slider step, defaulting to 1 when unset.
func (c *Control) StepSize() float64 {
	if c.Step == nil || *c.Step == 0 {
		return 1
	}
	return *c.Step
}

// Derived reports whether the control reads through MapsTo when Path is
// absent from state.
func (c *Control) Derived() bool {
	return c.MapsTo != ""
}

package car

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/telltale-dev/telltale/internal/schema"
)

// Normalize coerces a raw update value to the control's value type and
// constraints. The second return is false when the value cannot be used:
// an unknown boolean spelling, an unparseable number, a select candidate
// outside the registered list, or a composite where a scalar belongs.
//
// Numeric results are always float64. Slider values are clamped to
// [min, max] and snapped to the step grid anchored at min.
func Normalize(c *schema.Control, value any) (any, bool) {
	var coerced any
	switch c.ValueType {
	case schema.TypeBool:
		b, ok := coerceBool(value)
		if !ok {
			return nil, false
		}
		coerced = b
	case schema.TypeInt:
		n, ok := coerceInt(value)
		if !ok {
			return nil, false
		}
		coerced = n
	case schema.TypeFloat:
		n, ok := coerceFloat(value)
		if !ok {
			return nil, false
		}
		coerced = n
	case schema.TypeString:
		s, ok := coerceString(value)
		if !ok {
			return nil, false
		}
		coerced = s
	default:
		return nil, false
	}

	if c.Kind == schema.KindSelect {
		s, ok := coerced.(string)
		if !ok || !slices.Contains(c.Values, s) {
			return nil, false
		}
		return s, true
	}

	if c.Kind == schema.KindSlider {
		if n, ok := coerced.(float64); ok {
			n = snapSlider(c, n)
			if c.ValueType == schema.TypeInt {
				n = math.Round(n)
			}
			coerced = n
		}
	}
	return coerced, true
}

// snapSlider clamps v into the control's range, then snaps it onto the step
// grid anchored at min (or zero when no min is declared).
func snapSlider(c *schema.Control, v float64) float64 {
	if c.Min != nil && v < *c.Min {
		v = *c.Min
	}
	if c.Max != nil && v > *c.Max {
		v = *c.Max
	}
	anchor := 0.0
	if c.Min != nil {
		anchor = *c.Min
	}
	step := c.StepSize()
	steps := math.Round((v - anchor) / step)
	return anchor + steps*step
}

func coerceBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "on", "yes":
			return true, true
		case "false", "0", "off", "no":
			return false, true
		}
		return false, false
	case float64:
		return v != 0, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	}
	return false, false
}

// coerceInt truncates fractional numbers and parses whole-number strings.
func coerceInt(value any) (float64, bool) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case float64:
		return math.Trunc(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return float64(n), true
	}
	return 0, false
}

func coerceFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func coerceString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case map[string]any, []any:
		return "", false
	default:
		return fmt.Sprintf("%v", v), true
	}
}

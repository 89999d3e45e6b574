package schema

import (
	"math"

	"github.com/telltale-dev/telltale/internal/statepath"
)

// KPHPerMPH is the exact speed conversion constant. Both the write and the
// display direction must use this value so round-trips stay stable.
const KPHPerMPH = 1.60934

// Resolve computes the current display value for a control against state.
//
// The primary path wins: when it resolves, its value is returned verbatim
// with no conversion. Otherwise the value is read through maps_to and the
// control's conversion is applied in the display direction. The second
// return is false when neither path resolves; the caller supplies its own
// default (a slider shows its minimum, a select its first candidate).
func Resolve(c *Control, state statepath.Document) (any, bool) {
	if value, ok := statepath.Get(state, c.Path); ok {
		return value, true
	}
	if c.MapsTo == "" {
		return nil, false
	}
	value, ok := statepath.Get(state, c.MapsTo)
	if !ok {
		return nil, false
	}
	return DisplayValue(c.Conversion, value), true
}

// DisplayValue applies a conversion in the display direction: the inverse of
// its named write direction, rounded to the nearest whole unit. Non-numeric
// values and ConvNone pass through unchanged and unrounded.
func DisplayValue(conv Conversion, value any) any {
	n, ok := asFloat(value)
	if !ok {
		return value
	}
	switch conv {
	case ConvFahrenheitToCelsius:
		return int(math.Round(n*9/5 + 32))
	case ConvMPHToKPH:
		return int(math.Round(n / KPHPerMPH))
	}
	return value
}

// WriteValue applies a conversion in its named write direction, turning
// user-facing input into the canonical metric value. The result is not
// rounded; value_type coercion decides that later.
func WriteValue(conv Conversion, value float64) float64 {
	switch conv {
	case ConvFahrenheitToCelsius:
		return (value - 32) * 5 / 9
	case ConvMPHToKPH:
		return value * KPHPerMPH
	}
	return value
}

func asFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

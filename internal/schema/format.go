package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/telltale-dev/telltale/internal/statepath"
)

// State paths with system-dependent formatting. These apply at format time
// regardless of any conversion the control itself declares.
const (
	UnitSystemPath  = "units.system"
	TemperaturePath = "ac.temperature_c"
	SpeedPath       = "tacc.car_speed_kph"
)

// UnitSystem reads the active unit system from state. Anything other than
// an explicit "imperial" counts as metric.
func UnitSystem(state statepath.Document) string {
	if value, ok := statepath.Get(state, UnitSystemPath); ok {
		if s, ok := value.(string); ok && s == "imperial" {
			return "imperial"
		}
	}
	return "metric"
}

// FormatValue renders a resolved control value for display. Booleans become
// On/Off, the fixed temperature and speed paths convert by the active unit
// system, and the control's units are appended otherwise. A nil value
// renders as "--".
func FormatValue(c *Control, value any, system string) string {
	if value == nil {
		return "--"
	}
	if b, ok := value.(bool); ok {
		if b {
			return "On"
		}
		return "Off"
	}

	if n, ok := asFloat(value); ok {
		switch c.Path {
		case TemperaturePath:
			return FormatTemperature(n, system)
		case SpeedPath:
			return FormatSpeed(n, system)
		}
		return appendUnits(formatNumber(n), c.Units)
	}

	if s, ok := value.(string); ok {
		return appendUnits(s, c.Units)
	}
	return appendUnits(fmt.Sprintf("%v", value), c.Units)
}

// FormatTemperature renders a Celsius value in the active unit system.
func FormatTemperature(celsius float64, system string) string {
	if system == "imperial" {
		return strconv.Itoa(int(math.Round(celsius*9/5+32))) + "°F"
	}
	return formatNumber(celsius) + "°C"
}

// FormatSpeed renders a km/h value in the active unit system.
func FormatSpeed(kph float64, system string) string {
	if system == "imperial" {
		return strconv.Itoa(int(math.Round(kph/KPHPerMPH))) + " mph"
	}
	return formatNumber(kph) + " km/h"
}

// FormatDistance renders a kilometre value in the active unit system with
// one decimal.
func FormatDistance(km float64, system string) string {
	if system == "imperial" {
		return strconv.FormatFloat(km/KPHPerMPH, 'f', 1, 64) + " mi"
	}
	return strconv.FormatFloat(km, 'f', 1, 64) + " km"
}

// formatNumber renders a float without a trailing ".0" for whole values.
func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func appendUnits(s, units string) string {
	if units == "" {
		return s
	}
	if strings.HasPrefix(units, "°") || units == "%" {
		return s + units
	}
	return s + " " + units
}

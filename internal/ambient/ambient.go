// Package ambient derives continuous presentation parameters from live
// vehicle signals. The mapper is a pure function recomputed after every
// state or telemetry refresh; nothing here writes back to state.
package ambient

import (
	"math"

	"github.com/telltale-dev/telltale/internal/statepath"
)

// Reference points for normalization. The temperature band is fixed: the
// heat ratio runs 0 at -10°C to 1 at 35°C regardless of climate settings.
const (
	MaxSpeedKPH       = 150.0
	ColdTempC         = -10.0
	HotTempC          = 35.0
	AutoRainIntensity = 0.6
	WindTempSpanC     = 20.0
)

// Inputs are the live signals the mapper reads.
type Inputs struct {
	SpeedKPH       float64
	OutsideTempC   float64
	WiperMode      string  // off | manual | auto
	WiperLevel     float64 // manual wiper frequency, 1..5
	ClimateOn      bool
	ClimateTargetC float64
}

// Params is the derived presentation vector. Ratios and intensities are in
// [0,1]; Hue is in degrees; PulseSeconds is an animation period.
type Params struct {
	SpeedRatio    float64
	HeatRatio     float64
	RainIntensity float64
	WindIntensity float64
	Hue           float64
	PulseSeconds  float64
}

// Compute maps the inputs to presentation parameters. Identical inputs
// always yield identical outputs.
func Compute(in Inputs) Params {
	speed := clamp01(in.SpeedKPH / MaxSpeedKPH)
	heat := clamp01((in.OutsideTempC - ColdTempC) / (HotTempC - ColdTempC))

	var rain float64
	switch in.WiperMode {
	case "manual":
		rain = clamp01(in.WiperLevel / 5)
	case "auto":
		rain = AutoRainIntensity
	}

	var wind float64
	if in.ClimateOn {
		wind = clamp01(math.Abs(in.ClimateTargetC-in.OutsideTempC) / WindTempSpanC)
	}

	return Params{
		SpeedRatio:    speed,
		HeatRatio:     heat,
		RainIntensity: rain,
		WindIntensity: wind,
		Hue:           220 - 190*heat,
		PulseSeconds:  2.4 - 1.6*speed,
	}
}

// FromDocuments builds Inputs from the state and telemetry mirrors. Missing
// or non-numeric fields read as zero values.
func FromDocuments(state, telemetry statepath.Document) Inputs {
	in := Inputs{}
	if n, ok := numberAt(state, "tacc.car_speed_kph"); ok {
		in.SpeedKPH = n
	}
	if n, ok := numberAt(telemetry, "outside_temp_c"); ok {
		in.OutsideTempC = n
	}
	if v, ok := statepath.Get(state, "wipers.mode"); ok {
		if s, ok := v.(string); ok {
			in.WiperMode = s
		}
	}
	if n, ok := numberAt(state, "wipers.frequency_level"); ok {
		in.WiperLevel = n
	}
	if v, ok := statepath.Get(state, "ac.power"); ok {
		if b, ok := v.(bool); ok {
			in.ClimateOn = b
		}
	}
	if n, ok := numberAt(state, "ac.temperature_c"); ok {
		in.ClimateTargetC = n
	}
	return in
}

func numberAt(doc statepath.Document, path string) (float64, bool) {
	value, ok := statepath.Get(doc, path)
	if !ok {
		return 0, false
	}
	switch n := value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package car

import (
	"math"
	"sync"
	"time"

	"github.com/telltale-dev/telltale/internal/statepath"
)

// Factory counters and physics constants for the telemetry simulation.
const (
	initialTripKM     = 12.4
	initialOdometerKM = 18420.7
	initialFuelPct    = 72.0

	fuelPctPerKM     = 0.25
	fullTankRangeKM  = 520.0
	maxEngineLoadKPH = 120.0
)

// Simulator integrates trip, odometer, and fuel from the cruise speed and
// derives the remaining telemetry values. The caller always supplies the
// clock, so tests are deterministic.
type Simulator struct {
	mu         sync.Mutex
	lastTick   time.Time
	tripKM     float64
	odometerKM float64
	fuelPct    float64
}

// NewSimulator creates a Simulator with factory counters, anchored at now.
func NewSimulator(now time.Time) *Simulator {
	return &Simulator{
		lastTick:   now,
		tripKM:     initialTripKM,
		odometerKM: initialOdometerKM,
		fuelPct:    initialFuelPct,
	}
}

// Advance integrates the distance travelled at speedKPH since the previous
// tick: trip and odometer grow, fuel burns down to a floor of zero. A clock
// that moved backwards counts as no time passed.
func (s *Simulator) Advance(now time.Time, speedKPH float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dt := now.Sub(s.lastTick).Seconds()
	if dt < 0 {
		dt = 0
	}
	distanceKM := speedKPH * dt / 3600
	s.tripKM += distanceKM
	s.odometerKM += distanceKM
	s.fuelPct = math.Max(0, s.fuelPct-distanceKM*fuelPctPerKM)
	s.lastTick = now
}

// Snapshot derives the telemetry document at now without advancing the
// counters. Outside temperature swings sinusoidally with a 15 minute
// period; engine temperature tracks speed up to a load ceiling.
func (s *Simulator) Snapshot(now time.Time, speedKPH float64) statepath.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	seconds := float64(now.UnixNano()) / float64(time.Second)
	outsideTempC := 18 + 6*math.Sin(seconds/900)
	engineTempC := 70 + math.Min(speedKPH, maxEngineLoadKPH)*0.25
	rangeKM := s.fuelPct / 100 * fullTankRangeKM

	return statepath.Document{
		"timestamp":      seconds,
		"clock_time":     now.Format("15:04"),
		"clock_date":     now.Format("Mon Jan 02"),
		"outside_temp_c": round1(outsideTempC),
		"engine_temp_c":  round1(engineTempC),
		"range_km":       math.Round(rangeKM),
		"fuel_level_pct": round1(s.fuelPct),
		"trip_km":        round1(s.tripKM),
		"odometer_km":    round1(s.odometerKM),
	}
}

// Reset restores the factory counters, anchored at now.
func (s *Simulator) Reset(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTick = now
	s.tripKM = initialTripKM
	s.odometerKM = initialOdometerKM
	s.fuelPct = initialFuelPct
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Package car holds the vehicle domain: the factory state document, the
// authoritative in-memory state store with update normalization, and the
// telemetry simulator.
package car

import (
	"github.com/telltale-dev/telltale/internal/statepath"
)

// DefaultState returns the factory vehicle state document. All numbers are
// float64 so documents compare stably across JSON round trips.
func DefaultState() statepath.Document {
	return statepath.Document{
		"units": map[string]any{"system": "metric"},
		"ac": map[string]any{
			"power":         false,
			"temperature_c": 22.0,
		},
		"seat_heating": map[string]any{
			"driver_level":    0.0,
			"passenger_level": 0.0,
		},
		"seat_cooling": map[string]any{
			"driver_level":    0.0,
			"passenger_level": 0.0,
		},
		"tacc": map[string]any{
			"enabled":         false,
			"car_speed_kph":   88.0,
			"follow_distance": 2.0,
		},
		"wipers": map[string]any{
			"mode":            "auto",
			"frequency_level": 1.0,
		},
		"infotainment": map[string]any{
			"power":               true,
			"volume":              18.0,
			"active_app":          "Radio",
			"radio_band":          "FM",
			"bluetooth_connected": false,
			"screencast_active":   false,
			"local_game":          "Elden Ring",
		},
	}
}

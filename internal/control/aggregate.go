package control

import (
	"sort"

	"multizone_thermostat/internal/models"
)

// SystemTemperature returns the median of the latest values of enabled sensors
// that are neither compromised nor faulted. ok is false when no sensor is eligible.
func SystemTemperature(latest []models.SensorReading) (temp float64, ok bool) {
	vals := make([]float64, 0, len(latest))
	for _, r := range latest {
		if r.Eligible() {
			vals = append(vals, r.TemperatureF)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	return median(vals), true
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

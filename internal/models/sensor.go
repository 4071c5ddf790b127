package models

import "time"

// RawReading is what a sensor driver reports for a single poll.
type RawReading struct {
	SensorID     string    `json:"sensor_id"`
	TemperatureF float64   `json:"temperature_f"`
	Timestamp    time.Time `json:"timestamp"`
}

// SensorReading is a stored sample enriched with registry and anomaly state.
type SensorReading struct {
	SensorID         string     `json:"sensor_id"`
	DisplayName      string     `json:"display_name"`
	TemperatureF     float64    `json:"temperature_f"`
	Timestamp        time.Time  `json:"timestamp"`
	Enabled          bool       `json:"enabled"`
	Compromised      bool       `json:"compromised"`
	CompromisedUntil *time.Time `json:"compromised_until,omitempty"`
	// Faulted is set while the sensor's newest reading is outside the plausibility
	// bounds; TemperatureF is then its last plausible value.
	Faulted          bool       `json:"faulted"`
}

// Eligible reports whether the reading may take part in aggregation.
func (r SensorReading) Eligible() bool { return r.Enabled && !r.Compromised && !r.Faulted }

// SensorConfig is a registry entry for a physical sensor.
type SensorConfig struct {
	SensorID string `json:"sensor_id"`
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
}

// DefaultSensorName derives a display name for an auto-registered sensor.
func DefaultSensorName(sensorID string) string {
	suffix := sensorID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return "Sensor " + suffix
}

package models

import "time"

// SensorHistoryRecord is one persisted sensor sample.
type SensorHistoryRecord struct {
	SensorID     string    `json:"sensor_id"`
	SensorName   string    `json:"sensor_name"`
	TemperatureF float64   `json:"temperature_f"`
	Compromised  bool      `json:"compromised"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// HVACHistoryRecord is a persisted snapshot of plant output.
type HVACHistoryRecord struct {
	SystemTempF *float64  `json:"system_temp_f,omitempty"`
	TargetHeatF float64   `json:"target_heat_f"`
	TargetCoolF float64   `json:"target_cool_f"`
	Mode        Mode      `json:"mode"`
	FanMode     FanMode   `json:"fan_mode"`
	HeatStages  []int     `json:"heat_stages"`
	CoolStages  []int     `json:"cool_stages"`
	Fan         bool      `json:"fan"`
	RecordedAt  time.Time `json:"recorded_at"`
}

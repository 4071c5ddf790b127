package models

import "time"

// Source tags attributed to every setpoint mutation.
const (
	SourceManual         = "manual"
	SourceStartup        = "startup"
	scheduleSourcePrefix = "schedule:"
)

// ScheduleSource returns the audit source tag for a schedule application.
func ScheduleSource(name string) string { return scheduleSourcePrefix + name }

// Setpoints are the user-facing targets the control loop regulates toward.
type Setpoints struct {
	TargetHeatF float64   `json:"target_heat_f"`
	TargetCoolF float64   `json:"target_cool_f"`
	Mode        Mode      `json:"mode"`
	FanMode     FanMode   `json:"fan_mode"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SettingChange is one row of the setpoint audit trail.
type SettingChange struct {
	ID         int64     `json:"id"`
	Setpoints  Setpoints `json:"setpoints"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}

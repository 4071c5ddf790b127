package models

import "time"

// Audit event types.
const (
	EventStartup            = "STARTUP"
	EventShutdown           = "SHUTDOWN"
	EventSettingChange      = "SETTING_CHANGE"
	EventScheduleApplied    = "SCHEDULE_APPLIED"
	EventHoldChange         = "HOLD_CHANGE"
	EventStageChange        = "STAGE_CHANGE"
	EventSensorCompromised  = "SENSOR_COMPROMISED"
	EventSensorCleared      = "SENSOR_CLEARED"
	EventSensorFault        = "SENSOR_FAULT"
	EventInterlockViolation = "INTERLOCK_VIOLATION"
	EventError              = "ERROR"
)

// Event is a single audit log entry.
type Event struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Source      string    `json:"source,omitempty"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}

package service

import (
	"context"
	"time"

	"multizone_thermostat/internal/config"
	"multizone_thermostat/internal/models"
	"multizone_thermostat/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Thermostat is the command surface of the control loop.
type Thermostat interface {
	SetTemperature(ctx context.Context, kind models.StageKind, value float64) (Ack, error)
	SetMode(ctx context.Context, mode string) (Ack, error)
	SetFan(ctx context.Context, on bool) (Ack, error)
	ResumeSchedules(ctx context.Context) (Ack, error)
	EnableSchedules(ctx context.Context, enabled bool) (Ack, error)
	ReloadSensors(ctx context.Context) error
	ReloadSchedules(ctx context.Context) error
}

// Monitoring exposes the read model (status snapshot).
type Monitoring interface {
	Status(units string) (models.StatusSnapshot, error)
}

// EventLog exposes the audit trail with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.Event, error)
}

// History exposes the recorded sensor, plant and setpoint history.
type History interface {
	SensorHistory(ctx context.Context, sensorID string, f HistoryFilter) ([]models.SensorHistoryRecord, error)
	HVACHistory(ctx context.Context, f HistoryFilter) ([]models.HVACHistoryRecord, error)
	SettingHistory(ctx context.Context, f HistoryFilter) ([]models.SettingChange, error)
}

// Schedules manages the schedule table.
type Schedules interface {
	ListSchedules(ctx context.Context) ([]models.Schedule, error)
	CreateSchedule(ctx context.Context, s models.Schedule) (models.Schedule, error)
	UpdateSchedule(ctx context.Context, s models.Schedule) (models.Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) error
}

// Sensors manages the sensor registry.
type Sensors interface {
	ListSensors(ctx context.Context) ([]models.SensorConfig, error)
	UpdateSensor(ctx context.Context, s models.SensorConfig) error
}

type Service struct {
	Thermostat
	Monitoring
	EventLog
	History
	Schedules
	Sensors
	Authorization
}

// NewService wires the repository layer and the running controller into the
// services consumed by the handlers.
func NewService(repos *repository.Repository, ctl *ThermostatController, auth config.AuthConfig) *Service {
	return &Service{
		Thermostat:    ctl,
		Monitoring:    ctl,
		EventLog:      NewEventLogService(repos.Events),
		History:       NewHistoryService(repos.History, repos.Settings),
		Schedules:     NewScheduleService(repos.Schedules, ctl, ctl.cfg.Setpoint.MinF, ctl.cfg.Setpoint.MaxF),
		Sensors:       NewSensorService(repos.Sensors, ctl),
		Authorization: NewAuthService(repos.Auth, auth.SigningKey, auth.TokenTTL),
	}
}

// LogFilter supports audit log filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "SETTING_CHANGE", "STAGE_CHANGE", ...
}

// HistoryFilter bounds a history query.
type HistoryFilter struct {
	From time.Time
	To   time.Time
}

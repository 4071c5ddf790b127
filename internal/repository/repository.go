package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"multizone_thermostat/internal/models"
)

// ErrNotFound is returned by update/delete operations that matched no row.
var ErrNotFound = errors.New("not found")

// timeLayout is fixed width so stored timestamps compare lexically.
const timeLayout = "2006-01-02 15:04:05.000"

func dbTime(t time.Time) string { return t.UTC().Format(timeLayout) }

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type SettingsRepo interface {
	// Load returns found=false when nothing has been saved yet.
	Load(ctx context.Context) (sp models.Setpoints, found bool, err error)
	Save(ctx context.Context, sp models.Setpoints, source string) error
	History(ctx context.Context, from, to time.Time) ([]models.SettingChange, error)
}

type ScheduleRepo interface {
	List(ctx context.Context) ([]models.Schedule, error)
	Get(ctx context.Context, id int64) (*models.Schedule, error)
	Create(ctx context.Context, s models.Schedule) (int64, error)
	Update(ctx context.Context, s models.Schedule) error
	Delete(ctx context.Context, id int64) error
}

type StageRepo interface {
	Load(ctx context.Context) ([]models.StageConfig, error)
	Save(ctx context.Context, stages []models.StageConfig) error
}

type SensorRepo interface {
	List(ctx context.Context) ([]models.SensorConfig, error)
	Register(ctx context.Context, s models.SensorConfig) error
	Update(ctx context.Context, s models.SensorConfig) error
}

type EventRepo interface {
	Append(ctx context.Context, e models.Event) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.Event, error)
}

type HistoryRepo interface {
	AppendSensorReadings(ctx context.Context, recs []models.SensorHistoryRecord) error
	AppendHVAC(ctx context.Context, rec models.HVACHistoryRecord) error
	ListSensor(ctx context.Context, sensorID string, from, to time.Time) ([]models.SensorHistoryRecord, error)
	ListHVAC(ctx context.Context, from, to time.Time) ([]models.HVACHistoryRecord, error)
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}

type Repository struct {
	Settings  SettingsRepo
	Schedules ScheduleRepo
	Stages    StageRepo
	Sensors   SensorRepo
	Events    EventRepo
	History   HistoryRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Settings:  NewSettingsSQLite(db),
		Schedules: NewScheduleSQLite(db),
		Stages:    NewStageSQLite(db),
		Sensors:   NewSensorSQLite(db),
		Events:    NewEventSQLite(db),
		History:   NewHistorySQLite(db),
		Auth:      NewUserRepository(db),
	}
}

// rangeClause appends [from, to] conditions on col, skipping zero bounds.
func rangeClause(col string, from, to time.Time, conds []string, args []any) ([]string, []any) {
	if !from.IsZero() {
		conds = append(conds, col+" >= ?")
		args = append(args, dbTime(from))
	}
	if !to.IsZero() {
		conds = append(conds, col+" <= ?")
		args = append(args, dbTime(to))
	}
	return conds, args
}

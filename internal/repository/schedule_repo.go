package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"multizone_thermostat/internal/models"
)

type ScheduleSQLite struct {
	db *sql.DB
}

func NewScheduleSQLite(db *sql.DB) *ScheduleSQLite { return &ScheduleSQLite{db: db} }

var _ ScheduleRepo = (*ScheduleSQLite)(nil)

const (
	scheduleColumns = `id, name, days_of_week, time_of_day, target_heat_f, target_cool_f, mode, enabled`

	selectSchedulesSQL    = `SELECT ` + scheduleColumns + ` FROM schedules ORDER BY time_of_day ASC, name ASC`
	selectScheduleByIDSQL = `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ?`

	insertScheduleSQL = `
		INSERT INTO schedules (name, days_of_week, time_of_day, target_heat_f, target_cool_f, mode, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	updateScheduleSQL = `
		UPDATE schedules SET name=?, days_of_week=?, time_of_day=?, target_heat_f=?, target_cool_f=?, mode=?, enabled=?
		WHERE id=?
	`
	deleteScheduleSQL = `DELETE FROM schedules WHERE id = ?`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (models.Schedule, error) {
	var (
		s          models.Schedule
		days       string
		heat, cool sql.NullFloat64
		mode       sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &days, &s.TimeOfDay, &heat, &cool, &mode, &s.Enabled); err != nil {
		return models.Schedule{}, err
	}
	d, err := models.ParseDays(days)
	if err != nil {
		return models.Schedule{}, fmt.Errorf("schedule %q: %w", s.Name, err)
	}
	s.Days = d
	if heat.Valid {
		v := heat.Float64
		s.TargetHeatF = &v
	}
	if cool.Valid {
		v := cool.Float64
		s.TargetCoolF = &v
	}
	if mode.Valid && mode.String != "" {
		m, ok := models.ParseMode(mode.String)
		if !ok {
			return models.Schedule{}, fmt.Errorf("schedule %q: invalid mode %q", s.Name, mode.String)
		}
		s.Mode = &m
	}
	return s, nil
}

func scheduleArgs(s models.Schedule) []any {
	var mode any
	if s.Mode != nil {
		mode = string(*s.Mode)
	}
	return []any{s.Name, s.Days.String(), s.TimeOfDay, nullableFloat(s.TargetHeatF), nullableFloat(s.TargetCoolF), mode, s.Enabled}
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// List returns all schedules ordered by clock then name.
func (r *ScheduleSQLite) List(ctx context.Context) ([]models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, selectSchedulesSQL)
	if err != nil {
		return nil, fmt.Errorf("select schedules: %w", err)
	}
	defer rows.Close()

	var out []models.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get returns (nil, nil) if no schedule has the id.
func (r *ScheduleSQLite) Get(ctx context.Context, id int64) (*models.Schedule, error) {
	s, err := scanSchedule(r.db.QueryRowContext(ctx, selectScheduleByIDSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select schedule %d: %w", id, err)
	}
	return &s, nil
}

func (r *ScheduleSQLite) Create(ctx context.Context, s models.Schedule) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertScheduleSQL, scheduleArgs(s)...)
	if err != nil {
		return 0, fmt.Errorf("insert schedule %q: %w", s.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for schedule %q: %w", s.Name, err)
	}
	return id, nil
}

func (r *ScheduleSQLite) Update(ctx context.Context, s models.Schedule) error {
	res, err := r.db.ExecContext(ctx, updateScheduleSQL, append(scheduleArgs(s), s.ID)...)
	if err != nil {
		return fmt.Errorf("update schedule %d: %w", s.ID, err)
	}
	return expectAffected(res, "schedule", s.ID)
}

func (r *ScheduleSQLite) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteScheduleSQL, id)
	if err != nil {
		return fmt.Errorf("delete schedule %d: %w", id, err)
	}
	return expectAffected(res, "schedule", id)
}

func expectAffected(res sql.Result, what string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s %v: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return nil
}

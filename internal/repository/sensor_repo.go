package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"multizone_thermostat/internal/models"
)

type SensorSQLite struct {
	db *sql.DB
}

func NewSensorSQLite(db *sql.DB) *SensorSQLite { return &SensorSQLite{db: db} }

const (
	selectSensorsSQL  = `SELECT sensor_id, name, enabled FROM sensors ORDER BY sensor_id ASC`
	registerSensorSQL = `
		INSERT INTO sensors (sensor_id, name, enabled, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(sensor_id) DO NOTHING
	`
	updateSensorSQL = `UPDATE sensors SET name = ?, enabled = ? WHERE sensor_id = ?`
)

func (r *SensorSQLite) List(ctx context.Context) ([]models.SensorConfig, error) {
	rows, err := r.db.QueryContext(ctx, selectSensorsSQL)
	if err != nil {
		return nil, fmt.Errorf("select sensors: %w", err)
	}
	defer rows.Close()

	var out []models.SensorConfig
	for rows.Next() {
		var s models.SensorConfig
		if err := rows.Scan(&s.SensorID, &s.Name, &s.Enabled); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Register inserts a sensor unless it is already known; existing rows keep
// their user-edited name and enabled flag.
func (r *SensorSQLite) Register(ctx context.Context, s models.SensorConfig) error {
	if s.Name == "" {
		s.Name = models.DefaultSensorName(s.SensorID)
	}
	if _, err := r.db.ExecContext(ctx, registerSensorSQL, s.SensorID, s.Name, s.Enabled, dbTime(time.Now())); err != nil {
		return fmt.Errorf("register sensor %q: %w", s.SensorID, err)
	}
	return nil
}

func (r *SensorSQLite) Update(ctx context.Context, s models.SensorConfig) error {
	res, err := r.db.ExecContext(ctx, updateSensorSQL, s.Name, s.Enabled, s.SensorID)
	if err != nil {
		return fmt.Errorf("update sensor %q: %w", s.SensorID, err)
	}
	return expectAffected(res, "sensor", s.SensorID)
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"multizone_thermostat/internal/models"
)

type HistorySQLite struct {
	db *sql.DB
}

func NewHistorySQLite(db *sql.DB) *HistorySQLite { return &HistorySQLite{db: db} }

const (
	insertSensorHistorySQL = `
		INSERT INTO sensor_history (sensor_id, sensor_name, temperature_f, compromised, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`
	insertHVACHistorySQL = `
		INSERT INTO hvac_history (system_temp_f, target_heat_f, target_cool_f, mode, fan_mode, heat_stages, cool_stages, fan, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
)

// historyTables are pruned by Cleanup. Audit events are kept.
var historyTables = []struct{ name, col string }{
	{"sensor_history", "recorded_at"},
	{"hvac_history", "recorded_at"},
	{"setting_history", "occurred_at"},
}

// AppendSensorReadings stores one batch of samples atomically.
func (r *HistorySQLite) AppendSensorReadings(ctx context.Context, recs []models.SensorHistoryRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sensor history tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range recs {
		if _, err := tx.ExecContext(ctx, insertSensorHistorySQL,
			rec.SensorID, rec.SensorName, rec.TemperatureF, rec.Compromised, dbTime(rec.RecordedAt),
		); err != nil {
			return fmt.Errorf("insert sensor history for %q: %w", rec.SensorID, err)
		}
	}
	return tx.Commit()
}

func (r *HistorySQLite) AppendHVAC(ctx context.Context, rec models.HVACHistoryRecord) error {
	heat, err := marshalStages(rec.HeatStages)
	if err != nil {
		return err
	}
	cool, err := marshalStages(rec.CoolStages)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertHVACHistorySQL,
		nullableFloat(rec.SystemTempF),
		rec.TargetHeatF,
		rec.TargetCoolF,
		string(rec.Mode),
		string(rec.FanMode),
		heat,
		cool,
		rec.Fan,
		dbTime(rec.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert hvac history: %w", err)
	}
	return nil
}

// marshalStages encodes a stage list as a JSON array, never "null".
func marshalStages(stages []int) (string, error) {
	if stages == nil {
		stages = []int{}
	}
	b, err := json.Marshal(stages)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalStages(s string) ([]int, error) {
	if s == "" {
		return []int{}, nil
	}
	var out []int
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSensor returns samples in [from, to]; an empty sensorID matches all sensors.
func (r *HistorySQLite) ListSensor(ctx context.Context, sensorID string, from, to time.Time) ([]models.SensorHistoryRecord, error) {
	conds, args := rangeClause("recorded_at", from, to, nil, nil)
	if sensorID != "" {
		conds = append(conds, "sensor_id = ?")
		args = append(args, sensorID)
	}

	q := `SELECT sensor_id, sensor_name, temperature_f, compromised, recorded_at FROM sensor_history`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY recorded_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.SensorHistoryRecord, 0, 64)
	for rows.Next() {
		var rec models.SensorHistoryRecord
		if err := rows.Scan(&rec.SensorID, &rec.SensorName, &rec.TemperatureF, &rec.Compromised, &rec.RecordedAt); err != nil {
			return nil, err
		}
		rec.RecordedAt = rec.RecordedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *HistorySQLite) ListHVAC(ctx context.Context, from, to time.Time) ([]models.HVACHistoryRecord, error) {
	conds, args := rangeClause("recorded_at", from, to, nil, nil)

	q := `SELECT system_temp_f, target_heat_f, target_cool_f, mode, fan_mode, heat_stages, cool_stages, fan, recorded_at FROM hvac_history`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY recorded_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.HVACHistoryRecord, 0, 64)
	for rows.Next() {
		var (
			rec           models.HVACHistoryRecord
			sys           sql.NullFloat64
			mode, fanMode string
			heat, cool    string
		)
		if err := rows.Scan(&sys, &rec.TargetHeatF, &rec.TargetCoolF, &mode, &fanMode, &heat, &cool, &rec.Fan, &rec.RecordedAt); err != nil {
			return nil, err
		}
		if sys.Valid {
			v := sys.Float64
			rec.SystemTempF = &v
		}
		rec.Mode = models.Mode(mode)
		rec.FanMode = models.FanMode(fanMode)
		if rec.HeatStages, err = unmarshalStages(heat); err != nil {
			return nil, fmt.Errorf("decode heat stages: %w", err)
		}
		if rec.CoolStages, err = unmarshalStages(cool); err != nil {
			return nil, fmt.Errorf("decode cool stages: %w", err)
		}
		rec.RecordedAt = rec.RecordedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Cleanup deletes history rows recorded before the cutoff and reports how many
// rows were removed.
func (r *HistorySQLite) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	cutoff := dbTime(before)
	for _, t := range historyTables {
		res, err := r.db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE "+t.col+" < ?", cutoff)
		if err != nil {
			return total, fmt.Errorf("cleanup %s: %w", t.name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("cleanup %s rows affected: %w", t.name, err)
		}
		total += n
	}
	return total, nil
}

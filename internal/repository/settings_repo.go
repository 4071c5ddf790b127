package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"multizone_thermostat/internal/models"
)

type SettingsSQLite struct {
	db *sql.DB
}

func NewSettingsSQLite(db *sql.DB) *SettingsSQLite {
	return &SettingsSQLite{db: db}
}

const (
	settingsRowID = 1

	upsertSettingsSQL = `
		INSERT INTO settings (id, target_heat_f, target_cool_f, mode, fan_mode, source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			target_heat_f=excluded.target_heat_f,
			target_cool_f=excluded.target_cool_f,
			mode=excluded.mode,
			fan_mode=excluded.fan_mode,
			source=excluded.source,
			updated_at=excluded.updated_at
	`

	insertSettingHistorySQL = `INSERT INTO setting_history (occurred_at, source, snapshot) VALUES (?, ?, ?)`

	selectSettingsSQL = `
		SELECT target_heat_f, target_cool_f, mode, fan_mode, updated_at
		FROM settings WHERE id=?
	`
)

// Save upserts the singleton settings row and records the change in
// setting_history within one transaction.
func (r *SettingsSQLite) Save(ctx context.Context, sp models.Setpoints, source string) error {
	if sp.UpdatedAt.IsZero() {
		sp.UpdatedAt = time.Now()
	}
	sp.UpdatedAt = sp.UpdatedAt.UTC()

	snapshot, err := json.Marshal(sp)
	if err != nil {
		return fmt.Errorf("marshal setpoints: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertSettingsSQL,
		settingsRowID,
		sp.TargetHeatF,
		sp.TargetCoolF,
		string(sp.Mode),
		string(sp.FanMode),
		source,
		dbTime(sp.UpdatedAt),
	); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertSettingHistorySQL, dbTime(sp.UpdatedAt), source, string(snapshot)); err != nil {
		return fmt.Errorf("insert setting history: %w", err)
	}
	return tx.Commit()
}

// Load fetches the singleton settings row.
func (r *SettingsSQLite) Load(ctx context.Context) (models.Setpoints, bool, error) {
	var (
		sp            models.Setpoints
		mode, fanMode string
	)
	err := r.db.QueryRowContext(ctx, selectSettingsSQL, settingsRowID).
		Scan(&sp.TargetHeatF, &sp.TargetCoolF, &mode, &fanMode, &sp.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Setpoints{}, false, nil
		}
		return models.Setpoints{}, false, fmt.Errorf("select settings: %w", err)
	}

	m, ok := models.ParseMode(mode)
	if !ok {
		return models.Setpoints{}, false, fmt.Errorf("stored mode %q is invalid", mode)
	}
	f, ok := models.ParseFanMode(fanMode)
	if !ok {
		return models.Setpoints{}, false, fmt.Errorf("stored fan mode %q is invalid", fanMode)
	}
	sp.Mode, sp.FanMode = m, f
	sp.UpdatedAt = sp.UpdatedAt.UTC()
	return sp, true, nil
}

// History lists setting changes within [from, to], oldest first.
func (r *SettingsSQLite) History(ctx context.Context, from, to time.Time) ([]models.SettingChange, error) {
	conds, args := rangeClause("occurred_at", from, to, nil, nil)

	q := `SELECT id, occurred_at, source, snapshot FROM setting_history`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.SettingChange, 0, 32)
	for rows.Next() {
		var (
			c        models.SettingChange
			snapshot string
		)
		if err := rows.Scan(&c.ID, &c.OccurredAt, &c.Source, &snapshot); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(snapshot), &c.Setpoints); err != nil {
			return nil, fmt.Errorf("decode setting snapshot %d: %w", c.ID, err)
		}
		c.OccurredAt = c.OccurredAt.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

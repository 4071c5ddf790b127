package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"multizone_thermostat/internal/models"
)

type StageSQLite struct {
	db *sql.DB
}

func NewStageSQLite(db *sql.DB) *StageSQLite { return &StageSQLite{db: db} }

const (
	selectStagesSQL = `
		SELECT kind, stage_number, relay_channel, temp_offset_f, min_run_s, min_rest_s, enabled
		FROM stage_configs ORDER BY kind ASC, stage_number ASC
	`
	deleteStagesSQL = `DELETE FROM stage_configs`
	insertStageSQL  = `
		INSERT INTO stage_configs (kind, stage_number, relay_channel, temp_offset_f, min_run_s, min_rest_s, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
)

// Load returns the persisted stage table; an empty result means none was saved.
func (r *StageSQLite) Load(ctx context.Context) ([]models.StageConfig, error) {
	rows, err := r.db.QueryContext(ctx, selectStagesSQL)
	if err != nil {
		return nil, fmt.Errorf("select stage configs: %w", err)
	}
	defer rows.Close()

	var out []models.StageConfig
	for rows.Next() {
		var (
			c           models.StageConfig
			kind        string
			channel     int64
			runS, restS int64
		)
		if err := rows.Scan(&kind, &c.Number, &channel, &c.TempOffsetF, &runS, &restS, &c.Enabled); err != nil {
			return nil, err
		}
		k, ok := models.ParseStageKind(kind)
		if !ok {
			return nil, fmt.Errorf("stored stage kind %q is invalid", kind)
		}
		if channel < 0 || channel > 255 {
			return nil, fmt.Errorf("stored relay channel %d out of range", channel)
		}
		c.Kind = k
		c.RelayChannel = uint8(channel)
		c.MinRunTime = time.Duration(runS) * time.Second
		c.MinRestTime = time.Duration(restS) * time.Second
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Save replaces the whole stage table after validating it.
func (r *StageSQLite) Save(ctx context.Context, stages []models.StageConfig) error {
	if err := models.ValidateStageConfigs(stages); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stage tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, deleteStagesSQL); err != nil {
		return fmt.Errorf("clear stage configs: %w", err)
	}
	for _, s := range stages {
		if _, err := tx.ExecContext(ctx, insertStageSQL,
			string(s.Kind),
			s.Number,
			int64(s.RelayChannel),
			s.TempOffsetF,
			int64(s.MinRunTime/time.Second),
			int64(s.MinRestTime/time.Second),
			s.Enabled,
		); err != nil {
			return fmt.Errorf("insert %s stage %d: %w", s.Kind, s.Number, err)
		}
	}
	return tx.Commit()
}

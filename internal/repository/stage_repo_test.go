package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"multizone_thermostat/internal/models"
	"multizone_thermostat/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStageSQLite_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	cols := []string{"kind", "stage_number", "relay_channel", "temp_offset_f", "min_run_s", "min_rest_s", "enabled"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM stage_configs ORDER BY kind ASC, stage_number ASC")).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("cool", int64(1), int64(27), 0.5, int64(300), int64(300), true).
			AddRow("heat", int64(1), int64(17), 0.5, int64(180), int64(240), true))

	got, err := repository.NewStageSQLite(db).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 stages, got %d", len(got))
	}
	h := got[1]
	if h.Kind != models.StageHeat || h.RelayChannel != 17 || h.MinRunTime != 3*time.Minute || h.MinRestTime != 4*time.Minute {
		t.Fatalf("unexpected heat stage %+v", h)
	}
}

func TestStageSQLite_Load_RejectsUnknownKind(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	cols := []string{"kind", "stage_number", "relay_channel", "temp_offset_f", "min_run_s", "min_rest_s", "enabled"}
	mock.ExpectQuery("FROM stage_configs").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("fan", int64(1), int64(5), 0.0, int64(0), int64(0), true))

	if _, err := repository.NewStageSQLite(db).Load(context.Background()); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestStageSQLite_Save_ReplacesTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	stages := []models.StageConfig{
		{Kind: models.StageHeat, Number: 1, RelayChannel: 17, TempOffsetF: 0.5, MinRunTime: 5 * time.Minute, MinRestTime: 5 * time.Minute, Enabled: true},
	}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM stage_configs")).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO stage_configs")).
		WithArgs("heat", 1, int64(17), 0.5, int64(300), int64(300), true).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repository.NewStageSQLite(db).Save(context.Background(), stages); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStageSQLite_Save_ValidatesBeforeWriting(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	bad := []models.StageConfig{
		{Kind: models.StageHeat, Number: 1, RelayChannel: 17},
		{Kind: models.StageCool, Number: 1, RelayChannel: 17},
	}
	if err := repository.NewStageSQLite(db).Save(context.Background(), bad); !errors.Is(err, models.ErrInvalidStageConfig) {
		t.Fatalf("expected ErrInvalidStageConfig, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no SQL expected: %v", err)
	}
}

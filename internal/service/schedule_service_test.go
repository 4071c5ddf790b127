package service

import (
	"context"
	"errors"
	"testing"

	"multizone_thermostat/internal/models"
)

type countingReloader struct {
	schedules int
	sensors   int
	err       error
}

func (r *countingReloader) ReloadSchedules(context.Context) error { r.schedules++; return r.err }
func (r *countingReloader) ReloadSensors(context.Context) error   { r.sensors++; return r.err }

func validSchedule() models.Schedule {
	return models.Schedule{
		Name:        " evening ",
		Days:        models.NewDaySet(1, 2, 3, 4, 5),
		TimeOfDay:   "18:30",
		TargetHeatF: f64(70),
		Enabled:     true,
	}
}

func TestScheduleService_CreateValidatesAndReloads(t *testing.T) {
	repo := &memSchedules{}
	rl := &countingReloader{}
	svc := NewScheduleService(repo, rl, 50, 90)
	ctx := context.Background()

	created, err := svc.CreateSchedule(ctx, validSchedule())
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if created.ID != 1 || created.Name != "evening" {
		t.Fatalf("created = %+v", created)
	}
	if rl.schedules != 1 {
		t.Fatalf("reloads = %d, want 1", rl.schedules)
	}

	list, _ := svc.ListSchedules(ctx)
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}
}

func TestScheduleService_Validation(t *testing.T) {
	svc := NewScheduleService(&memSchedules{}, &countingReloader{}, 50, 90)

	tests := []struct {
		name   string
		mutate func(*models.Schedule)
	}{
		{name: "empty name", mutate: func(s *models.Schedule) { s.Name = "  " }},
		{name: "no days", mutate: func(s *models.Schedule) { s.Days = 0 }},
		{name: "bad clock", mutate: func(s *models.Schedule) { s.TimeOfDay = "25:00" }},
		{name: "heat target below range", mutate: func(s *models.Schedule) { s.TargetHeatF = f64(45) }},
		{name: "cool target above range", mutate: func(s *models.Schedule) { s.TargetCoolF = f64(95) }},
		{name: "bad mode", mutate: func(s *models.Schedule) { m := models.Mode("dry"); s.Mode = &m }},
		{name: "changes nothing", mutate: func(s *models.Schedule) { s.TargetHeatF = nil }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := validSchedule()
			tc.mutate(&s)
			_, err := svc.CreateSchedule(context.Background(), s)
			if !errors.Is(err, ErrInvalidSchedule) {
				t.Fatalf("expected ErrInvalidSchedule, got %v", err)
			}
		})
	}
}

func TestScheduleService_UpdateDeleteNotFound(t *testing.T) {
	rl := &countingReloader{}
	svc := NewScheduleService(&memSchedules{}, rl, 50, 90)
	ctx := context.Background()

	s := validSchedule()
	s.ID = 9
	if _, err := svc.UpdateSchedule(ctx, s); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update: expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteSchedule(ctx, 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound, got %v", err)
	}
	if rl.schedules != 0 {
		t.Fatalf("reloaded after failed mutation")
	}
}

func TestScheduleService_ReachesController(t *testing.T) {
	h := newHarness(t)
	svc := NewScheduleService(h.schedules, h.ctl, 50, 90)

	s := validSchedule()
	s.Days = models.EveryDay
	s.TimeOfDay = "06:00"
	if _, err := svc.CreateSchedule(context.Background(), s); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	st := h.cycle(uniform(68))
	if st.Setpoints.TargetHeatF != 70 {
		t.Fatalf("new schedule not applied: %+v", st.Setpoints)
	}
}

func TestSensorService_Update(t *testing.T) {
	repo := &memSensors{items: map[string]models.SensorConfig{
		"28-a": {SensorID: "28-a", Name: "Sensor 28-a", Enabled: true},
	}}
	rl := &countingReloader{}
	svc := NewSensorService(repo, rl)
	ctx := context.Background()

	if err := svc.UpdateSensor(ctx, models.SensorConfig{SensorID: "28-a", Name: " Living room ", Enabled: false}); err != nil {
		t.Fatalf("UpdateSensor: %v", err)
	}
	list, _ := svc.ListSensors(ctx)
	if list[0].Name != "Living room" || list[0].Enabled {
		t.Fatalf("sensor = %+v", list[0])
	}
	if rl.sensors != 1 {
		t.Fatalf("reloads = %d", rl.sensors)
	}

	if err := svc.UpdateSensor(ctx, models.SensorConfig{SensorID: "28-b", Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.UpdateSensor(ctx, models.SensorConfig{SensorID: " "}); !errors.Is(err, ErrInvalidSensor) {
		t.Fatalf("expected ErrInvalidSensor, got %v", err)
	}
}

func TestHistoryService_ValidatesRange(t *testing.T) {
	hist := &memHistory{}
	settings := &memSettings{}
	svc := NewHistoryService(hist, settings)
	ctx := context.Background()

	bad := HistoryFilter{From: t0, To: t0.Add(-1)}
	if _, err := svc.HVACHistory(ctx, bad); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("hvac: expected ErrInvalidTimeRange, got %v", err)
	}
	if _, err := svc.SettingHistory(ctx, bad); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("settings: expected ErrInvalidTimeRange, got %v", err)
	}
	if _, err := svc.SensorHistory(ctx, "", HistoryFilter{}); !errors.Is(err, ErrInvalidSensor) {
		t.Fatalf("sensor: expected ErrInvalidSensor, got %v", err)
	}

	_ = hist.AppendSensorReadings(ctx, []models.SensorHistoryRecord{{SensorID: "28-a", TemperatureF: 70}})
	recs, err := svc.SensorHistory(ctx, " 28-a ", HistoryFilter{})
	if err != nil || len(recs) != 1 {
		t.Fatalf("SensorHistory = %+v, %v", recs, err)
	}
}

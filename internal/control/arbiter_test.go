package control

import (
	"testing"
	"time"

	"multizone_thermostat/internal/models"
)

// Wednesday 2025-01-15.
var wed0630 = time.Date(2025, 1, 15, 6, 30, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func mode(m models.Mode) *models.Mode { return &m }

func newArbiter(enabled bool, catchUp time.Duration) *ScheduleArbiter {
	return NewScheduleArbiter(ArbiterConfig{Enabled: enabled, HoldDuration: 2 * time.Hour, CatchUpWindow: catchUp})
}

func weekdayMorning(name string) models.Schedule {
	return models.Schedule{
		Name:        name,
		Days:        models.NewDaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday),
		TimeOfDay:   "06:30",
		TargetHeatF: f64(70),
		Enabled:     true,
	}
}

func TestArbiter_AppliesMatchingScheduleOncePerDay(t *testing.T) {
	a := newArbiter(true, 0)
	a.SetSchedules([]models.Schedule{weekdayMorning("wake")})

	res := a.Evaluate(wed0630.Add(10 * time.Second))
	if res.Apply == nil || res.Apply.Name != "wake" {
		t.Fatalf("expected wake applied, got %+v", res)
	}
	if res := a.Evaluate(wed0630.Add(40 * time.Second)); res.Apply != nil {
		t.Fatalf("schedule must apply at most once per day")
	}
	if res := a.Evaluate(wed0630.Add(24 * time.Hour)); res.Apply == nil {
		t.Fatalf("schedule should apply again the next day")
	}
}

func TestArbiter_ExactMinuteWithoutCatchUp(t *testing.T) {
	a := newArbiter(true, 0)
	a.SetSchedules([]models.Schedule{weekdayMorning("wake")})
	if res := a.Evaluate(wed0630.Add(-time.Minute)); res.Apply != nil {
		t.Fatalf("must not fire early")
	}
	if res := a.Evaluate(wed0630.Add(time.Minute)); res.Apply != nil {
		t.Fatalf("must not fire late without catch-up")
	}
}

func TestArbiter_CatchUpWindow(t *testing.T) {
	a := newArbiter(true, 2*time.Minute)
	a.SetSchedules([]models.Schedule{weekdayMorning("wake")})
	if res := a.Evaluate(wed0630.Add(2 * time.Minute)); res.Apply == nil {
		t.Fatalf("missed minute should be caught up within the window")
	}

	b := newArbiter(true, 2*time.Minute)
	b.SetSchedules([]models.Schedule{weekdayMorning("wake")})
	if res := b.Evaluate(wed0630.Add(3 * time.Minute)); res.Apply != nil {
		t.Fatalf("outside the window nothing fires")
	}
}

func TestArbiter_DayAndEnabledFilters(t *testing.T) {
	a := newArbiter(true, 0)
	weekend := weekdayMorning("weekend")
	weekend.Days = models.NewDaySet(time.Saturday, time.Sunday)
	off := weekdayMorning("off")
	off.Enabled = false
	a.SetSchedules([]models.Schedule{weekend, off})
	if res := a.Evaluate(wed0630); res.Apply != nil {
		t.Fatalf("nothing should match, got %s", res.Apply.Name)
	}
}

func TestArbiter_TieBreakLastNameWins(t *testing.T) {
	a := newArbiter(true, 0)
	a.SetSchedules([]models.Schedule{weekdayMorning("beta"), weekdayMorning("alpha"), weekdayMorning("gamma")})
	res := a.Evaluate(wed0630)
	if res.Apply == nil || res.Apply.Name != "gamma" {
		t.Fatalf("expected gamma, got %+v", res.Apply)
	}
	if len(res.Superseded) != 2 {
		t.Fatalf("expected two superseded schedules, got %v", res.Superseded)
	}
	if res := a.Evaluate(wed0630.Add(20 * time.Second)); res.Apply != nil {
		t.Fatalf("superseded schedules must not fire later the same minute")
	}
}

func TestArbiter_LatestClockWinsInCatchUp(t *testing.T) {
	a := newArbiter(true, 5*time.Minute)
	early := weekdayMorning("zzz-early")
	early.TimeOfDay = "06:28"
	a.SetSchedules([]models.Schedule{early, weekdayMorning("late")})
	res := a.Evaluate(wed0630)
	if res.Apply == nil || res.Apply.Name != "late" {
		t.Fatalf("expected the later clock to win, got %+v", res.Apply)
	}
}

func TestArbiter_TieBreakUsesParsedClock(t *testing.T) {
	a := newArbiter(true, 5*time.Minute)
	early := weekdayMorning("zzz-early")
	early.TimeOfDay = "06:28"
	late := weekdayMorning("late")
	late.TimeOfDay = " 06:30"
	a.SetSchedules([]models.Schedule{early, late})
	res := a.Evaluate(wed0630)
	if res.Apply == nil || res.Apply.Name != "late" {
		t.Fatalf("padded clock must compare by value, got %+v", res.Apply)
	}

	b := newArbiter(true, 0)
	padded := weekdayMorning("alpha")
	padded.TimeOfDay = "06:30 "
	b.SetSchedules([]models.Schedule{weekdayMorning("beta"), padded})
	if res := b.Evaluate(wed0630); res.Apply == nil || res.Apply.Name != "beta" {
		t.Fatalf("equal clocks must resolve by name, got %+v", res.Apply)
	}
}

func TestArbiter_ManualHoldLifecycle(t *testing.T) {
	a := newArbiter(true, 0)
	a.SetSchedules([]models.Schedule{weekdayMorning("wake")})

	start := wed0630.Add(-time.Hour)
	if !a.ManualOverride(start) {
		t.Fatalf("manual override should start a hold")
	}
	hold := a.Hold()
	if hold.Kind != models.HoldOnHold || !hold.Until.Equal(start.Add(2*time.Hour)) {
		t.Fatalf("unexpected hold %+v", hold)
	}
	if res := a.Evaluate(wed0630); res.Apply != nil {
		t.Fatalf("no schedule while on hold")
	}

	// Hold expires at 07:30; the next match the same cycle it clears still applies.
	a.SetSchedules([]models.Schedule{func() models.Schedule {
		s := weekdayMorning("late")
		s.TimeOfDay = "07:30"
		return s
	}()})
	res := a.Evaluate(start.Add(2 * time.Hour))
	if !res.HoldExpired || res.Apply == nil {
		t.Fatalf("expected hold expiry and fall-through, got %+v", res)
	}
	if a.Hold().Kind != models.HoldActive {
		t.Fatalf("hold should be active again")
	}
}

func TestArbiter_ManualOverrideIgnoredWhenDisabled(t *testing.T) {
	a := newArbiter(true, 0)
	a.SetSchedulesEnabled(false)
	if a.ManualOverride(wed0630) {
		t.Fatalf("override must not touch a disabled arbiter")
	}
	if a.Hold().Kind != models.HoldDisabled {
		t.Fatalf("expected disabled, got %+v", a.Hold())
	}

	b := newArbiter(false, 0)
	if b.ManualOverride(wed0630) || b.Hold().Kind != models.HoldActive {
		t.Fatalf("master switch off: hold must be untouched, got %+v", b.Hold())
	}
	b.SetSchedules([]models.Schedule{weekdayMorning("wake")})
	if res := b.Evaluate(wed0630); res.Apply != nil {
		t.Fatalf("master switch off: nothing applies")
	}
}

func TestArbiter_ResumeAndEnable(t *testing.T) {
	a := newArbiter(true, 0)
	a.ManualOverride(wed0630)
	if !a.Resume() || a.Hold().Kind != models.HoldActive {
		t.Fatalf("resume should clear the hold")
	}
	if a.Resume() {
		t.Fatalf("resume with no hold is a no-op")
	}

	a.SetSchedulesEnabled(false)
	if a.Resume() || a.Hold().Kind != models.HoldDisabled {
		t.Fatalf("resume must not re-enable")
	}
	if !a.SetSchedulesEnabled(true) || a.Hold().Kind != models.HoldActive {
		t.Fatalf("enable should return to active")
	}
	if a.SetSchedulesEnabled(true) {
		t.Fatalf("enable is idempotent")
	}
}

func TestApplySchedule_OverlaysOnlySetFields(t *testing.T) {
	sp := models.Setpoints{TargetHeatF: 68, TargetCoolF: 74, Mode: models.ModeHeat, FanMode: models.FanOn}
	got := ApplySchedule(sp, models.Schedule{TargetCoolF: f64(78), Mode: mode(models.ModeAuto)})
	if got.TargetHeatF != 68 || got.TargetCoolF != 78 || got.Mode != models.ModeAuto || got.FanMode != models.FanOn {
		t.Fatalf("unexpected overlay %+v", got)
	}
}

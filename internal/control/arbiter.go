package control

import (
	"time"

	"multizone_thermostat/internal/models"
)

const dateLayout = "2006-01-02"

// ArbiterConfig configures schedule arbitration.
type ArbiterConfig struct {
	// Enabled is the installation-level master switch. When false no schedule is
	// ever applied and manual commands leave the hold state alone.
	Enabled      bool
	HoldDuration time.Duration
	// CatchUpWindow lets a schedule whose minute was missed by a late cycle still
	// fire shortly afterwards. Zero means exact-minute matching only.
	CatchUpWindow time.Duration
}

// ArbiterResult is the outcome of one arbitration step.
type ArbiterResult struct {
	Apply       *models.Schedule
	HoldExpired bool
	// Superseded lists schedules that matched alongside the winner and were
	// consumed for today without being applied.
	Superseded []string
}

// ScheduleArbiter decides whether a schedule rewrites the setpoints this cycle.
type ScheduleArbiter struct {
	cfg       ArbiterConfig
	hold      models.HoldState
	schedules []models.Schedule
	applied   map[string]string // schedule name -> date applied
}

func NewScheduleArbiter(cfg ArbiterConfig) *ScheduleArbiter {
	return &ScheduleArbiter{
		cfg:     cfg,
		hold:    models.ActiveHold(),
		applied: make(map[string]string),
	}
}

// SetSchedules replaces the schedule table.
func (a *ScheduleArbiter) SetSchedules(s []models.Schedule) {
	a.schedules = append([]models.Schedule(nil), s...)
}

// Schedules returns a copy of the schedule table.
func (a *ScheduleArbiter) Schedules() []models.Schedule {
	return append([]models.Schedule(nil), a.schedules...)
}

func (a *ScheduleArbiter) Hold() models.HoldState { return a.hold }
func (a *ScheduleArbiter) Enabled() bool          { return a.cfg.Enabled }

// Evaluate runs the arbitration transition function for now.
func (a *ScheduleArbiter) Evaluate(now time.Time) ArbiterResult {
	var res ArbiterResult
	if !a.cfg.Enabled || a.hold.Kind == models.HoldDisabled {
		return res
	}
	if a.hold.Kind == models.HoldOnHold {
		if now.Before(a.hold.Until) {
			return res
		}
		a.hold = models.ActiveHold()
		res.HoldExpired = true
	}

	today := now.Format(dateLayout)
	for name, date := range a.applied {
		if date != today {
			delete(a.applied, name)
		}
	}

	nowMin := now.Hour()*60 + now.Minute()
	window := int(a.cfg.CatchUpWindow / time.Minute)

	type candidate struct {
		models.Schedule
		minute int
	}
	var candidates []candidate
	for _, s := range a.schedules {
		if !s.Enabled || !s.Days.Contains(now.Weekday()) || a.applied[s.Name] == today {
			continue
		}
		tod, err := models.ParseTimeOfDay(s.TimeOfDay)
		if err != nil || tod > nowMin || nowMin-tod > window {
			continue
		}
		candidates = append(candidates, candidate{Schedule: s, minute: tod})
	}
	if len(candidates) == 0 {
		return res
	}

	// Latest clock wins; equal clocks resolve to the last name in ascending order.
	winner := candidates[0]
	for _, s := range candidates[1:] {
		if s.minute > winner.minute || (s.minute == winner.minute && s.Name > winner.Name) {
			winner = s
		}
	}
	for _, s := range candidates {
		a.applied[s.Name] = today
		if s.Name != winner.Name {
			res.Superseded = append(res.Superseded, s.Name)
		}
	}
	res.Apply = &winner.Schedule
	return res
}

// ManualOverride starts a hold after a manual command. It is a no-op when
// schedules are switched off or disabled; the returned flag reports whether the
// hold state changed.
func (a *ScheduleArbiter) ManualOverride(now time.Time) bool {
	if !a.cfg.Enabled || a.hold.Kind == models.HoldDisabled {
		return false
	}
	a.hold = models.OnHoldUntil(now.Add(a.cfg.HoldDuration))
	return true
}

// Resume clears a manual hold. Disabled schedules stay disabled.
func (a *ScheduleArbiter) Resume() bool {
	if a.hold.Kind != models.HoldOnHold {
		return false
	}
	a.hold = models.ActiveHold()
	return true
}

// SetSchedulesEnabled moves between Active and Disabled, clearing any hold.
func (a *ScheduleArbiter) SetSchedulesEnabled(enabled bool) bool {
	next := models.DisabledHold()
	if enabled {
		next = models.ActiveHold()
	}
	changed := a.hold != next
	a.hold = next
	return changed
}

// ApplySchedule overlays a schedule's optional fields onto sp.
func ApplySchedule(sp models.Setpoints, s models.Schedule) models.Setpoints {
	if s.TargetHeatF != nil {
		sp.TargetHeatF = *s.TargetHeatF
	}
	if s.TargetCoolF != nil {
		sp.TargetCoolF = *s.TargetCoolF
	}
	if s.Mode != nil {
		sp.Mode = *s.Mode
	}
	return sp
}

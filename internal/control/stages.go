package control

import (
	"fmt"
	"time"

	"multizone_thermostat/internal/models"
)

// Deferral reasons.
const (
	DeferMinRunTime  = "min_run_time"
	DeferMinRestTime = "min_rest_time"
	DeferOpposite    = "opposite_mode_active"
)

// StageRef names one stage.
type StageRef struct {
	Kind   models.StageKind `json:"kind"`
	Number int              `json:"stage_number"`
}

func (r StageRef) String() string { return fmt.Sprintf("%s stage %d", r.Kind, r.Number) }

// Transition is an applied change of a stage's active flag.
type Transition struct {
	StageRef
	Active bool
	At     time.Time
	Forced bool
}

// Deferral is a desired change that was held back this cycle.
type Deferral struct {
	StageRef
	Desired   bool
	Reason    string
	Remaining time.Duration
}

// StageDecision is the StageController output for one cycle.
type StageDecision struct {
	Heat        []int
	Cool        []int
	Fan         bool
	Eligible    []StageRef
	Transitions []Transition
	Deferred    []Deferral
}

// StageStatus exposes config and runtime state for status reporting.
type StageStatus struct {
	Config models.StageConfig       `json:"config"`
	State  models.StageRuntimeState `json:"state"`
}

type stageEntry struct {
	cfg   models.StageConfig
	state models.StageRuntimeState
}

// StageController runs the per-kind staging state machine with minimum run and
// rest times.
type StageController struct {
	heat []*stageEntry
	cool []*stageEntry
}

// NewStageController validates cfgs and starts every stage inactive with its last
// transition at start, so the first activation after boot waits out min rest time.
func NewStageController(cfgs []models.StageConfig, start time.Time) (*StageController, error) {
	if err := models.ValidateStageConfigs(cfgs); err != nil {
		return nil, err
	}
	sorted := append([]models.StageConfig(nil), cfgs...)
	models.SortStages(sorted)

	c := &StageController{}
	for _, cfg := range sorted {
		e := &stageEntry{cfg: cfg, state: models.StageRuntimeState{LastTransition: start}}
		if cfg.Kind == models.StageHeat {
			c.heat = append(c.heat, e)
		} else {
			c.cool = append(c.cool, e)
		}
	}
	return c, nil
}

// SetState overrides a stage's runtime state. It returns false for unknown stages.
func (c *StageController) SetState(ref StageRef, st models.StageRuntimeState) bool {
	e := c.find(ref)
	if e == nil {
		return false
	}
	e.state = st
	return true
}

// State returns a stage's runtime state.
func (c *StageController) State(ref StageRef) (models.StageRuntimeState, bool) {
	e := c.find(ref)
	if e == nil {
		return models.StageRuntimeState{}, false
	}
	return e.state, true
}

func (c *StageController) find(ref StageRef) *stageEntry {
	for _, e := range c.entries(ref.Kind) {
		if e.cfg.Number == ref.Number {
			return e
		}
	}
	return nil
}

func (c *StageController) entries(kind models.StageKind) []*stageEntry {
	if kind == models.StageHeat {
		return c.heat
	}
	return c.cool
}

// Active returns the active stage numbers of a kind, ascending.
func (c *StageController) Active(kind models.StageKind) []int {
	var out []int
	for _, e := range c.entries(kind) {
		if e.state.Active {
			out = append(out, e.cfg.Number)
		}
	}
	return out
}

// Stages returns the status of all stages, heat first.
func (c *StageController) Stages() []StageStatus {
	out := make([]StageStatus, 0, len(c.heat)+len(c.cool))
	for _, e := range append(append([]*stageEntry(nil), c.heat...), c.cool...) {
		out = append(out, StageStatus{Config: e.cfg, State: e.state})
	}
	return out
}

// Configs returns the stage table, heat first.
func (c *StageController) Configs() []models.StageConfig {
	out := make([]models.StageConfig, 0, len(c.heat)+len(c.cool))
	for _, e := range append(append([]*stageEntry(nil), c.heat...), c.cool...) {
		out = append(out, e.cfg)
	}
	return out
}

// Decide computes desired activation for every stage from the demand, applies the
// rate limiter and returns the resulting active sets. Deactivations are applied
// before activations, and a stage never activates while a stage of the opposite
// kind is active; heat activations win when both kinds want to start in one cycle.
func (c *StageController) Decide(systemTempF float64, sp models.Setpoints, now time.Time) StageDecision {
	var d StageDecision

	desired := map[*stageEntry]bool{}
	for _, e := range c.heat {
		want := sp.Mode.Heats() && e.cfg.Enabled && sp.TargetHeatF-systemTempF >= e.cfg.TempOffsetF
		desired[e] = want
		if want {
			d.Eligible = append(d.Eligible, StageRef{Kind: e.cfg.Kind, Number: e.cfg.Number})
		}
	}
	for _, e := range c.cool {
		want := sp.Mode.Cools() && e.cfg.Enabled && systemTempF-sp.TargetCoolF >= e.cfg.TempOffsetF
		desired[e] = want
		if want {
			d.Eligible = append(d.Eligible, StageRef{Kind: e.cfg.Kind, Number: e.cfg.Number})
		}
	}

	for _, group := range [][]*stageEntry{c.heat, c.cool} {
		for _, e := range group {
			if e.state.Active && !desired[e] {
				c.transition(e, false, now, &d)
			}
		}
	}
	for _, group := range [][]*stageEntry{c.heat, c.cool} {
		for _, e := range group {
			if e.state.Active || !desired[e] {
				continue
			}
			if c.anyActive(opposite(e.cfg.Kind)) {
				d.Deferred = append(d.Deferred, Deferral{
					StageRef: StageRef{Kind: e.cfg.Kind, Number: e.cfg.Number},
					Desired:  true,
					Reason:   DeferOpposite,
				})
				continue
			}
			c.transition(e, true, now, &d)
		}
	}

	d.Heat = c.Active(models.StageHeat)
	d.Cool = c.Active(models.StageCool)
	d.Fan = sp.FanMode == models.FanOn || len(d.Heat) > 0 || len(d.Cool) > 0
	return d
}

func (c *StageController) transition(e *stageEntry, active bool, now time.Time, d *StageDecision) {
	ref := StageRef{Kind: e.cfg.Kind, Number: e.cfg.Number}
	elapsed := now.Sub(e.state.LastTransition)
	minimum, reason := e.cfg.MinRestTime, DeferMinRestTime
	if !active {
		minimum, reason = e.cfg.MinRunTime, DeferMinRunTime
	}
	if elapsed < minimum {
		d.Deferred = append(d.Deferred, Deferral{
			StageRef:  ref,
			Desired:   active,
			Reason:    reason,
			Remaining: minimum - elapsed,
		})
		return
	}
	e.state = models.StageRuntimeState{Active: active, LastTransition: now}
	d.Transitions = append(d.Transitions, Transition{StageRef: ref, Active: active, At: now})
}

func (c *StageController) anyActive(kind models.StageKind) bool {
	for _, e := range c.entries(kind) {
		if e.state.Active {
			return true
		}
	}
	return false
}

// Reconcile forces off every active stage missing from the allowed sets, bypassing
// the rate limiter. It is how interlock corrections and shutdown reach the runtime
// state.
func (c *StageController) Reconcile(heat, cool []int, now time.Time) []Transition {
	var out []Transition
	for _, kind := range []models.StageKind{models.StageHeat, models.StageCool} {
		allowed := heat
		if kind == models.StageCool {
			allowed = cool
		}
		keep := map[int]bool{}
		for _, n := range allowed {
			keep[n] = true
		}
		for _, e := range c.entries(kind) {
			if e.state.Active && !keep[e.cfg.Number] {
				e.state = models.StageRuntimeState{Active: false, LastTransition: now}
				out = append(out, Transition{
					StageRef: StageRef{Kind: kind, Number: e.cfg.Number},
					Active:   false,
					At:       now,
					Forced:   true,
				})
			}
		}
	}
	return out
}

// ForceOff deactivates every stage immediately.
func (c *StageController) ForceOff(now time.Time) []Transition {
	return c.Reconcile(nil, nil, now)
}

// Outputs maps each stage relay channel to its commanded state for the given sets.
func (c *StageController) Outputs(heat, cool []int) map[uint8]bool {
	out := make(map[uint8]bool, len(c.heat)+len(c.cool))
	for kind, active := range map[models.StageKind][]int{models.StageHeat: heat, models.StageCool: cool} {
		on := map[int]bool{}
		for _, n := range active {
			on[n] = true
		}
		for _, e := range c.entries(kind) {
			out[e.cfg.RelayChannel] = on[e.cfg.Number]
		}
	}
	return out
}

func opposite(kind models.StageKind) models.StageKind {
	if kind == models.StageHeat {
		return models.StageCool
	}
	return models.StageHeat
}

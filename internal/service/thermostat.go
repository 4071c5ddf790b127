package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"multizone_thermostat/internal/config"
	"multizone_thermostat/internal/control"
	"multizone_thermostat/internal/gpio"
	"multizone_thermostat/internal/logger"
	"multizone_thermostat/internal/metrics"
	"multizone_thermostat/internal/models"
	"multizone_thermostat/internal/mqtt"
	"multizone_thermostat/internal/repository"

	"github.com/google/uuid"
)

// ErrShuttingDown is returned by commands received after Shutdown started.
var ErrShuttingDown = errors.New("thermostat is shutting down")

// SensorDriver polls every attached temperature sensor. It may return a partial
// list together with an error.
type SensorDriver interface {
	PollAll(ctx context.Context) ([]models.RawReading, error)
}

// ControllerDeps are the collaborators of a ThermostatController.
type ControllerDeps struct {
	Config    *config.Config
	Repos     *repository.Repository
	Sensors   SensorDriver
	Relays    gpio.Writer
	Publisher mqtt.Publisher
	Metrics   *metrics.Metric
	Log       *logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Ack confirms an accepted command and echoes the resulting state.
type Ack struct {
	Command   string           `json:"command"`
	Setpoints models.Setpoints `json:"setpoints"`
	Hold      models.HoldState `json:"hold"`
	AppliedAt time.Time        `json:"applied_at"`
}

// ThermostatController owns the control core and runs the control loop. Every
// piece of mutable state lives behind mu; blocking I/O is issued after mu is
// released.
type ThermostatController struct {
	cfg       config.Config
	repos     *repository.Repository
	sensors   SensorDriver
	relays    gpio.Writer
	pub       mqtt.Publisher
	metrics   *metrics.Metric
	log       *logger.Logger
	now       func() time.Time
	persist   *Queue
	telemetry *Queue
	kick      chan struct{}

	mu          sync.Mutex
	setpoints   models.Setpoints
	store       *control.SensorStore
	anomaly     *control.AnomalyDetector
	stages      *control.StageController
	interlock   control.SafetyInterlock
	arbiter     *control.ScheduleArbiter
	systemTemp  float64
	haveTemp    bool
	sensorFault bool
	fan         bool
	lastCycle   time.Time
	stopped     bool

	// relayMu keeps relay batches from interleaving.
	relayMu      sync.Mutex
	running      atomic.Bool
	runDone      chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error
}

// NewThermostatController loads setpoints, stages, schedules and the sensor
// registry and returns a controller ready to Run. Only an unusable stage table
// is fatal; every other persistence failure falls back to configured defaults.
func NewThermostatController(ctx context.Context, deps ControllerDeps) (*ThermostatController, error) {
	cfg := *deps.Config
	c := &ThermostatController{
		cfg:     cfg,
		repos:   deps.Repos,
		sensors: deps.Sensors,
		relays:  deps.Relays,
		pub:     deps.Publisher,
		metrics: deps.Metrics,
		log:     deps.Log.Named("thermostat"),
		now:     deps.Now,
		kick:    make(chan struct{}, 1),
		runDone: make(chan struct{}),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.pub == nil {
		c.pub = mqtt.Nop{}
	}
	if c.metrics == nil {
		c.metrics = metrics.New(nil)
	}
	c.persist = NewQueue("persistence", cfg.Control.PersistTimeout, c.log, func(string, error) {
		c.metrics.Error(metrics.ErrPersistence)
	})
	c.telemetry = NewQueue("telemetry", cfg.Control.PersistTimeout, c.log, func(string, error) {
		c.metrics.Error(metrics.ErrTelemetry)
	})

	now := c.now()
	c.setpoints = c.loadSetpoints(ctx, now)

	stages, err := c.loadStages(ctx)
	if err != nil {
		c.persist.Close()
		c.telemetry.Close()
		return nil, err
	}
	c.stages, err = control.NewStageController(stages, now)
	if err != nil {
		c.persist.Close()
		c.telemetry.Close()
		return nil, fmt.Errorf("stage table: %w", err)
	}

	c.store = control.NewSensorStore(cfg.Anomaly.Retention)
	c.store.SetBounds(cfg.Safety.MinTempF, cfg.Safety.MaxTempF)
	c.anomaly = control.NewAnomalyDetector(control.AnomalyConfig{
		RateThresholdF:      cfg.Anomaly.RateThresholdF,
		RateWindow:          cfg.Anomaly.RateWindow,
		DeviationThresholdF: cfg.Anomaly.DeviationThresholdF,
		IgnoreDuration:      cfg.Anomaly.IgnoreDuration,
	})
	c.interlock = control.SafetyInterlock{MinTempF: cfg.Safety.MinTempF, MaxTempF: cfg.Safety.MaxTempF}
	c.arbiter = control.NewScheduleArbiter(control.ArbiterConfig{
		Enabled:       cfg.Schedule.Enabled,
		HoldDuration:  cfg.Schedule.HoldDuration,
		CatchUpWindow: cfg.Schedule.CatchUpWindow,
	})

	if schedules, err := c.repos.Schedules.List(ctx); err != nil {
		c.log.Warnw("schedules_load_failed", "err", err)
	} else {
		c.arbiter.SetSchedules(schedules)
	}
	if sensors, err := c.repos.Sensors.List(ctx); err != nil {
		c.log.Warnw("sensors_load_failed", "err", err)
	} else {
		c.store.SetRegistry(sensors)
	}

	c.mu.Lock()
	c.auditLocked(now, models.EventStartup, models.SourceStartup, "controller started", map[string]any{
		"setpoints": c.setpoints,
		"stages":    len(stages),
		"driver":    cfg.Hardware.Driver,
	})
	c.mu.Unlock()
	c.log.Infow("controller_ready",
		"mode", c.setpoints.Mode,
		"target_heat_f", c.setpoints.TargetHeatF,
		"target_cool_f", c.setpoints.TargetCoolF,
		"stages", len(stages),
		"schedules", len(c.arbiter.Schedules()),
	)
	return c, nil
}

func (c *ThermostatController) loadSetpoints(ctx context.Context, now time.Time) models.Setpoints {
	sp, found, err := c.repos.Settings.Load(ctx)
	if err == nil && found {
		return sp
	}
	if err != nil {
		c.log.Warnw("settings_load_failed", "err", err)
	}
	sp = c.cfg.DefaultSetpoints()
	sp.UpdatedAt = now
	if err == nil {
		if serr := c.repos.Settings.Save(ctx, sp, models.SourceStartup); serr != nil {
			c.log.Warnw("settings_seed_failed", "err", serr)
		}
	}
	return sp
}

// loadStages prefers the persisted stage table and seeds it from config on first
// boot.
func (c *ThermostatController) loadStages(ctx context.Context) ([]models.StageConfig, error) {
	stages, err := c.repos.Stages.Load(ctx)
	switch {
	case err != nil:
		c.log.Warnw("stages_load_failed", "err", err)
		stages = c.cfg.Stages
	case len(stages) == 0:
		stages = c.cfg.Stages
		if serr := c.repos.Stages.Save(ctx, stages); serr != nil {
			c.log.Warnw("stages_seed_failed", "err", serr)
		}
	}
	for _, s := range stages {
		if s.RelayChannel == c.cfg.Hardware.FanChannel {
			return nil, fmt.Errorf("%w: %s stage %d uses the fan relay channel %d",
				models.ErrInvalidStageConfig, s.Kind, s.Number, s.RelayChannel)
		}
	}
	return stages, nil
}

// Run drives ingestion, control, history and cleanup until ctx is cancelled.
// A panic inside the loop forces every relay off before it propagates.
func (c *ThermostatController) Run(ctx context.Context) {
	c.running.Store(true)
	defer close(c.runDone)
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorw("control_loop_panic", "panic", r)
			c.forceOff()
			panic(r)
		}
	}()

	ctl := c.cfg.Control
	ingest := time.NewTicker(ctl.IngestInterval)
	defer ingest.Stop()
	decide := time.NewTicker(ctl.ControlInterval)
	defer decide.Stop()
	history := time.NewTicker(ctl.HistoryInterval)
	defer history.Stop()
	cleanup := time.NewTicker(ctl.CleanupInterval)
	defer cleanup.Stop()

	c.log.Infow("control_loop_started",
		"ingest_interval", ctl.IngestInterval,
		"control_interval", ctl.ControlInterval,
		"history_interval", ctl.HistoryInterval,
	)
	c.IngestOnce(ctx)
	c.ControlOnce(ctx)
	c.CleanupHistory()

	for {
		select {
		case <-ctx.Done():
			c.log.Infow("control_loop_stopped")
			return
		case <-ingest.C:
			c.IngestOnce(ctx)
		case <-decide.C:
			c.ControlOnce(ctx)
		case <-c.kick:
			c.ControlOnce(ctx)
		case <-history.C:
			c.RecordHistory()
		case <-cleanup.C:
			c.CleanupHistory()
		}
	}
}

// IngestOnce polls the sensor driver and feeds the readings into the store.
// Readings are stamped with the controller clock. Unknown sensors are registered.
func (c *ThermostatController) IngestOnce(ctx context.Context) {
	defer c.metrics.Timing(time.Now(), "ingest")

	pollCtx, cancel := context.WithTimeout(ctx, c.cfg.Control.SensorTimeout)
	readings, err := c.sensors.PollAll(pollCtx)
	cancel()
	if err != nil {
		c.log.Warnw("sensor_poll_failed", "err", err, "readings", len(readings))
		c.metrics.Error(metrics.ErrSensorPoll)
	}

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	for _, r := range readings {
		if !c.store.Known(r.SensorID) {
			cfg := models.SensorConfig{SensorID: r.SensorID, Name: models.DefaultSensorName(r.SensorID), Enabled: true}
			c.store.Register(cfg)
			c.persist.Enqueue("register_sensor", func(ctx context.Context) error {
				return c.repos.Sensors.Register(ctx, cfg)
			})
			c.log.Infow("sensor_registered", "sensor_id", cfg.SensorID, "name", cfg.Name)
		}
		r.Timestamp = now
		wasFaulted := c.store.IsFaulted(r.SensorID)
		if c.store.Ingest(r, now) {
			if wasFaulted {
				c.log.Infow("sensor_reading_recovered", "sensor_id", r.SensorID, "temperature_f", r.TemperatureF)
			}
			continue
		}
		if !wasFaulted {
			c.implausibleReadingLocked(now, r)
		}
	}
	c.store.Prune(now)
}

// implausibleReadingLocked reports a sensor whose reading left the plausibility
// bounds. The reading never reaches the store.
func (c *ThermostatController) implausibleReadingLocked(now time.Time, r models.RawReading) {
	c.log.Warnw("sensor_reading_implausible", "sensor_id", r.SensorID, "temperature_f", r.TemperatureF,
		"min_temp_f", c.interlock.MinTempF, "max_temp_f", c.interlock.MaxTempF)
	meta := map[string]any{"sensor_id": r.SensorID}
	if !math.IsNaN(r.TemperatureF) && !math.IsInf(r.TemperatureF, 0) {
		meta["temperature_f"] = r.TemperatureF
	}
	c.auditLocked(now, models.EventSensorFault, "",
		fmt.Sprintf("sensor %s reported implausible %.1f°F, excluded until a plausible reading", r.SensorID, r.TemperatureF), meta)
	c.metrics.Error(metrics.ErrSensorPoll)
}

// ControlOnce runs one control decision: anomaly detection, schedule arbitration,
// aggregation, staging, the interlock and the relay writes.
func (c *ThermostatController) ControlOnce(ctx context.Context) {
	defer c.metrics.Timing(time.Now(), "control")

	cyc, ok := c.decide(c.now())
	if !ok {
		return
	}
	if cyc.outputs != nil {
		c.applyOutputs(ctx, cyc.outputs, false)
	}
	c.observe(cyc.snap, cyc.stages)
}

// controlCycle carries a decision out of the locked section. A nil outputs map
// holds the last relay state.
type controlCycle struct {
	outputs map[uint8]bool
	snap    models.StatusSnapshot
	stages  []control.StageStatus
}

// decide runs the locked part of a control cycle. ok is false once the controller
// has stopped.
func (c *ThermostatController) decide(now time.Time) (controlCycle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return controlCycle{}, false
	}

	c.evaluateAnomaliesLocked(now)
	c.arbitrateLocked(now)

	temp, haveTemp := control.SystemTemperature(c.store.Latest(now))
	faulted := c.store.Faulted()
	c.lastCycle = now
	if !haveTemp && len(faulted) == 0 {
		c.haveTemp = false
		c.log.Warnw("no_eligible_sensors", "action", "holding last relay state")
		return c.cycleLocked(now, nil), true
	}

	fanOn := c.setpoints.FanMode == models.FanOn
	var d control.StageDecision
	if haveTemp && c.interlock.Plausible(temp) {
		d = c.stages.Decide(temp, c.setpoints, now)
	}
	for _, def := range d.Deferred {
		c.log.Infow("stage_change_deferred",
			"stage", def.StageRef.String(),
			"desired_active", def.Desired,
			"reason", def.Reason,
			"remaining", def.Remaining,
		)
	}

	// Only faulted sensors left: nothing plausible to act on.
	out := c.interlock.Fault(fanOn)
	if haveTemp {
		out = c.interlock.Enforce(temp, d, fanOn)
	}
	transitions := append(d.Transitions, c.stages.Reconcile(out.Heat, out.Cool, now)...)

	if out.SensorFault {
		if !c.sensorFault {
			c.sensorFaultLocked(now, temp, haveTemp, faulted)
		}
		c.haveTemp = false
	} else {
		if c.sensorFault {
			c.log.Infow("sensor_fault_cleared", "system_temp_f", temp)
		}
		c.systemTemp, c.haveTemp = temp, true
	}
	c.sensorFault = out.SensorFault

	if out.Violation {
		c.log.Errorw("interlock_violation", "heat", d.Heat, "cool", d.Cool, "action", "cool stages forced off")
		c.auditLocked(now, models.EventInterlockViolation, "", "heat and cool requested together; cool forced off",
			map[string]any{"heat": d.Heat, "cool": d.Cool})
		c.metrics.Error(metrics.ErrInterlock)
	}

	for _, tr := range transitions {
		c.log.Infow("stage_change", "stage", tr.StageRef.String(), "active", tr.Active, "forced", tr.Forced)
		c.auditLocked(now, models.EventStageChange, "", fmt.Sprintf("%s %s", tr.StageRef, onOff(tr.Active)),
			map[string]any{"kind": tr.Kind, "stage": tr.Number, "active": tr.Active, "forced": tr.Forced})
	}

	c.fan = out.Fan
	return c.cycleLocked(now, c.outputsLocked()), true
}

func (c *ThermostatController) cycleLocked(now time.Time, outputs map[uint8]bool) controlCycle {
	snap := c.snapshotLocked(now)
	c.publishStatusLocked(snap)
	return controlCycle{outputs: outputs, snap: snap, stages: c.stages.Stages()}
}

func (c *ThermostatController) sensorFaultLocked(now time.Time, temp float64, haveTemp bool, faulted []string) {
	if !haveTemp {
		c.log.Warnw("sensor_fault", "faulted_sensors", faulted,
			"min_temp_f", c.interlock.MinTempF, "max_temp_f", c.interlock.MaxTempF)
		c.auditLocked(now, models.EventSensorFault, "", "no plausible sensor readings, all stages off",
			map[string]any{"faulted_sensors": faulted})
		return
	}
	c.log.Warnw("sensor_fault", "system_temp_f", temp,
		"min_temp_f", c.interlock.MinTempF, "max_temp_f", c.interlock.MaxTempF)
	c.auditLocked(now, models.EventSensorFault, "", fmt.Sprintf("implausible system temperature %.1f°F, all stages off", temp),
		map[string]any{"system_temp_f": temp})
}

func (c *ThermostatController) evaluateAnomaliesLocked(now time.Time) {
	res := c.anomaly.Evaluate(c.store, now)
	for _, f := range res.Flagged {
		c.log.Warnw("sensor_compromised", "sensor_id", f.SensorID, "tests", f.Tests, "reason", f.Reason, "until", f.Until)
		c.auditLocked(now, models.EventSensorCompromised, "", fmt.Sprintf("sensor %s compromised: %s", f.SensorID, f.Reason),
			map[string]any{"sensor_id": f.SensorID, "tests": f.Tests, "until": f.Until})
	}
	for _, id := range res.Cleared {
		c.log.Infow("sensor_cleared", "sensor_id", id)
		c.auditLocked(now, models.EventSensorCleared, "", fmt.Sprintf("sensor %s eligible again", id),
			map[string]any{"sensor_id": id})
	}
	if res.DeviationSkipped {
		c.log.Infow("deviation_test_skipped", "reason", "no eligible sensors for the mean")
	}
}

func (c *ThermostatController) arbitrateLocked(now time.Time) {
	res := c.arbiter.Evaluate(now)
	if res.HoldExpired {
		c.log.Infow("hold_expired")
		c.auditLocked(now, models.EventHoldChange, "", "manual hold expired, schedules active",
			map[string]any{"hold": c.arbiter.Hold()})
	}
	if res.Apply == nil {
		return
	}
	s := *res.Apply
	source := models.ScheduleSource(s.Name)
	c.setpoints = control.ApplySchedule(c.setpoints, s)
	c.setpoints.UpdatedAt = now
	c.saveSettingsLocked(source)
	c.log.Infow("schedule_applied", "schedule", s.Name, "time_of_day", s.TimeOfDay,
		"mode", c.setpoints.Mode, "target_heat_f", c.setpoints.TargetHeatF, "target_cool_f", c.setpoints.TargetCoolF,
		"superseded", res.Superseded)
	c.auditLocked(now, models.EventScheduleApplied, source, fmt.Sprintf("schedule %q applied", s.Name),
		map[string]any{"schedule": s.Name, "setpoints": c.setpoints, "superseded": res.Superseded})
}

// outputsLocked maps every relay channel, fan included, to its commanded state.
func (c *ThermostatController) outputsLocked() map[uint8]bool {
	out := c.stages.Outputs(c.stages.Active(models.StageHeat), c.stages.Active(models.StageCool))
	out[c.cfg.Hardware.FanChannel] = c.fan
	return out
}

// applyOutputs writes a relay batch, releases before engages, each write bounded
// by the relay timeout. Batches from a stopped controller are dropped unless
// forced.
func (c *ThermostatController) applyOutputs(ctx context.Context, outputs map[uint8]bool, force bool) {
	c.relayMu.Lock()
	defer c.relayMu.Unlock()
	if !force {
		c.mu.Lock()
		stopped := c.stopped
		c.mu.Unlock()
		if stopped {
			return
		}
	}

	channels := make([]uint8, 0, len(outputs))
	for ch := range outputs {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool {
		if outputs[channels[i]] != outputs[channels[j]] {
			return !outputs[channels[i]]
		}
		return channels[i] < channels[j]
	})
	for _, ch := range channels {
		wctx, cancel := context.WithTimeout(ctx, c.cfg.Control.RelayTimeout)
		err := c.relays.SetChannel(wctx, ch, outputs[ch])
		cancel()
		if err != nil {
			c.log.Warnw("relay_write_failed", "channel", ch, "on", outputs[ch], "err", err)
			c.metrics.Error(metrics.ErrRelayWrite)
		}
	}
}

// forceOff stops the control core and drives every relay off.
func (c *ThermostatController) forceOff() {
	outputs := c.stop(c.now())
	c.applyOutputs(context.Background(), outputs, true)
	c.log.Infow("relays_forced_off", "channels", len(outputs))
}

// stop marks the controller stopped and returns the all-off relay batch.
func (c *ThermostatController) stop(now time.Time) map[uint8]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	for _, tr := range c.stages.ForceOff(now) {
		c.log.Infow("stage_change", "stage", tr.StageRef.String(), "active", false, "forced", true)
	}
	c.fan = false
	return c.outputsLocked()
}

// Shutdown waits for the running cycle to finish, forces every relay off, drains
// the persistence and telemetry queues and releases the relay driver. The relay
// driver is closed on every path out of Shutdown.
func (c *ThermostatController) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() { c.shutdownErr = c.shutdown(ctx) })
	return c.shutdownErr
}

func (c *ThermostatController) shutdown(ctx context.Context) (err error) {
	defer func() {
		if cerr := c.relays.Close(); cerr != nil {
			c.log.Errorw("relay_close_failed", "err", cerr)
			if err == nil {
				err = fmt.Errorf("close relays: %w", cerr)
			}
		}
	}()

	if c.running.Load() {
		select {
		case <-c.runDone:
		case <-ctx.Done():
			c.log.Warnw("shutdown_drain_timeout", "err", ctx.Err())
		}
	}
	c.forceOff()

	c.audit(models.EventShutdown, "controller stopped, relays off")

	c.persist.Close()
	c.telemetry.Close()
	if perr := c.pub.Close(); perr != nil {
		c.log.Warnw("publisher_close_failed", "err", perr)
	}
	c.log.Infow("controller_stopped")
	return nil
}

// RecordHistory queues a sensor batch and a plant snapshot for the history tables.
func (c *ThermostatController) RecordHistory() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	latest := c.store.Latest(now)
	recs := make([]models.SensorHistoryRecord, 0, len(latest))
	for _, r := range latest {
		recs = append(recs, models.SensorHistoryRecord{
			SensorID:     r.SensorID,
			SensorName:   r.DisplayName,
			TemperatureF: r.TemperatureF,
			Compromised:  r.Compromised,
			RecordedAt:   now,
		})
	}
	hvac := models.HVACHistoryRecord{
		SystemTempF: c.systemTempLocked(),
		TargetHeatF: c.setpoints.TargetHeatF,
		TargetCoolF: c.setpoints.TargetCoolF,
		Mode:        c.setpoints.Mode,
		FanMode:     c.setpoints.FanMode,
		HeatStages:  c.stages.Active(models.StageHeat),
		CoolStages:  c.stages.Active(models.StageCool),
		Fan:         c.fan,
		RecordedAt:  now,
	}

	if len(recs) > 0 {
		c.persist.Enqueue("append_sensor_history", func(ctx context.Context) error {
			return c.repos.History.AppendSensorReadings(ctx, recs)
		})
	}
	c.persist.Enqueue("append_hvac_history", func(ctx context.Context) error {
		return c.repos.History.AppendHVAC(ctx, hvac)
	})
}

// CleanupHistory queues deletion of history older than the retention period.
func (c *ThermostatController) CleanupHistory() {
	before := c.now().AddDate(0, 0, -c.cfg.Control.HistoryRetentionDays)
	c.persist.Enqueue("cleanup_history", func(ctx context.Context) error {
		n, err := c.repos.History.Cleanup(ctx, before)
		if err != nil {
			return err
		}
		c.log.Infow("history_cleanup", "rows", n, "before", before)
		return nil
	})
}

// Status returns the current snapshot in units; empty units means the
// configured display units.
func (c *ThermostatController) Status(units string) (models.StatusSnapshot, error) {
	if units == "" {
		units = c.cfg.Display.Units
	}
	c.mu.Lock()
	snap := c.snapshotLocked(c.now())
	c.mu.Unlock()
	return snap.Convert(units)
}

func (c *ThermostatController) snapshotLocked(now time.Time) models.StatusSnapshot {
	hold := c.arbiter.Hold()
	return models.StatusSnapshot{
		SystemTempF:     c.systemTempLocked(),
		Units:           models.UnitF,
		Sensors:         c.store.Latest(now),
		HeatStages:      nonNil(c.stages.Active(models.StageHeat)),
		CoolStages:      nonNil(c.stages.Active(models.StageCool)),
		Fan:             c.fan,
		Setpoints:       c.setpoints,
		Hold:            hold,
		ScheduleEnabled: c.arbiter.Enabled() && hold.Kind != models.HoldDisabled,
		SensorFault:     c.sensorFault,
		LastCycleAt:     c.lastCycle,
	}
}

func (c *ThermostatController) systemTempLocked() *float64 {
	if !c.haveTemp {
		return nil
	}
	v := c.systemTemp
	return &v
}

func (c *ThermostatController) publishStatusLocked(snap models.StatusSnapshot) {
	c.telemetry.Enqueue("publish_status", func(context.Context) error {
		return c.pub.PublishStatus(snap)
	})
}

func (c *ThermostatController) observe(snap models.StatusSnapshot, stages []control.StageStatus) {
	if snap.SystemTempF != nil {
		c.metrics.SetSystemTemp(*snap.SystemTempF, true)
	} else {
		c.metrics.SetSystemTemp(math.NaN(), false)
	}
	for _, r := range snap.Sensors {
		c.metrics.SetSensor(r.SensorID, r.TemperatureF, r.Compromised)
	}
	for _, s := range stages {
		c.metrics.SetStage(string(s.Config.Kind), s.Config.Number, s.State.Active)
	}
	c.metrics.SetFan(snap.Fan)
	c.metrics.SetSensorFault(snap.SensorFault)
}

func (c *ThermostatController) saveSettingsLocked(source string) {
	sp := c.setpoints
	c.persist.Enqueue("save_settings", func(ctx context.Context) error {
		return c.repos.Settings.Save(ctx, sp, source)
	})
}

func (c *ThermostatController) audit(typ, desc string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auditLocked(c.now(), typ, "", desc, nil)
}

// auditLocked appends an audit event to the persistence queue and mirrors it to
// telemetry. Queue order follows mu, so the audit trail keeps command order.
func (c *ThermostatController) auditLocked(now time.Time, typ, source, desc string, meta map[string]any) {
	e := models.Event{
		EventID:     uuid.NewString(),
		OccurredAt:  now.UTC(),
		Type:        typ,
		Source:      source,
		Description: desc,
	}
	if meta != nil {
		e.Metadata = meta
	}
	c.persist.Enqueue("append_event", func(ctx context.Context) error {
		return c.repos.Events.Append(ctx, e)
	})
	c.telemetry.Enqueue("publish_event", func(context.Context) error {
		return c.pub.PublishEvent(e)
	})
}

// Flush waits until queued persistence and telemetry work submitted so far has
// completed.
func (c *ThermostatController) Flush(ctx context.Context) error {
	if err := c.persist.Flush(ctx); err != nil {
		return err
	}
	return c.telemetry.Flush(ctx)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func nonNil(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

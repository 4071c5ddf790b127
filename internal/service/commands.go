package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"multizone_thermostat/internal/models"
)

// SetTemperature sets the heat or cool target. Values outside the configured
// setpoint range are rejected with an *OutOfRangeError and change nothing.
func (c *ThermostatController) SetTemperature(ctx context.Context, kind models.StageKind, value float64) (Ack, error) {
	k, ok := models.ParseStageKind(string(kind))
	if !ok {
		return Ack{}, fmt.Errorf("%w: %q", ErrInvalidTempKind, kind)
	}
	lo, hi := c.cfg.Setpoint.MinF, c.cfg.Setpoint.MaxF
	if math.IsNaN(value) || value < lo || value > hi {
		return Ack{}, &OutOfRangeError{Value: value, Min: lo, Max: hi}
	}
	return c.manual(ctx, "set_temperature", fmt.Sprintf("%s target set to %.1f°F", k, value), func(sp *models.Setpoints) {
		if k == models.StageHeat {
			sp.TargetHeatF = value
		} else {
			sp.TargetCoolF = value
		}
	})
}

// SetMode switches between heat, cool, auto and off.
func (c *ThermostatController) SetMode(ctx context.Context, mode string) (Ack, error) {
	m, ok := models.ParseMode(mode)
	if !ok {
		return Ack{}, fmt.Errorf("%w: got %q", ErrInvalidMode, mode)
	}
	return c.manual(ctx, "set_mode", fmt.Sprintf("mode set to %s", m), func(sp *models.Setpoints) {
		sp.Mode = m
	})
}

// SetFan selects a continuously running fan (on) or demand-driven fan (auto).
func (c *ThermostatController) SetFan(ctx context.Context, on bool) (Ack, error) {
	fan := models.FanAuto
	if on {
		fan = models.FanOn
	}
	return c.manual(ctx, "set_fan", fmt.Sprintf("fan set to %s", fan), func(sp *models.Setpoints) {
		sp.FanMode = fan
	})
}

// manual applies a setpoint mutation attributed to the manual source and puts
// schedules on hold.
func (c *ThermostatController) manual(ctx context.Context, command, desc string, mutate func(*models.Setpoints)) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return Ack{}, ErrShuttingDown
	}

	before := c.setpoints
	mutate(&c.setpoints)
	c.setpoints.UpdatedAt = now
	c.saveSettingsLocked(models.SourceManual)
	c.log.Infow("setting_changed", "command", command, "source", models.SourceManual,
		"mode", c.setpoints.Mode, "fan_mode", c.setpoints.FanMode,
		"target_heat_f", c.setpoints.TargetHeatF, "target_cool_f", c.setpoints.TargetCoolF)
	c.auditLocked(now, models.EventSettingChange, models.SourceManual, desc, map[string]any{
		"command": command,
		"before":  before,
		"after":   c.setpoints,
	})

	if c.arbiter.ManualOverride(now) {
		hold := c.arbiter.Hold()
		c.log.Infow("hold_started", "until", hold.Until)
		c.auditLocked(now, models.EventHoldChange, models.SourceManual,
			fmt.Sprintf("schedules on hold until %s", hold.Until.Format("2006-01-02 15:04")),
			map[string]any{"hold": hold})
	}
	c.kickLocked()
	return c.ackLocked(command, now), nil
}

// ResumeSchedules ends a manual hold. Disabled schedules stay disabled.
func (c *ThermostatController) ResumeSchedules(ctx context.Context) (Ack, error) {
	return c.holdCommand(ctx, "resume_schedules", "manual hold cleared", func() bool {
		return c.arbiter.Resume()
	})
}

// EnableSchedules turns schedule application on or off, clearing any hold.
func (c *ThermostatController) EnableSchedules(ctx context.Context, enabled bool) (Ack, error) {
	desc := "schedules disabled"
	if enabled {
		desc = "schedules enabled"
	}
	return c.holdCommand(ctx, "enable_schedules", desc, func() bool {
		return c.arbiter.SetSchedulesEnabled(enabled)
	})
}

func (c *ThermostatController) holdCommand(ctx context.Context, command, desc string, apply func() bool) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return Ack{}, ErrShuttingDown
	}
	if apply() {
		hold := c.arbiter.Hold()
		c.log.Infow("hold_changed", "command", command, "hold", hold.Kind)
		c.auditLocked(now, models.EventHoldChange, models.SourceManual, desc, map[string]any{"hold": hold})
		c.kickLocked()
	}
	return c.ackLocked(command, now), nil
}

// ReloadSensors re-reads the sensor registry.
func (c *ThermostatController) ReloadSensors(ctx context.Context) error {
	sensors, err := c.repos.Sensors.List(ctx)
	if err != nil {
		return fmt.Errorf("reload sensors: %w", err)
	}
	c.mu.Lock()
	c.store.SetRegistry(sensors)
	c.mu.Unlock()
	c.log.Infow("sensors_reloaded", "count", len(sensors))
	return nil
}

// ReloadSchedules re-reads the schedule table.
func (c *ThermostatController) ReloadSchedules(ctx context.Context) error {
	schedules, err := c.repos.Schedules.List(ctx)
	if err != nil {
		return fmt.Errorf("reload schedules: %w", err)
	}
	c.mu.Lock()
	c.arbiter.SetSchedules(schedules)
	c.mu.Unlock()
	c.log.Infow("schedules_reloaded", "count", len(schedules))
	return nil
}

func (c *ThermostatController) ackLocked(command string, now time.Time) Ack {
	return Ack{
		Command:   command,
		Setpoints: c.setpoints,
		Hold:      c.arbiter.Hold(),
		AppliedAt: now,
	}
}

// kickLocked asks the control loop for an early cycle.
func (c *ThermostatController) kickLocked() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

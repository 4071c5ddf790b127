package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"multizone_thermostat/internal/logger"
	"multizone_thermostat/internal/models"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (THERMOSTAT_DB_PATH).
const EnvPrefix = "THERMOSTAT"

// Hardware driver names.
const (
	DriverGPIO = "gpio"
	DriverSim  = "sim"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Log      LogConfig            `mapstructure:"log"`
	HTTP     HTTPConfig           `mapstructure:"http"`
	DB       DBConfig             `mapstructure:"db"`
	Auth     AuthConfig           `mapstructure:"auth"`
	Control  ControlConfig        `mapstructure:"control"`
	Anomaly  AnomalyConfig        `mapstructure:"anomaly"`
	Safety   SafetyConfig         `mapstructure:"safety"`
	Setpoint SetpointConfig       `mapstructure:"setpoint"`
	Schedule ScheduleConfig       `mapstructure:"schedule"`
	Hardware HardwareConfig       `mapstructure:"hardware"`
	Stages   []models.StageConfig `mapstructure:"stages"`
	MQTT     MQTTConfig           `mapstructure:"mqtt"`
	Display  DisplayConfig        `mapstructure:"display"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// ControlConfig holds the cadences of the control loop.
type ControlConfig struct {
	IngestInterval       time.Duration `mapstructure:"ingest_interval"`
	ControlInterval      time.Duration `mapstructure:"control_interval"`
	SensorTimeout        time.Duration `mapstructure:"sensor_timeout"`
	RelayTimeout         time.Duration `mapstructure:"relay_timeout"`
	PersistTimeout       time.Duration `mapstructure:"persist_timeout"`
	HistoryInterval      time.Duration `mapstructure:"history_interval"`
	HistoryRetentionDays int           `mapstructure:"history_retention_days"`
	CleanupInterval      time.Duration `mapstructure:"cleanup_interval"`
}

// AnomalyConfig tunes compromised-sensor detection.
type AnomalyConfig struct {
	RateThresholdF      float64       `mapstructure:"rate_threshold_f"`
	RateWindow          time.Duration `mapstructure:"rate_window"`
	DeviationThresholdF float64       `mapstructure:"deviation_threshold_f"`
	IgnoreDuration      time.Duration `mapstructure:"ignore_duration"`
	Retention           time.Duration `mapstructure:"retention"`
}

// SafetyConfig bounds the plausible system temperature.
type SafetyConfig struct {
	MinTempF float64 `mapstructure:"min_temp_f"`
	MaxTempF float64 `mapstructure:"max_temp_f"`
}

// SetpointConfig bounds manual requests and seeds the first boot.
type SetpointConfig struct {
	MinF         float64 `mapstructure:"min_f"`
	MaxF         float64 `mapstructure:"max_f"`
	DefaultHeatF float64 `mapstructure:"default_heat_f"`
	DefaultCoolF float64 `mapstructure:"default_cool_f"`
	DefaultMode  string  `mapstructure:"default_mode"`
	DefaultFan   string  `mapstructure:"default_fan"`
}

type ScheduleConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	HoldDuration  time.Duration `mapstructure:"hold_duration"`
	CatchUpWindow time.Duration `mapstructure:"catch_up_window"`
}

type HardwareConfig struct {
	Driver     string `mapstructure:"driver"`
	Chip       string `mapstructure:"chip"`
	FanChannel uint8  `mapstructure:"fan_channel"`
	ActiveLow  bool   `mapstructure:"active_low"`
	W1Path     string `mapstructure:"w1_path"`
	// Simulator knobs, used only with driver=sim.
	SimSensors      []string `mapstructure:"sim_sensors"`
	SimFireplaceID  string   `mapstructure:"sim_fireplace_id"`
	SimOutdoorTempF float64  `mapstructure:"sim_outdoor_temp_f"`
}

type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type DisplayConfig struct {
	Units string `mapstructure:"units"`
}

// Load reads the config file (configs/config.yml when path is empty), applies
// THERMOSTAT_* environment overrides and validates the result. A missing config
// file in the search path is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field invariants once at load time so the control core
// never sees an inconsistent configuration.
func (c *Config) Validate() error {
	if !logger.ValidLevel(c.Log.Level) {
		return invalid("log.level %q is not one of debug|info|warn|error", c.Log.Level)
	}
	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		return invalid("auth.signing_key is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return invalid("auth.token_ttl must be positive")
	}

	ctl := c.Control
	for name, d := range map[string]time.Duration{
		"control.ingest_interval":  ctl.IngestInterval,
		"control.control_interval": ctl.ControlInterval,
		"control.sensor_timeout":   ctl.SensorTimeout,
		"control.relay_timeout":    ctl.RelayTimeout,
		"control.persist_timeout":  ctl.PersistTimeout,
		"control.history_interval": ctl.HistoryInterval,
		"control.cleanup_interval": ctl.CleanupInterval,
		"anomaly.rate_window":      c.Anomaly.RateWindow,
		"anomaly.ignore_duration":  c.Anomaly.IgnoreDuration,
		"anomaly.retention":        c.Anomaly.Retention,
		"schedule.hold_duration":   c.Schedule.HoldDuration,
	} {
		if d <= 0 {
			return invalid("%s must be positive, got %s", name, d)
		}
	}
	if ctl.ControlInterval < ctl.IngestInterval {
		return invalid("control.control_interval (%s) must not be shorter than control.ingest_interval (%s)",
			ctl.ControlInterval, ctl.IngestInterval)
	}
	if ctl.SensorTimeout >= ctl.IngestInterval {
		return invalid("control.sensor_timeout (%s) must be shorter than control.ingest_interval (%s)",
			ctl.SensorTimeout, ctl.IngestInterval)
	}
	if ctl.HistoryRetentionDays < 1 {
		return invalid("control.history_retention_days must be >= 1")
	}
	if c.Schedule.CatchUpWindow < 0 {
		return invalid("schedule.catch_up_window must not be negative")
	}

	if c.Anomaly.RateThresholdF <= 0 || c.Anomaly.DeviationThresholdF <= 0 {
		return invalid("anomaly thresholds must be positive")
	}
	if c.Anomaly.Retention < c.Anomaly.RateWindow {
		return invalid("anomaly.retention must cover anomaly.rate_window")
	}

	if c.Safety.MinTempF >= c.Safety.MaxTempF {
		return invalid("safety.min_temp_f must be below safety.max_temp_f")
	}
	sp := c.Setpoint
	if sp.MinF >= sp.MaxF {
		return invalid("setpoint.min_f must be below setpoint.max_f")
	}
	for name, v := range map[string]float64{
		"setpoint.default_heat_f": sp.DefaultHeatF,
		"setpoint.default_cool_f": sp.DefaultCoolF,
	} {
		if v < sp.MinF || v > sp.MaxF {
			return invalid("%s %.1f outside [%.1f, %.1f]", name, v, sp.MinF, sp.MaxF)
		}
	}
	if _, ok := models.ParseMode(sp.DefaultMode); !ok {
		return invalid("setpoint.default_mode %q is not one of heat|cool|auto|off", sp.DefaultMode)
	}
	if _, ok := models.ParseFanMode(sp.DefaultFan); !ok {
		return invalid("setpoint.default_fan %q is not one of auto|on", sp.DefaultFan)
	}

	switch c.Hardware.Driver {
	case DriverGPIO, DriverSim:
	default:
		return invalid("hardware.driver %q is not one of gpio|sim", c.Hardware.Driver)
	}
	for _, s := range c.Stages {
		if s.RelayChannel == c.Hardware.FanChannel {
			return invalid("relay channel %d is shared by the fan and %s stage %d",
				s.RelayChannel, s.Kind, s.Number)
		}
	}
	if err := models.ValidateStageConfigs(c.Stages); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if _, ok := models.NormalizeUnit(c.Display.Units); !ok {
		return invalid("display.units %q is not one of F|C|K", c.Display.Units)
	}
	return nil
}

// DefaultSetpoints builds the first-boot setpoints.
func (c *Config) DefaultSetpoints() models.Setpoints {
	mode, _ := models.ParseMode(c.Setpoint.DefaultMode)
	fan, _ := models.ParseFanMode(c.Setpoint.DefaultFan)
	return models.Setpoints{
		TargetHeatF: c.Setpoint.DefaultHeatF,
		TargetCoolF: c.Setpoint.DefaultCoolF,
		Mode:        mode,
		FanMode:     fan,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

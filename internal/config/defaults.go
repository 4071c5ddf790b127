package config

import "github.com/spf13/viper"

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("http.port", "8080")
	v.SetDefault("db.path", "thermostat.db")
	v.SetDefault("auth.signing_key", "change-me")
	v.SetDefault("auth.token_ttl", "1h")

	v.SetDefault("control.ingest_interval", "30s")
	v.SetDefault("control.control_interval", "60s")
	v.SetDefault("control.sensor_timeout", "10s")
	v.SetDefault("control.relay_timeout", "2s")
	v.SetDefault("control.persist_timeout", "5s")
	v.SetDefault("control.history_interval", "5m")
	v.SetDefault("control.history_retention_days", 1825)
	v.SetDefault("control.cleanup_interval", "24h")

	v.SetDefault("anomaly.rate_threshold_f", 3.0)
	v.SetDefault("anomaly.rate_window", "5m")
	v.SetDefault("anomaly.deviation_threshold_f", 5.0)
	v.SetDefault("anomaly.ignore_duration", "1h")
	v.SetDefault("anomaly.retention", "30m")

	v.SetDefault("safety.min_temp_f", 32.0)
	v.SetDefault("safety.max_temp_f", 100.0)

	v.SetDefault("setpoint.min_f", 50.0)
	v.SetDefault("setpoint.max_f", 90.0)
	v.SetDefault("setpoint.default_heat_f", 68.0)
	v.SetDefault("setpoint.default_cool_f", 74.0)
	v.SetDefault("setpoint.default_mode", "heat")
	v.SetDefault("setpoint.default_fan", "auto")

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.hold_duration", "2h")
	v.SetDefault("schedule.catch_up_window", "2m")

	v.SetDefault("hardware.driver", DriverSim)
	v.SetDefault("hardware.chip", "gpiochip0")
	v.SetDefault("hardware.fan_channel", 22)
	v.SetDefault("hardware.active_low", false)
	v.SetDefault("hardware.w1_path", "/sys/bus/w1/devices")
	v.SetDefault("hardware.sim_sensors", []string{"28-00000a1b2c01", "28-00000a1b2c02", "28-00000a1b2c03"})
	v.SetDefault("hardware.sim_fireplace_id", "")
	v.SetDefault("hardware.sim_outdoor_temp_f", 40.0)

	v.SetDefault("stages", []map[string]any{
		{"kind": "heat", "stage_number": 1, "relay_channel": 17, "temp_offset_f": 0.5, "min_run_time": "5m", "min_rest_time": "5m", "enabled": true},
		{"kind": "heat", "stage_number": 2, "relay_channel": 23, "temp_offset_f": 3.0, "min_run_time": "5m", "min_rest_time": "5m", "enabled": true},
		{"kind": "cool", "stage_number": 1, "relay_channel": 27, "temp_offset_f": 0.5, "min_run_time": "5m", "min_rest_time": "5m", "enabled": true},
	})

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "thermostat")
	v.SetDefault("mqtt.topic_prefix", "thermostat")

	v.SetDefault("display.units", "F")
}

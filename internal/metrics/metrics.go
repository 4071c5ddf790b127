// Package metrics exposes control loop state to Prometheus.
package metrics

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "thermostat"

// Error kinds counted by Error.
const (
	ErrSensorPoll  = "sensor_poll"
	ErrRelayWrite  = "relay_write"
	ErrPersistence = "persistence"
	ErrTelemetry   = "telemetry"
	ErrInterlock   = "interlock"
)

type Metric struct {
	gatherer prometheus.Gatherer

	systemTemp   prometheus.Gauge
	sensorFault  prometheus.Gauge
	sensorTemp   *prometheus.GaugeVec
	compromised  *prometheus.GaugeVec
	stageActive  *prometheus.GaugeVec
	fanActive    prometheus.Gauge
	cycleTiming  *prometheus.SummaryVec
	errorCounter *prometheus.CounterVec
}

// New registers the collectors with reg; nil means a fresh private registry.
func New(reg *prometheus.Registry) *Metric {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metric{
		gatherer: reg,
		systemTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "system_temperature_fahrenheit",
			Help:      "Aggregated system temperature (NaN when unavailable).",
		}),
		sensorFault: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_fault",
			Help:      "1 while the safety interlock reports a sensor fault.",
		}),
		sensorTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_temperature_fahrenheit",
			Help:      "Latest reading per sensor.",
		}, []string{"sensor_id"}),
		compromised: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_compromised",
			Help:      "1 while a sensor is excluded by anomaly detection.",
		}, []string{"sensor_id"}),
		stageActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_active",
			Help:      "1 while a heat or cool stage is energised.",
		}, []string{"kind", "stage"}),
		fanActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fan_active",
			Help:      "1 while the fan relay is energised.",
		}),
		cycleTiming: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of ingest and control cycles.",
		}, []string{"cycle"}),
		errorCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Recoverable errors by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.systemTemp, m.sensorFault, m.sensorTemp, m.compromised,
		m.stageActive, m.fanActive, m.cycleTiming, m.errorCounter,
	)
	return m
}

// SetSystemTemp records the aggregate; ok=false exports NaN.
func (m *Metric) SetSystemTemp(v float64, ok bool) {
	if !ok {
		m.systemTemp.Set(math.NaN())
		return
	}
	m.systemTemp.Set(v)
}

func (m *Metric) SetSensor(id string, temp float64, compromised bool) {
	m.sensorTemp.WithLabelValues(id).Set(temp)
	m.compromised.WithLabelValues(id).Set(boolToFloat(compromised))
}

func (m *Metric) SetStage(kind string, stage int, active bool) {
	m.stageActive.WithLabelValues(kind, strconv.Itoa(stage)).Set(boolToFloat(active))
}

func (m *Metric) SetFan(on bool)         { m.fanActive.Set(boolToFloat(on)) }
func (m *Metric) SetSensorFault(on bool) { m.sensorFault.Set(boolToFloat(on)) }

func (m *Metric) Error(kind string) {
	m.errorCounter.WithLabelValues(kind).Inc()
}

// Timing observes the time elapsed since start for a cycle label.
func (m *Metric) Timing(start time.Time, cycle string) {
	m.cycleTiming.WithLabelValues(cycle).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metric) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

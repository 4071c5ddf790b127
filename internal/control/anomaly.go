package control

import (
	"fmt"
	"math"
	"strings"
	"time"

	"multizone_thermostat/internal/models"
)

// AnomalyConfig tunes compromised-sensor detection.
type AnomalyConfig struct {
	RateThresholdF      float64
	RateWindow          time.Duration
	DeviationThresholdF float64
	IgnoreDuration      time.Duration
}

// Anomaly tests.
const (
	TestRate      = "rate"
	TestDeviation = "deviation"
)

// Flag records a sensor newly marked compromised.
type Flag struct {
	SensorID string
	Tests    []string
	Reason   string
	Until    time.Time
}

// AnomalyResult is the outcome of one evaluation.
type AnomalyResult struct {
	Flagged []Flag
	Cleared []string
	// DeviationSkipped is set when no sensor was eligible for the mean.
	DeviationSkipped bool
}

// AnomalyDetector flags sensors that change too fast or read too far above the
// mean of the healthy sensors, the signature of a nearby transient heat source.
type AnomalyDetector struct {
	cfg AnomalyConfig
}

func NewAnomalyDetector(cfg AnomalyConfig) *AnomalyDetector {
	return &AnomalyDetector{cfg: cfg}
}

// Evaluate expires stale holds, then runs the rate and deviation tests over the
// store and marks every sensor that fails either one. Faulted sensors take no
// part in either test.
func (d *AnomalyDetector) Evaluate(store *SensorStore, now time.Time) AnomalyResult {
	res := AnomalyResult{Cleared: store.clearExpired(now)}

	latest := store.Latest(now)

	var sum float64
	var n int
	for _, r := range latest {
		if r.Eligible() {
			sum += r.TemperatureF
			n++
		}
	}
	mean := 0.0
	if n == 0 {
		res.DeviationSkipped = true
	} else {
		mean = sum / float64(n)
	}

	for _, r := range latest {
		if r.Faulted {
			continue
		}
		var tests, reasons []string

		if change, ok := d.rateOfChange(store.history[r.SensorID], now); ok && math.Abs(change) > d.cfg.RateThresholdF {
			tests = append(tests, TestRate)
			reasons = append(reasons, fmt.Sprintf("rapid change %.1fF in %s", change, d.cfg.RateWindow))
		}
		if n > 0 {
			if dev := r.TemperatureF - mean; dev > d.cfg.DeviationThresholdF {
				tests = append(tests, TestDeviation)
				reasons = append(reasons, fmt.Sprintf("%.1fF above mean %.1fF", dev, mean))
			}
		}
		if len(tests) == 0 {
			continue
		}

		until := now.Add(d.cfg.IgnoreDuration)
		if !store.markCompromised(r.SensorID, until, now) {
			continue
		}
		res.Flagged = append(res.Flagged, Flag{
			SensorID: r.SensorID,
			Tests:    tests,
			Reason:   strings.Join(reasons, "; "),
			Until:    until,
		})
	}
	return res
}

// rateOfChange compares the newest sample with the newest sample taken at least
// RateWindow before now. ok is false without such a reference sample.
func (d *AnomalyDetector) rateOfChange(hist []models.SensorReading, now time.Time) (float64, bool) {
	if len(hist) < 2 {
		return 0, false
	}
	latest := hist[len(hist)-1]
	ref := now.Add(-d.cfg.RateWindow)
	for i := len(hist) - 2; i >= 0; i-- {
		if !hist[i].Timestamp.After(ref) {
			return latest.TemperatureF - hist[i].TemperatureF, true
		}
	}
	return 0, false
}

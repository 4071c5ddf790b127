// Package control holds the deterministic core of the thermostat: sensor history,
// anomaly detection, aggregation, staged plant control, the safety interlock and
// schedule arbitration. Nothing here does I/O or reads the wall clock; callers pass
// the current time in, which keeps every decision reproducible in tests.
package control

import (
	"math"
	"sort"
	"time"

	"multizone_thermostat/internal/models"
)

// SensorStore keeps a rolling per-sensor history bounded by a retention window,
// the sensor registry, the compromised holds and the sensors whose newest reading
// was implausible.
type SensorStore struct {
	retention        time.Duration
	minF, maxF       float64
	history          map[string][]models.SensorReading
	registry         map[string]models.SensorConfig
	compromisedUntil map[string]time.Time
	faultedAt        map[string]time.Time
}

func NewSensorStore(retention time.Duration) *SensorStore {
	return &SensorStore{
		retention:        retention,
		minF:             math.Inf(-1),
		maxF:             math.Inf(1),
		history:          make(map[string][]models.SensorReading),
		registry:         make(map[string]models.SensorConfig),
		compromisedUntil: make(map[string]time.Time),
		faultedAt:        make(map[string]time.Time),
	}
}

// SetBounds sets the plausibility range for incoming readings. Unbounded by default.
func (s *SensorStore) SetBounds(minF, maxF float64) { s.minF, s.maxF = minF, maxF }

// SetRegistry replaces the sensor registry. Unknown sensors are treated as enabled
// until registered.
func (s *SensorStore) SetRegistry(cfgs []models.SensorConfig) {
	s.registry = make(map[string]models.SensorConfig, len(cfgs))
	for _, c := range cfgs {
		s.registry[c.SensorID] = c
	}
}

// Register adds or replaces a single registry entry.
func (s *SensorStore) Register(cfg models.SensorConfig) { s.registry[cfg.SensorID] = cfg }

// Known reports whether the sensor is present in the registry.
func (s *SensorStore) Known(sensorID string) bool {
	_, ok := s.registry[sensorID]
	return ok
}

func (s *SensorStore) config(sensorID string) models.SensorConfig {
	if c, ok := s.registry[sensorID]; ok {
		return c
	}
	return models.SensorConfig{SensorID: sensorID, Name: models.DefaultSensorName(sensorID), Enabled: true}
}

// Ingest appends a reading and prunes samples older than the retention window.
// A reading outside the plausibility bounds is not stored; the sensor is marked
// faulted until its next plausible reading and Ingest returns false.
func (s *SensorStore) Ingest(r models.RawReading, now time.Time) bool {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = now
	}
	if math.IsNaN(r.TemperatureF) || r.TemperatureF < s.minF || r.TemperatureF > s.maxF {
		s.faultedAt[r.SensorID] = ts
		s.Prune(now)
		return false
	}
	delete(s.faultedAt, r.SensorID)
	cfg := s.config(r.SensorID)
	s.history[r.SensorID] = append(s.history[r.SensorID], models.SensorReading{
		SensorID:     r.SensorID,
		DisplayName:  cfg.Name,
		TemperatureF: r.TemperatureF,
		Timestamp:    ts,
		Enabled:      cfg.Enabled,
	})
	s.Prune(now)
	return true
}

// IsFaulted reports whether the sensor's newest reading was implausible.
func (s *SensorStore) IsFaulted(sensorID string) bool {
	_, ok := s.faultedAt[sensorID]
	return ok
}

// Faulted returns the enabled sensors whose newest reading was implausible, sorted.
func (s *SensorStore) Faulted() []string {
	var ids []string
	for id := range s.faultedAt {
		if s.config(id).Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Prune drops samples older than now minus retention and forgets sensors with no
// samples left. Fault marks expire on the same window.
func (s *SensorStore) Prune(now time.Time) {
	cutoff := now.Add(-s.retention)
	for id, at := range s.faultedAt {
		if at.Before(cutoff) {
			delete(s.faultedAt, id)
		}
	}
	for id, hist := range s.history {
		i := 0
		for i < len(hist) && hist[i].Timestamp.Before(cutoff) {
			i++
		}
		if i == len(hist) {
			delete(s.history, id)
			continue
		}
		if i > 0 {
			s.history[id] = append([]models.SensorReading(nil), hist[i:]...)
		}
	}
}

// History returns a copy of the sensor's samples, oldest first.
func (s *SensorStore) History(sensorID string) []models.SensorReading {
	return append([]models.SensorReading(nil), s.history[sensorID]...)
}

// SensorIDs returns the ids with at least one retained sample, sorted.
func (s *SensorStore) SensorIDs() []string {
	ids := make([]string, 0, len(s.history))
	for id := range s.history {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Latest returns the most recent sample of every sensor, decorated with the current
// registry and compromised state as of now.
func (s *SensorStore) Latest(now time.Time) []models.SensorReading {
	out := make([]models.SensorReading, 0, len(s.history))
	for _, id := range s.SensorIDs() {
		hist := s.history[id]
		r := hist[len(hist)-1]
		cfg := s.config(id)
		r.DisplayName = cfg.Name
		r.Enabled = cfg.Enabled
		r.Faulted = s.IsFaulted(id)
		if until, ok := s.compromisedUntil[id]; ok && now.Before(until) {
			u := until
			r.Compromised = true
			r.CompromisedUntil = &u
		}
		out = append(out, r)
	}
	return out
}

// IsCompromised reports whether a live hold exists for the sensor.
func (s *SensorStore) IsCompromised(sensorID string, now time.Time) bool {
	until, ok := s.compromisedUntil[sensorID]
	return ok && now.Before(until)
}

// CompromisedUntil returns the live hold expiry, if any.
func (s *SensorStore) CompromisedUntil(sensorID string, now time.Time) (time.Time, bool) {
	until, ok := s.compromisedUntil[sensorID]
	if !ok || !now.Before(until) {
		return time.Time{}, false
	}
	return until, true
}

// markCompromised sets a hold unless one is already live. An existing hold is
// never shortened or extended.
func (s *SensorStore) markCompromised(sensorID string, until, now time.Time) bool {
	if s.IsCompromised(sensorID, now) {
		return false
	}
	s.compromisedUntil[sensorID] = until
	return true
}

// clearExpired removes holds with now >= until and returns the cleared ids, sorted.
func (s *SensorStore) clearExpired(now time.Time) []string {
	var cleared []string
	for id, until := range s.compromisedUntil {
		if !now.Before(until) {
			delete(s.compromisedUntil, id)
			cleared = append(cleared, id)
		}
	}
	sort.Strings(cleared)
	return cleared
}

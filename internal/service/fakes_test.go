package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"multizone_thermostat/internal/config"
	"multizone_thermostat/internal/gpio"
	"multizone_thermostat/internal/logger"
	"multizone_thermostat/internal/metrics"
	"multizone_thermostat/internal/models"
	"multizone_thermostat/internal/mqtt"
	"multizone_thermostat/internal/repository"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// --- clock ---

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// --- sensor driver ---

type fakeSensors struct {
	mu       sync.Mutex
	readings []models.RawReading
	err      error
	polls    int
}

func (f *fakeSensors) PollAll(ctx context.Context) ([]models.RawReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return append([]models.RawReading(nil), f.readings...), f.err
}

func (f *fakeSensors) set(temps map[string]float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = f.readings[:0]
	for id, v := range temps {
		f.readings = append(f.readings, models.RawReading{SensorID: id, TemperatureF: v})
	}
	sort.Slice(f.readings, func(i, j int) bool { return f.readings[i].SensorID < f.readings[j].SensorID })
}

// --- repositories ---

type memSettings struct {
	mu      sync.Mutex
	sp      models.Setpoints
	found   bool
	loadErr error
	saveErr error
	saves   []models.SettingChange
}

func (m *memSettings) Load(context.Context) (models.Setpoints, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sp, m.found, m.loadErr
}

func (m *memSettings) Save(_ context.Context, sp models.Setpoints, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sp, m.found = sp, true
	m.saves = append(m.saves, models.SettingChange{ID: int64(len(m.saves) + 1), Setpoints: sp, Source: source, OccurredAt: sp.UpdatedAt})
	return nil
}

func (m *memSettings) History(context.Context, time.Time, time.Time) ([]models.SettingChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SettingChange(nil), m.saves...), nil
}

func (m *memSettings) sources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.saves))
	for _, s := range m.saves {
		out = append(out, s.Source)
	}
	return out
}

type memSchedules struct {
	mu     sync.Mutex
	items  []models.Schedule
	nextID int64
}

func (m *memSchedules) List(context.Context) ([]models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Schedule(nil), m.items...), nil
}

func (m *memSchedules) Get(_ context.Context, id int64) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.items {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, nil
}

func (m *memSchedules) Create(_ context.Context, s models.Schedule) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	m.items = append(m.items, s)
	return s.ID, nil
}

func (m *memSchedules) Update(_ context.Context, s models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == s.ID {
			m.items[i] = s
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memSchedules) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type memStages struct {
	mu     sync.Mutex
	stages []models.StageConfig
	saved  int
}

func (m *memStages) Load(context.Context) ([]models.StageConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.StageConfig(nil), m.stages...), nil
}

func (m *memStages) Save(_ context.Context, stages []models.StageConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append([]models.StageConfig(nil), stages...)
	m.saved++
	return nil
}

type memSensors struct {
	mu    sync.Mutex
	items map[string]models.SensorConfig
}

func (m *memSensors) List(context.Context) ([]models.SensorConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SensorConfig, 0, len(m.items))
	for _, s := range m.items {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SensorID < out[j].SensorID })
	return out, nil
}

func (m *memSensors) Register(_ context.Context, s models.SensorConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[s.SensorID]; !ok {
		m.items[s.SensorID] = s
	}
	return nil
}

func (m *memSensors) Update(_ context.Context, s models.SensorConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[s.SensorID]; !ok {
		return repository.ErrNotFound
	}
	m.items[s.SensorID] = s
	return nil
}

type memEvents struct {
	mu     sync.Mutex
	events []models.Event
}

func (m *memEvents) Append(_ context.Context, e models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memEvents) List(_ context.Context, _, _ time.Time, typ string) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, e := range m.events {
		if typ == "" || e.Type == typ {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEvents) count(typ string) int {
	evs, _ := m.List(context.Background(), time.Time{}, time.Time{}, typ)
	return len(evs)
}

type memHistory struct {
	mu      sync.Mutex
	sensors []models.SensorHistoryRecord
	hvac    []models.HVACHistoryRecord
	cleanup []time.Time
}

func (m *memHistory) AppendSensorReadings(_ context.Context, recs []models.SensorHistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sensors = append(m.sensors, recs...)
	return nil
}

func (m *memHistory) AppendHVAC(_ context.Context, rec models.HVACHistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hvac = append(m.hvac, rec)
	return nil
}

func (m *memHistory) ListSensor(_ context.Context, id string, _, _ time.Time) ([]models.SensorHistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SensorHistoryRecord
	for _, r := range m.sensors {
		if r.SensorID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memHistory) ListHVAC(context.Context, time.Time, time.Time) ([]models.HVACHistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.HVACHistoryRecord(nil), m.hvac...), nil
}

func (m *memHistory) Cleanup(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanup = append(m.cleanup, before)
	return 0, nil
}

// --- harness ---

var t0 = time.Date(2025, time.January, 15, 6, 0, 0, 0, time.UTC) // Wednesday

const (
	chHeat1 uint8 = 17
	chHeat2 uint8 = 23
	chCool1 uint8 = 27
	chFan   uint8 = 22
)

func testConfig() *config.Config {
	return &config.Config{
		Log:  config.LogConfig{Level: "info"},
		Auth: config.AuthConfig{SigningKey: "k", TokenTTL: time.Hour},
		Control: config.ControlConfig{
			IngestInterval:       30 * time.Second,
			ControlInterval:      60 * time.Second,
			SensorTimeout:        time.Second,
			RelayTimeout:         time.Second,
			PersistTimeout:       time.Second,
			HistoryInterval:      5 * time.Minute,
			HistoryRetentionDays: 30,
			CleanupInterval:      24 * time.Hour,
		},
		Anomaly: config.AnomalyConfig{
			RateThresholdF:      3,
			RateWindow:          5 * time.Minute,
			DeviationThresholdF: 5,
			IgnoreDuration:      time.Hour,
			Retention:           30 * time.Minute,
		},
		Safety: config.SafetyConfig{MinTempF: 32, MaxTempF: 100},
		Setpoint: config.SetpointConfig{
			MinF: 50, MaxF: 90, DefaultHeatF: 68, DefaultCoolF: 74,
			DefaultMode: "heat", DefaultFan: "auto",
		},
		Schedule: config.ScheduleConfig{Enabled: true, HoldDuration: 2 * time.Hour, CatchUpWindow: 2 * time.Minute},
		Hardware: config.HardwareConfig{Driver: config.DriverSim, FanChannel: chFan},
		Stages: []models.StageConfig{
			{Kind: models.StageHeat, Number: 1, RelayChannel: chHeat1, TempOffsetF: 0.5, Enabled: true},
			{Kind: models.StageHeat, Number: 2, RelayChannel: chHeat2, TempOffsetF: 3.0, MinRestTime: 300 * time.Second, Enabled: true},
			{Kind: models.StageCool, Number: 1, RelayChannel: chCool1, TempOffsetF: 0.5, Enabled: true},
		},
		Display: config.DisplayConfig{Units: models.UnitF},
	}
}

type harness struct {
	t         *testing.T
	cfg       *config.Config
	clock     *fakeClock
	settings  *memSettings
	schedules *memSchedules
	stages    *memStages
	sensors   *memSensors
	events    *memEvents
	history   *memHistory
	repos     *repository.Repository
	driver    *fakeSensors
	relays    *gpio.FakeWriter
	pub       *mqtt.FakePublisher
	core      zapcore.Core
	logs      *observer.ObservedLogs
	ctl       *ThermostatController
}

type harnessOption func(*harness)

func withConfig(fn func(*config.Config)) harnessOption {
	return func(h *harness) { fn(h.cfg) }
}

func withSettings(sp models.Setpoints) harnessOption {
	return func(h *harness) { h.settings.sp, h.settings.found = sp, true }
}

func withSchedules(s ...models.Schedule) harnessOption {
	return func(h *harness) {
		for _, sc := range s {
			_, _ = h.schedules.Create(context.Background(), sc)
		}
	}
}

func withLogCore(wrap func(zapcore.Core) zapcore.Core) harnessOption {
	return func(h *harness) { h.core = wrap(h.core) }
}

// panicCore panics once on the armed message, standing in for any collaborator
// that blows up mid-cycle.
type panicCore struct {
	zapcore.Core
	msg   string
	armed *atomic.Bool
}

func (c panicCore) With(fields []zapcore.Field) zapcore.Core {
	return panicCore{Core: c.Core.With(fields), msg: c.msg, armed: c.armed}
}

func (c panicCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Message == c.msg && c.armed.CompareAndSwap(true, false) {
		panic("log sink failed on " + c.msg)
	}
	return c.Core.Check(ent, ce)
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{
		t:         t,
		cfg:       testConfig(),
		clock:     newFakeClock(t0),
		settings:  &memSettings{},
		schedules: &memSchedules{},
		stages:    &memStages{},
		sensors:   &memSensors{items: map[string]models.SensorConfig{}},
		events:    &memEvents{},
		history:   &memHistory{},
		driver:    &fakeSensors{},
		relays:    gpio.NewFakeWriter(),
		pub:       mqtt.NewFakePublisher(),
		core:      core,
		logs:      logs,
	}
	for _, o := range opts {
		o(h)
	}
	h.repos = &repository.Repository{
		Settings:  h.settings,
		Schedules: h.schedules,
		Stages:    h.stages,
		Sensors:   h.sensors,
		Events:    h.events,
		History:   h.history,
	}
	h.ctl = h.start()
	return h
}

// start builds a controller over the harness collaborators. It is shut down
// when the test ends.
func (h *harness) start() *ThermostatController {
	h.t.Helper()
	ctl, err := NewThermostatController(context.Background(), ControllerDeps{
		Config:    h.cfg,
		Repos:     h.repos,
		Sensors:   h.driver,
		Relays:    h.relays,
		Publisher: h.pub,
		Metrics:   metrics.New(nil),
		Log:       logger.New(h.core),
		Now:       h.clock.Now,
	})
	if err != nil {
		h.t.Fatalf("NewThermostatController: %v", err)
	}
	h.t.Cleanup(func() { _ = ctl.Shutdown(context.Background()) })
	return ctl
}

// cycle ingests the given temperatures and runs one control decision.
func (h *harness) cycle(temps map[string]float64) models.StatusSnapshot {
	h.t.Helper()
	ctx := context.Background()
	if temps != nil {
		h.driver.set(temps)
	}
	h.ctl.IngestOnce(ctx)
	h.ctl.ControlOnce(ctx)
	h.flush()
	st, err := h.ctl.Status("")
	if err != nil {
		h.t.Fatalf("Status: %v", err)
	}
	return st
}

func (h *harness) flush() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.ctl.Flush(ctx); err != nil {
		h.t.Fatalf("Flush: %v", err)
	}
}

func uniform(v float64) map[string]float64 {
	return map[string]float64{"28-0000000000a1": v, "28-0000000000a2": v, "28-0000000000a3": v}
}

func f64(v float64) *float64 { return &v }

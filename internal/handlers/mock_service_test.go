package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"multizone_thermostat/internal/models"
	"multizone_thermostat/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockThermostat struct {
	ack   service.Ack
	err   error
	calls []string

	lastKind    models.StageKind
	lastValue   float64
	lastMode    string
	lastFan     bool
	lastEnabled bool
}

func (m *mockThermostat) SetTemperature(_ context.Context, kind models.StageKind, value float64) (service.Ack, error) {
	m.calls = append(m.calls, "set_temperature")
	m.lastKind, m.lastValue = kind, value
	return m.ack, m.err
}
func (m *mockThermostat) SetMode(_ context.Context, mode string) (service.Ack, error) {
	m.calls = append(m.calls, "set_mode")
	m.lastMode = mode
	return m.ack, m.err
}
func (m *mockThermostat) SetFan(_ context.Context, on bool) (service.Ack, error) {
	m.calls = append(m.calls, "set_fan")
	m.lastFan = on
	return m.ack, m.err
}
func (m *mockThermostat) ResumeSchedules(context.Context) (service.Ack, error) {
	m.calls = append(m.calls, "resume_schedules")
	return m.ack, m.err
}
func (m *mockThermostat) EnableSchedules(_ context.Context, enabled bool) (service.Ack, error) {
	m.calls = append(m.calls, "enable_schedules")
	m.lastEnabled = enabled
	return m.ack, m.err
}
func (m *mockThermostat) ReloadSensors(context.Context) error   { return m.err }
func (m *mockThermostat) ReloadSchedules(context.Context) error { return m.err }

type mockMonitoring struct {
	status    models.StatusSnapshot
	err       error
	lastUnits string
}

func (m *mockMonitoring) Status(units string) (models.StatusSnapshot, error) {
	m.lastUnits = units
	if m.err != nil {
		return models.StatusSnapshot{}, m.err
	}
	if units == "" {
		return m.status, nil
	}
	return m.status.Convert(units)
}

type mockEventLog struct {
	resp     []models.Event
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.Event, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockHistory struct {
	sensors    []models.SensorHistoryRecord
	hvac       []models.HVACHistoryRecord
	settings   []models.SettingChange
	err        error
	lastSensor string
	lastFilter service.HistoryFilter
}

func (m *mockHistory) SensorHistory(_ context.Context, id string, f service.HistoryFilter) ([]models.SensorHistoryRecord, error) {
	m.lastSensor, m.lastFilter = id, f
	return m.sensors, m.err
}
func (m *mockHistory) HVACHistory(_ context.Context, f service.HistoryFilter) ([]models.HVACHistoryRecord, error) {
	m.lastFilter = f
	return m.hvac, m.err
}
func (m *mockHistory) SettingHistory(_ context.Context, f service.HistoryFilter) ([]models.SettingChange, error) {
	m.lastFilter = f
	return m.settings, m.err
}

type mockSchedules struct {
	list      []models.Schedule
	err       error
	last      models.Schedule
	deletedID int64
}

func (m *mockSchedules) ListSchedules(context.Context) ([]models.Schedule, error) {
	return m.list, m.err
}
func (m *mockSchedules) CreateSchedule(_ context.Context, s models.Schedule) (models.Schedule, error) {
	m.last = s
	s.ID = 1
	return s, m.err
}
func (m *mockSchedules) UpdateSchedule(_ context.Context, s models.Schedule) (models.Schedule, error) {
	m.last = s
	return s, m.err
}
func (m *mockSchedules) DeleteSchedule(_ context.Context, id int64) error {
	m.deletedID = id
	return m.err
}

type mockSensors struct {
	list []models.SensorConfig
	err  error
	last models.SensorConfig
}

func (m *mockSensors) ListSensors(context.Context) ([]models.SensorConfig, error) {
	return m.list, m.err
}
func (m *mockSensors) UpdateSensor(_ context.Context, s models.SensorConfig) error {
	m.last = s
	return m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// authed builds a request carrying a bearer token accepted by mockAuth.
func authed(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}

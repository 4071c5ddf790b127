package service

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"multizone_thermostat/internal/gpio"
	"multizone_thermostat/internal/models"
)

// ----------- Simulation constants -----------
const (
	InitialRoomF        = 66.0 // room temperature at start °F
	LeakPerMin          = 0.02 // fraction of the indoor/outdoor gap lost per minute
	HeatStageFPerMin    = 0.25 // °F per minute per active heat stage
	CoolStageFPerMin    = 0.20 // °F per minute per active cool stage
	SensorSpreadF       = 1.0  // °F between neighbouring simulated sensors
	SensorNoiseF        = 0.1  // peak reading noise °F
	FireplaceChancePerH = 0.5  // probability of a fire starting within an hour
	FireplaceRiseFPerM  = 3.0  // °F per minute the fireplace sensor climbs while lit
	FireplaceMaxF       = 20.0 // ceiling of the fireplace offset °F
	FireplaceDuration   = 45 * time.Minute
)

// PlantSimulator is a thermal model of a house with a staged plant. It serves as
// both sensor driver and relay driver for development without hardware.
type PlantSimulator struct {
	mu sync.Mutex

	sensors     []string
	fireplaceID string
	outdoorF    float64
	heatCh      map[uint8]bool
	coolCh      map[uint8]bool
	relays      map[uint8]bool
	closed      bool

	roomF          float64
	fireOffsetF    float64
	fireplaceUntil time.Time
	last           time.Time
	now            func() time.Time
	rnd            *rand.Rand
}

// SimulatorOptions configure a PlantSimulator.
type SimulatorOptions struct {
	Sensors     []string
	FireplaceID string
	OutdoorF    float64
	Stages      []models.StageConfig
	Seed        int64
	Now         func() time.Time
}

func NewPlantSimulator(opts SimulatorOptions) *PlantSimulator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &PlantSimulator{
		sensors:     append([]string(nil), opts.Sensors...),
		fireplaceID: opts.FireplaceID,
		outdoorF:    opts.OutdoorF,
		heatCh:      map[uint8]bool{},
		coolCh:      map[uint8]bool{},
		relays:      map[uint8]bool{},
		roomF:       InitialRoomF,
		last:        now(),
		now:         now,
		rnd:         rand.New(rand.NewSource(opts.Seed)),
	}
	sort.Strings(s.sensors)
	for _, st := range opts.Stages {
		if st.Kind == models.StageHeat {
			s.heatCh[st.RelayChannel] = true
		} else {
			s.coolCh[st.RelayChannel] = true
		}
	}
	return s
}

// PollAll advances the model to now and reads every simulated sensor.
func (s *PlantSimulator) PollAll(ctx context.Context) ([]models.RawReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.advance(now)

	out := make([]models.RawReading, 0, len(s.sensors))
	for i, id := range s.sensors {
		temp := s.roomF + (float64(i)-float64(len(s.sensors)-1)/2)*SensorSpreadF
		temp += (s.rnd.Float64()*2 - 1) * SensorNoiseF
		if id == s.fireplaceID {
			temp += s.fireOffsetF
		}
		out = append(out, models.RawReading{SensorID: id, TemperatureF: temp, Timestamp: now})
	}
	return out, nil
}

// SetChannel records a relay state; the model reads it on the next advance.
func (s *PlantSimulator) SetChannel(ctx context.Context, channel uint8, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return gpio.ErrClosed
	}
	s.advance(s.now())
	s.relays[channel] = on
	return nil
}

func (s *PlantSimulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for ch := range s.relays {
		s.relays[ch] = false
	}
	return nil
}

// RoomF returns the modelled room temperature.
func (s *PlantSimulator) RoomF() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomF
}

// IgniteFireplace lights the fireplace until now+d.
func (s *PlantSimulator) IgniteFireplace(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fireplaceUntil = s.now().Add(d)
}

// advance integrates the model from the last step to now.
func (s *PlantSimulator) advance(now time.Time) {
	elapsed := now.Sub(s.last).Minutes()
	if elapsed <= 0 {
		return
	}
	s.last = now

	var heat, cool int
	for ch, on := range s.relays {
		switch {
		case on && s.heatCh[ch]:
			heat++
		case on && s.coolCh[ch]:
			cool++
		}
	}
	s.roomF += (s.outdoorF - s.roomF) * LeakPerMin * elapsed
	s.roomF += (float64(heat)*HeatStageFPerMin - float64(cool)*CoolStageFPerMin) * elapsed

	s.advanceFireplace(now, elapsed)
}

func (s *PlantSimulator) advanceFireplace(now time.Time, elapsed float64) {
	if s.fireplaceID == "" {
		return
	}
	if now.After(s.fireplaceUntil) && s.rnd.Float64() < FireplaceChancePerH*elapsed/60 {
		s.fireplaceUntil = now.Add(FireplaceDuration)
	}
	if now.Before(s.fireplaceUntil) {
		s.fireOffsetF = minFloat(s.fireOffsetF+FireplaceRiseFPerM*elapsed, FireplaceMaxF)
		return
	}
	s.fireOffsetF = maxFloat(s.fireOffsetF-FireplaceRiseFPerM*elapsed, 0)
}

// helpers
func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a <= b {
		return a
	}
	return b
}

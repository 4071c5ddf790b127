package models

import "time"

// StatusSnapshot is the read model consumed by the presentation layer.
// Temperatures are expressed in Units; the controller produces Fahrenheit.
type StatusSnapshot struct {
	SystemTempF     *float64        `json:"system_temp_f"`
	Units           string          `json:"units"`
	Sensors         []SensorReading `json:"sensors"`
	HeatStages      []int           `json:"heat_stages"`
	CoolStages      []int           `json:"cool_stages"`
	Fan             bool            `json:"fan"`
	Setpoints       Setpoints       `json:"setpoints"`
	Hold            HoldState       `json:"hold"`
	ScheduleEnabled bool            `json:"schedule_enabled"`
	SensorFault     bool            `json:"sensor_fault"`
	LastCycleAt     time.Time       `json:"last_cycle_at"`
}

// Convert returns a copy of a Fahrenheit snapshot with every temperature in units.
func (s StatusSnapshot) Convert(units string) (StatusSnapshot, error) {
	u, ok := NormalizeUnit(units)
	if !ok {
		_, err := ConvertTemperature(0, UnitF, units)
		return s, err
	}
	out := s
	out.Units = u
	conv := func(v float64) float64 {
		c, _ := ConvertTemperature(v, UnitF, u)
		return c
	}
	if s.SystemTempF != nil {
		v := conv(*s.SystemTempF)
		out.SystemTempF = &v
	}
	out.Sensors = make([]SensorReading, len(s.Sensors))
	for i, r := range s.Sensors {
		r.TemperatureF = conv(r.TemperatureF)
		out.Sensors[i] = r
	}
	out.Setpoints.TargetHeatF = conv(s.Setpoints.TargetHeatF)
	out.Setpoints.TargetCoolF = conv(s.Setpoints.TargetCoolF)
	return out, nil
}

package models

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseMode(t *testing.T) {
	if m, ok := ParseMode(" AUTO "); !ok || m != ModeAuto {
		t.Fatalf("got %q %v", m, ok)
	}
	if _, ok := ParseMode("dry"); ok {
		t.Fatalf("dry is not a mode")
	}
	if !ModeAuto.Heats() || !ModeAuto.Cools() || ModeOff.Heats() || ModeHeat.Cools() {
		t.Fatalf("unexpected mode capabilities")
	}
	if f, ok := ParseFanMode("On"); !ok || f != FanOn {
		t.Fatalf("got %q %v", f, ok)
	}
}

func TestValidateStageConfigs(t *testing.T) {
	base := func() []StageConfig {
		return []StageConfig{
			{Kind: StageHeat, Number: 1, RelayChannel: 17, TempOffsetF: 0.5, Enabled: true},
			{Kind: StageHeat, Number: 2, RelayChannel: 23, TempOffsetF: 3, Enabled: true},
			{Kind: StageCool, Number: 1, RelayChannel: 27, TempOffsetF: 0.5, MinRunTime: time.Minute, Enabled: true},
		}
	}
	if err := ValidateStageConfigs(base()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := map[string]func([]StageConfig){
		"shared channel":     func(s []StageConfig) { s[2].RelayChannel = 17 },
		"duplicate number":   func(s []StageConfig) { s[1].Number = 1 },
		"zero number":        func(s []StageConfig) { s[0].Number = 0 },
		"negative offset":    func(s []StageConfig) { s[0].TempOffsetF = -1 },
		"decreasing offsets": func(s []StageConfig) { s[1].TempOffsetF = 0.1 },
		"unknown kind":       func(s []StageConfig) { s[0].Kind = "fan" },
		"negative rest":      func(s []StageConfig) { s[0].MinRestTime = -time.Second },
	}
	for name, mutate := range tests {
		s := base()
		mutate(s)
		if err := ValidateStageConfigs(s); !errors.Is(err, ErrInvalidStageConfig) {
			t.Fatalf("%s: expected ErrInvalidStageConfig, got %v", name, err)
		}
	}
}

func TestSortStages(t *testing.T) {
	s := []StageConfig{{Kind: StageHeat, Number: 2}, {Kind: StageCool, Number: 1}, {Kind: StageHeat, Number: 1}}
	SortStages(s)
	if s[0].Kind != StageCool || s[1].Number != 1 || s[2].Number != 2 {
		t.Fatalf("unexpected order %+v", s)
	}
}

func TestConvertTemperature(t *testing.T) {
	tests := []struct {
		v        float64
		from, to string
		want     float64
	}{
		{212, "F", "C", 100},
		{0, "C", "F", 32},
		{273.15, "K", "F", 32},
		{68, "f", "k", 293.15},
		{21.5, "C", "C", 21.5},
	}
	for _, tt := range tests {
		got, err := ConvertTemperature(tt.v, tt.from, tt.to)
		if err != nil {
			t.Fatalf("%v %s->%s: %v", tt.v, tt.from, tt.to, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("%v %s->%s = %v, want %v", tt.v, tt.from, tt.to, got, tt.want)
		}
	}
	if _, err := ConvertTemperature(1, "R", "F"); err == nil {
		t.Fatalf("expected unsupported unit error")
	}
	d, err := ConvertDelta(9, UnitF, UnitC)
	if err != nil || math.Abs(d-5) > 1e-9 {
		t.Fatalf("ConvertDelta = %v %v", d, err)
	}
}

func TestStatusSnapshot_Convert(t *testing.T) {
	temp := 212.0
	s := StatusSnapshot{
		SystemTempF: &temp,
		Units:       UnitF,
		Sensors:     []SensorReading{{SensorID: "a", TemperatureF: 32}},
		Setpoints:   Setpoints{TargetHeatF: 50, TargetCoolF: 77},
	}

	c, err := s.Convert("c")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if c.Units != UnitC {
		t.Fatalf("units = %q", c.Units)
	}
	if math.Abs(*c.SystemTempF-100) > 1e-9 || math.Abs(c.Sensors[0].TemperatureF) > 1e-9 {
		t.Fatalf("converted temps = %v / %v", *c.SystemTempF, c.Sensors[0].TemperatureF)
	}
	if math.Abs(c.Setpoints.TargetHeatF-10) > 1e-9 || math.Abs(c.Setpoints.TargetCoolF-25) > 1e-9 {
		t.Fatalf("converted setpoints = %+v", c.Setpoints)
	}
	if *s.SystemTempF != 212 || s.Sensors[0].TemperatureF != 32 {
		t.Fatalf("source snapshot mutated")
	}

	if _, err := s.Convert("R"); err == nil {
		t.Fatalf("expected error for unsupported unit")
	}
}

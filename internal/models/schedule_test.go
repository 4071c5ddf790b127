package models

import (
	"errors"
	"testing"
	"time"
)

func TestParseDays(t *testing.T) {
	tests := []struct {
		in   string
		want DaySet
	}{
		{"Mon,Tue", NewDaySet(time.Monday, time.Tuesday)},
		{"monday, friday", NewDaySet(time.Monday, time.Friday)},
		{"0,6", NewDaySet(time.Monday, time.Sunday)},
		{"5", NewDaySet(time.Saturday)},
		{"Sun,Mon,Tue,Wed,Thu,Fri,Sat", EveryDay},
	}
	for _, tt := range tests {
		got, err := ParseDays(tt.in)
		if err != nil {
			t.Fatalf("ParseDays(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDays(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "7", "Xyz", "Mo"} {
		if _, err := ParseDays(bad); !errors.Is(err, ErrInvalidDays) {
			t.Fatalf("ParseDays(%q) expected ErrInvalidDays, got %v", bad, err)
		}
	}
}

func TestDaySetString(t *testing.T) {
	d := NewDaySet(time.Sunday, time.Monday, time.Wednesday)
	if got := d.String(); got != "Mon,Wed,Sun" {
		t.Fatalf("unexpected %q", got)
	}
	var back DaySet
	if err := back.UnmarshalText([]byte(d.String())); err != nil || back != d {
		t.Fatalf("text round trip failed: %v %v", back, err)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("06:30")
	if err != nil || got != 390 {
		t.Fatalf("got %d %v", got, err)
	}
	for _, bad := range []string{"6:30", "24:00", "06:60", "0630", ""} {
		if _, err := ParseTimeOfDay(bad); !errors.Is(err, ErrInvalidTimeOfDay) {
			t.Fatalf("ParseTimeOfDay(%q) expected error, got %v", bad, err)
		}
	}
}

func TestScheduleValidate(t *testing.T) {
	ok := Schedule{Name: "wake", Days: EveryDay, TimeOfDay: "07:00"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := Mode("turbo")
	cases := map[string]Schedule{
		"no name":  {Days: EveryDay, TimeOfDay: "07:00"},
		"no days":  {Name: "x", TimeOfDay: "07:00"},
		"bad time": {Name: "x", Days: EveryDay, TimeOfDay: "7am"},
		"bad mode": {Name: "x", Days: EveryDay, TimeOfDay: "07:00", Mode: &bad},
	}
	for name, s := range cases {
		if err := s.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

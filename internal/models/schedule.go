package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidDays      = errors.New("invalid days_of_week")
	ErrInvalidTimeOfDay = errors.New("invalid time_of_day: expected HH:MM")
)

// Schedule is a time-of-day program that rewrites setpoints and/or mode.
type Schedule struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Days        DaySet   `json:"days_of_week"`
	TimeOfDay   string   `json:"time_of_day"` // "HH:MM", 24h
	TargetHeatF *float64 `json:"target_heat_f,omitempty"`
	TargetCoolF *float64 `json:"target_cool_f,omitempty"`
	Mode        *Mode    `json:"mode,omitempty"`
	Enabled     bool     `json:"enabled"`
}

// Validate checks name, clock and mode fields.
func (s Schedule) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("schedule name is required")
	}
	if s.Days == 0 {
		return fmt.Errorf("%w: at least one day is required", ErrInvalidDays)
	}
	if _, err := ParseTimeOfDay(s.TimeOfDay); err != nil {
		return err
	}
	if s.Mode != nil {
		if _, ok := ParseMode(string(*s.Mode)); !ok {
			return fmt.Errorf("invalid schedule mode %q", *s.Mode)
		}
	}
	return nil
}

// ParseTimeOfDay validates an "HH:MM" clock string and returns minutes after midnight.
func ParseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil || len(strings.TrimSpace(s)) != 5 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ClockOf formats t as an "HH:MM" clock string in t's location.
func ClockOf(t time.Time) string { return t.Format("15:04") }

// DaySet is a bitmask of weekdays indexed by time.Weekday.
type DaySet uint8

var dayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// NewDaySet builds a set from weekdays.
func NewDaySet(days ...time.Weekday) DaySet {
	var d DaySet
	for _, wd := range days {
		d |= 1 << uint(wd)
	}
	return d
}

// EveryDay contains all seven weekdays.
const EveryDay DaySet = 0x7f

// Contains reports whether wd is in the set.
func (d DaySet) Contains(wd time.Weekday) bool { return d&(1<<uint(wd)) != 0 }

// String renders the set as "Mon,Tue,...", Monday first.
func (d DaySet) String() string {
	parts := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		wd := time.Weekday(i % 7)
		if d.Contains(wd) {
			parts = append(parts, dayNames[wd])
		}
	}
	return strings.Join(parts, ",")
}

// ParseDays accepts comma separated day names ("Mon", "monday") or digits where
// 0 is Monday and 6 is Sunday, the format used by older schedule rows.
func ParseDays(s string) (DaySet, error) {
	var d DaySet
	for _, raw := range strings.Split(s, ",") {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		if n, err := strconv.Atoi(tok); err == nil {
			if n < 0 || n > 6 {
				return 0, fmt.Errorf("%w: %q", ErrInvalidDays, tok)
			}
			d |= 1 << uint((n+1)%7)
			continue
		}
		wd, ok := parseDayName(tok)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDays, tok)
		}
		d |= 1 << uint(wd)
	}
	if d == 0 {
		return 0, fmt.Errorf("%w: empty", ErrInvalidDays)
	}
	return d, nil
}

func parseDayName(tok string) (time.Weekday, bool) {
	if len(tok) < 3 {
		return 0, false
	}
	prefix := strings.ToLower(tok[:3])
	for i, n := range dayNames {
		if strings.ToLower(n) == prefix {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

// MarshalText encodes the set in its "Mon,Tue" form.
func (d DaySet) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText decodes either day names or weekday digits.
func (d *DaySet) UnmarshalText(b []byte) error {
	v, err := ParseDays(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

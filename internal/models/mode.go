package models

import "strings"

// Mode is the HVAC operating mode selected by the user or a schedule.
type Mode string

const (
	ModeHeat Mode = "heat"
	ModeCool Mode = "cool"
	ModeAuto Mode = "auto"
	ModeOff  Mode = "off"
)

// ParseMode normalizes s and reports whether it names a known mode.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeHeat, ModeCool, ModeAuto, ModeOff:
		return m, true
	}
	return "", false
}

// Heats reports whether the mode may engage heat stages.
func (m Mode) Heats() bool { return m == ModeHeat || m == ModeAuto }

// Cools reports whether the mode may engage cool stages.
func (m Mode) Cools() bool { return m == ModeCool || m == ModeAuto }

// FanMode selects continuous or demand-driven fan operation.
type FanMode string

const (
	FanAuto FanMode = "auto"
	FanOn   FanMode = "on"
)

// ParseFanMode normalizes s and reports whether it names a known fan mode.
func ParseFanMode(s string) (FanMode, bool) {
	f := FanMode(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FanAuto, FanOn:
		return f, true
	}
	return "", false
}

// StageKind identifies which plant a stage belongs to.
type StageKind string

const (
	StageHeat StageKind = "heat"
	StageCool StageKind = "cool"
)

// ParseStageKind accepts "heat" or "cool" in any case.
func ParseStageKind(s string) (StageKind, bool) {
	k := StageKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case StageHeat, StageCool:
		return k, true
	}
	return "", false
}

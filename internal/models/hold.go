package models

import "time"

// HoldKind is the schedule arbitration state.
type HoldKind string

const (
	HoldActive   HoldKind = "active"
	HoldOnHold   HoldKind = "on_hold"
	HoldDisabled HoldKind = "disabled"
)

// HoldState tracks whether schedules may currently rewrite setpoints.
// Until is meaningful only for HoldOnHold.
type HoldState struct {
	Kind  HoldKind  `json:"kind"`
	Until time.Time `json:"until,omitempty"`
}

func ActiveHold() HoldState                 { return HoldState{Kind: HoldActive} }
func DisabledHold() HoldState               { return HoldState{Kind: HoldDisabled} }
func OnHoldUntil(until time.Time) HoldState { return HoldState{Kind: HoldOnHold, Until: until} }

package control

// InterlockOutput is the final plant command after safety enforcement.
type InterlockOutput struct {
	Heat        []int
	Cool        []int
	Fan         bool
	SensorFault bool
	// Violation is set when heat and cool were both requested; cool was dropped.
	Violation bool
}

// SafetyInterlock enforces mutually exclusive heat and cool and the absolute
// plausibility bounds of the system temperature.
type SafetyInterlock struct {
	MinTempF float64
	MaxTempF float64
}

// Plausible reports whether tempF lies within [MinTempF, MaxTempF].
func (i SafetyInterlock) Plausible(tempF float64) bool {
	return tempF >= i.MinTempF && tempF <= i.MaxTempF
}

// Enforce applies the interlock to a StageController decision. An implausible
// temperature turns every stage off and reports a sensor fault; fanOn keeps the
// fan running in that case. Heat wins when both sets are non-empty.
func (i SafetyInterlock) Enforce(tempF float64, d StageDecision, fanOn bool) InterlockOutput {
	if !i.Plausible(tempF) {
		return i.Fault(fanOn)
	}
	out := InterlockOutput{
		Heat: append([]int(nil), d.Heat...),
		Cool: append([]int(nil), d.Cool...),
		Fan:  d.Fan,
	}
	if len(out.Heat) > 0 && len(out.Cool) > 0 {
		out.Cool = nil
		out.Violation = true
	}
	return out
}

// Fault is the plant command under a sensor fault: every stage off, the fan only
// when the user asked for it.
func (i SafetyInterlock) Fault(fanOn bool) InterlockOutput {
	return InterlockOutput{SensorFault: true, Fan: fanOn}
}

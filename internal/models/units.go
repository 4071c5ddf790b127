package models

import (
	"fmt"
	"strings"
)

// Temperature units.
const (
	UnitF = "F"
	UnitC = "C"
	UnitK = "K"
)

func CelsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }
func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }

// NormalizeUnit upper-cases u and reports whether it is supported.
func NormalizeUnit(u string) (string, bool) {
	u = strings.ToUpper(strings.TrimSpace(u))
	switch u {
	case UnitF, UnitC, UnitK:
		return u, true
	}
	return "", false
}

// ConvertTemperature converts temp between F, C and K.
func ConvertTemperature(temp float64, from, to string) (float64, error) {
	f, ok := NormalizeUnit(from)
	if !ok {
		return 0, fmt.Errorf("unsupported temperature unit %q", from)
	}
	t, ok := NormalizeUnit(to)
	if !ok {
		return 0, fmt.Errorf("unsupported temperature unit %q", to)
	}
	if f == t {
		return temp, nil
	}
	var c float64
	switch f {
	case UnitC:
		c = temp
	case UnitF:
		c = FahrenheitToCelsius(temp)
	case UnitK:
		c = temp - 273.15
	}
	switch t {
	case UnitF:
		return CelsiusToFahrenheit(c), nil
	case UnitK:
		return c + 273.15, nil
	}
	return c, nil
}

// ConvertDelta converts a temperature difference, ignoring the offset between scales.
func ConvertDelta(delta float64, from, to string) (float64, error) {
	zero, err := ConvertTemperature(0, from, to)
	if err != nil {
		return 0, err
	}
	v, err := ConvertTemperature(delta, from, to)
	if err != nil {
		return 0, err
	}
	return v - zero, nil
}

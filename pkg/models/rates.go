package models

import (
	"fmt"
	"strings"
)

// --- Model tags ---

// Measure selects the pricing measure (and therefore the numeraire) of a run.
type Measure string

const (
	MeasureSpot     Measure = "spot"     // rolling deposit numeraire
	MeasureTerminal Measure = "terminal" // zero bond maturing at the final tenor
)

// Dynamics selects normal or log-normal forward-rate dynamics.
type Dynamics string

const (
	DynamicsNormal    Dynamics = "normal"
	DynamicsLognormal Dynamics = "lognormal"
)

// ParseMeasure converts a case-insensitive name into a Measure.
func ParseMeasure(s string) (Measure, error) {
	switch m := Measure(strings.ToLower(strings.TrimSpace(s))); m {
	case MeasureSpot, MeasureTerminal:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown measure %q", ErrConfiguration, s)
}

// ParseDynamics converts a case-insensitive name into a Dynamics.
func ParseDynamics(s string) (Dynamics, error) {
	switch d := Dynamics(strings.ToLower(strings.TrimSpace(s))); d {
	case DynamicsNormal, DynamicsLognormal:
		return d, nil
	}
	return "", fmt.Errorf("%w: unknown dynamics %q", ErrConfiguration, s)
}

// BlendParameter returns the local-volatility displacement for the dynamics:
// 0 reproduces log-normal, 1 reproduces normal.
func (d Dynamics) BlendParameter() float64 {
	if d == DynamicsNormal {
		return 1.0
	}
	return 0.0
}

// --- Market data ---

// Extrapolation controls curve evaluation outside the fixing range.
type Extrapolation string

const (
	ExtrapolationConstant Extrapolation = "constant" // hold the boundary value
	ExtrapolationNone     Extrapolation = "none"     // reject out-of-range times
)

package lmm

import (
	"fmt"
	"math"

	"github.com/seenimoa/lmmarrears/internal/timegrid"
	"github.com/seenimoa/lmmarrears/pkg/models"
)

// NumeraireAtTenor returns N(T_k) on path for k = 0..n.
//
//	spot:     N(T_k) = 1/P(T_0) · Π_{j<k} (1 + δ_j L_j(T_j))
//	terminal: N(T_k) = s · Π_{j=k}^{n-1} 1/(1 + δ_j L_j(T_k))
func (m *Model) NumeraireAtTenor(k int, path *Path) (float64, error) {
	n := len(m.initialForwards)
	if k < 0 || k > n {
		return 0, fmt.Errorf("%w: tenor index %d outside [0, %d]", models.ErrCurveEvaluation, k, n)
	}

	var value float64
	switch m.measure {
	case models.MeasureSpot:
		value = 1 / m.discountAtTenor[0]
		for j := 0; j < k; j++ {
			value *= 1 + m.periodLengths[j]*path.Rate(m.tenorIndex[j], j)
		}
	case models.MeasureTerminal:
		value = m.terminalScale
		row := path.At(m.tenorIndex[k])
		for j := k; j < n; j++ {
			value /= 1 + m.periodLengths[j]*row[j]
		}
	default:
		return 0, fmt.Errorf("%w: unknown measure %q", models.ErrConfiguration, m.measure)
	}

	if !(value > 0) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: numeraire %v at T_%d", models.ErrNumericalInstability, value, k)
	}
	return value, nil
}

// Numeraire returns N(t) on path. Between tenor dates the value at the
// preceding tenor T_k is carried with the deterministic factor P(T_k)/P(t).
func (m *Model) Numeraire(t float64, path *Path) (float64, error) {
	if math.IsNaN(t) || t < -timegrid.Tolerance || t > m.tenorGrid.Horizon()+timegrid.Tolerance {
		return 0, fmt.Errorf("%w: numeraire at t=%v outside [0, %v]", models.ErrCurveEvaluation, t, m.tenorGrid.Horizon())
	}
	if k := m.tenorGrid.IndexOf(t); k >= 0 {
		return m.NumeraireAtTenor(k, path)
	}

	k := m.tenorGrid.PrecedingIndex(t)
	value, err := m.NumeraireAtTenor(k, path)
	if err != nil {
		return 0, err
	}
	df, err := m.curve.DiscountFactor(t)
	if err != nil {
		return 0, fmt.Errorf("numeraire at t=%v: %w", t, err)
	}
	return value * m.discountAtTenor[k] / df, nil
}

// LIBOR returns the simple forward rate for [start, end] seen at time on
// path. start and end must be tenor dates and time a simulation date.
func (m *Model) LIBOR(time, start, end float64, path *Path) (float64, error) {
	timeIndex := m.simGrid.IndexOf(time)
	if timeIndex < 0 || timeIndex >= path.NumberOfTimes() {
		return 0, fmt.Errorf("%w: t=%v is not a simulation time", models.ErrCurveEvaluation, time)
	}
	a, b := m.tenorGrid.IndexOf(start), m.tenorGrid.IndexOf(end)
	if a < 0 || b < 0 || b <= a {
		return 0, fmt.Errorf("%w: period [%v, %v] is not on the tenor grid", models.ErrCurveEvaluation, start, end)
	}

	row := path.At(timeIndex)
	if b == a+1 {
		return row[a], nil
	}
	growth := 1.0
	for j := a; j < b; j++ {
		growth *= 1 + m.periodLengths[j]*row[j]
	}
	return (growth - 1) / (end - start), nil
}

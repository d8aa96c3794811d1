// Package lmm holds the LIBOR market model state: the initial forwards, the
// alignment of the tenor structure on the simulation grid, the measure
// dependent drift and the numeraire.
package lmm

import (
	"fmt"
	"math"

	"github.com/seenimoa/lmmarrears/internal/covariance"
	"github.com/seenimoa/lmmarrears/internal/curve"
	"github.com/seenimoa/lmmarrears/internal/timegrid"
	"github.com/seenimoa/lmmarrears/pkg/models"
)

// Options configure a Model.
type Options struct {
	SimulationGrid *timegrid.Grid
	TenorGrid      *timegrid.Grid
	Curve          curve.Provider
	Covariance     *covariance.Model
	Measure        models.Measure
}

// Model is immutable after New and safe for concurrent use.
type Model struct {
	simGrid    *timegrid.Grid
	tenorGrid  *timegrid.Grid
	curve      curve.Provider
	covariance *covariance.Model
	measure    models.Measure

	initialForwards []float64
	periodLengths   []float64
	// tenorIndex[i] is the simulation time index of T_i.
	tenorIndex []int
	// discountAtTenor[i] is P(T_i), i = 0..n.
	discountAtTenor []float64
	terminalScale   float64
}

// InitialForwards evaluates L_i(0) = f(T_i) for every LIBOR of the tenor grid.
func InitialForwards(tenorGrid *timegrid.Grid, provider curve.Provider) ([]float64, error) {
	n := tenorGrid.NumberOfSteps()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		f, err := provider.ForwardRate(tenorGrid.Time(i))
		if err != nil {
			return nil, fmt.Errorf("initial forward %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

// New validates grid alignment and precomputes the deterministic pieces of
// the numeraire.
func New(opts Options) (*Model, error) {
	if opts.SimulationGrid == nil || opts.TenorGrid == nil {
		return nil, fmt.Errorf("%w: model needs simulation and tenor grids", models.ErrConfiguration)
	}
	if opts.Curve == nil || opts.Covariance == nil {
		return nil, fmt.Errorf("%w: model needs a curve and a covariance model", models.ErrConfiguration)
	}
	switch opts.Measure {
	case models.MeasureSpot, models.MeasureTerminal:
	default:
		return nil, fmt.Errorf("%w: unknown measure %q", models.ErrConfiguration, opts.Measure)
	}

	sim, tenor := opts.SimulationGrid, opts.TenorGrid
	if tenor.Horizon() > sim.Horizon()+timegrid.Tolerance {
		return nil, fmt.Errorf("%w: tenor horizon %v exceeds simulation horizon %v", models.ErrConfiguration, tenor.Horizon(), sim.Horizon())
	}
	if !sim.Contains(tenor) {
		return nil, fmt.Errorf("%w: tenor times are not on the simulation grid (step %v vs period %v)", models.ErrConfiguration, sim.Step(), tenor.Step())
	}

	n := tenor.NumberOfSteps()
	if opts.Covariance.NumberOfComponents() != n {
		return nil, fmt.Errorf("%w: covariance has %d components, tenor grid %d", models.ErrConfiguration, opts.Covariance.NumberOfComponents(), n)
	}

	l0, err := InitialForwards(tenor, opts.Curve)
	if err != nil {
		return nil, err
	}

	m := &Model{
		simGrid:         sim,
		tenorGrid:       tenor,
		curve:           opts.Curve,
		covariance:      opts.Covariance,
		measure:         opts.Measure,
		initialForwards: l0,
		periodLengths:   make([]float64, n),
		tenorIndex:      make([]int, n+1),
		discountAtTenor: make([]float64, n+1),
	}
	for i := 0; i <= n; i++ {
		m.tenorIndex[i] = sim.IndexOf(tenor.Time(i))
		df, err := opts.Curve.DiscountFactor(tenor.Time(i))
		if err != nil {
			return nil, fmt.Errorf("discount factor at T_%d: %w", i, err)
		}
		m.discountAtTenor[i] = df
		if i < n {
			m.periodLengths[i] = tenor.Time(i+1) - tenor.Time(i)
		}
	}

	// Scale making the terminal numeraire reproduce P(T_n) at time 0.
	m.terminalScale = m.discountAtTenor[n]
	for i, l := range l0 {
		m.terminalScale *= 1 + m.periodLengths[i]*l
	}
	if m.terminalScale <= 0 || math.IsNaN(m.terminalScale) || math.IsInf(m.terminalScale, 0) {
		return nil, fmt.Errorf("%w: terminal numeraire scale %v", models.ErrNumericalInstability, m.terminalScale)
	}
	return m, nil
}

// ────────────────────────────────────────────────────────────────────
// Accessors
// ────────────────────────────────────────────────────────────────────

// Measure returns the pricing measure.
func (m *Model) Measure() models.Measure { return m.measure }

// SimulationGrid returns the Euler grid.
func (m *Model) SimulationGrid() *timegrid.Grid { return m.simGrid }

// TenorGrid returns the LIBOR fixing/payment grid.
func (m *Model) TenorGrid() *timegrid.Grid { return m.tenorGrid }

// Covariance returns the covariance model.
func (m *Model) Covariance() *covariance.Model { return m.covariance }

// Curve returns the initial curve.
func (m *Model) Curve() curve.Provider { return m.curve }

// NumberOfComponents returns the LIBOR count n.
func (m *Model) NumberOfComponents() int { return len(m.initialForwards) }

// NumberOfFactors returns the Brownian dimension.
func (m *Model) NumberOfFactors() int { return m.covariance.NumberOfFactors() }

// InitialForward returns L_i(0).
func (m *Model) InitialForward(i int) float64 { return m.initialForwards[i] }

// InitialForwards returns a copy of L(0).
func (m *Model) InitialForwards() []float64 {
	return append([]float64(nil), m.initialForwards...)
}

// PeriodLength returns δ_i = T_{i+1} - T_i.
func (m *Model) PeriodLength(i int) float64 { return m.periodLengths[i] }

// DiscountAtTenor returns P(T_i).
func (m *Model) DiscountAtTenor(i int) float64 { return m.discountAtTenor[i] }

// TenorSimulationIndex returns the simulation time index of T_i.
func (m *Model) TenorSimulationIndex(i int) int { return m.tenorIndex[i] }

// FirstEvolving returns the first component with T_i > t_timeIndex, or n when
// every LIBOR has fixed.
func (m *Model) FirstEvolving(timeIndex int) int {
	t := m.simGrid.Time(timeIndex)
	for i := 0; i < len(m.initialForwards); i++ {
		if m.tenorGrid.Time(i) > t+timegrid.Tolerance {
			return i
		}
	}
	return len(m.initialForwards)
}

// NewPath allocates a path initialised with L(0).
func (m *Model) NewPath() *Path {
	p := NewPath(m.simGrid.Len(), len(m.initialForwards))
	p.Reset(m.initialForwards)
	return p
}

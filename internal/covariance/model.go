package covariance

import (
	"fmt"

	"github.com/seenimoa/lmmarrears/internal/timegrid"
	"github.com/seenimoa/lmmarrears/pkg/models"
)

// Model combines volatility and correlation into factor loadings and
// instantaneous covariances. The blend parameter α selects the local
// volatility transform s_i = α·L0_i + (1-α)·L_i: α = 0 gives lognormal
// dynamics, α = 1 normal dynamics. The state it operates on is always the
// forward rate itself.
type Model struct {
	simGrid         *timegrid.Grid
	volatility      *VolatilityStructure
	correlation     *CorrelationStructure
	blend           float64
	initialForwards []float64
}

// NewModel validates that the pieces agree in dimension.
func NewModel(simGrid *timegrid.Grid, vol *VolatilityStructure, corr *CorrelationStructure, dynamics models.Dynamics, initialForwards []float64) (*Model, error) {
	n := corr.NumberOfComponents()
	if vol.NumberOfComponents() != n {
		return nil, fmt.Errorf("%w: volatility has %d components, correlation %d", models.ErrConfiguration, vol.NumberOfComponents(), n)
	}
	if vol.NumberOfTimes() != simGrid.NumberOfSteps() {
		return nil, fmt.Errorf("%w: volatility has %d rows for %d simulation steps", models.ErrConfiguration, vol.NumberOfTimes(), simGrid.NumberOfSteps())
	}
	if len(initialForwards) != n {
		return nil, fmt.Errorf("%w: %d initial forwards for %d components", models.ErrConfiguration, len(initialForwards), n)
	}
	return &Model{
		simGrid:         simGrid,
		volatility:      vol,
		correlation:     corr,
		blend:           dynamics.BlendParameter(),
		initialForwards: append([]float64(nil), initialForwards...),
	}, nil
}

// NumberOfComponents returns the LIBOR count.
func (m *Model) NumberOfComponents() int { return len(m.initialForwards) }

// NumberOfFactors returns the number of Brownian drivers.
func (m *Model) NumberOfFactors() int { return m.correlation.NumberOfFactors() }

// BlendParameter returns α.
func (m *Model) BlendParameter() float64 { return m.blend }

// Volatility exposes the underlying structure.
func (m *Model) Volatility() *VolatilityStructure { return m.volatility }

// Correlation exposes the underlying structure.
func (m *Model) Correlation() *CorrelationStructure { return m.correlation }

func (m *Model) localLevel(component int, rates []float64) float64 {
	return m.blend*m.initialForwards[component] + (1-m.blend)*rates[component]
}

// FactorLoading writes f_ik = σ_i(t_j)·F_ik·s_i for every factor k into dst
// and returns it. dst is allocated when too short.
func (m *Model) FactorLoading(timeIndex, component int, rates, dst []float64) []float64 {
	nf := m.NumberOfFactors()
	if cap(dst) < nf {
		dst = make([]float64, nf)
	}
	dst = dst[:nf]
	scale := m.volatility.Volatility(timeIndex, component) * m.localLevel(component, rates)
	for k := 0; k < nf; k++ {
		dst[k] = scale * m.correlation.Factor(component, k)
	}
	return dst
}

// LoadingScale returns σ_i(t_j)·s_i, the common factor of every loading of
// component i.
func (m *Model) LoadingScale(timeIndex, component int, rates []float64) float64 {
	sigma := m.volatility.Volatility(timeIndex, component)
	if sigma == 0 {
		return 0
	}
	return sigma * m.localLevel(component, rates)
}

// Covariance returns c_ik = σ_iσ_kρ_ik·s_i·s_k at time index j.
func (m *Model) Covariance(timeIndex, i, k int, rates []float64) float64 {
	sigmaI := m.volatility.Volatility(timeIndex, i)
	sigmaK := m.volatility.Volatility(timeIndex, k)
	if sigmaI == 0 || sigmaK == 0 {
		return 0
	}
	return sigmaI * sigmaK * m.correlation.Correlation(i, k) * m.localLevel(i, rates) * m.localLevel(k, rates)
}

// IntegratedVariance returns Σ_{j<timeIndex} σ_i(t_j)²·Δt_j, the relative
// (Black) variance of component i accumulated up to t_timeIndex.
func (m *Model) IntegratedVariance(timeIndex, component int) float64 {
	if timeIndex > m.volatility.NumberOfTimes() {
		timeIndex = m.volatility.NumberOfTimes()
	}
	var sum float64
	for j := 0; j < timeIndex; j++ {
		sigma := m.volatility.Volatility(j, component)
		sum += sigma * sigma * (m.simGrid.Time(j+1) - m.simGrid.Time(j))
	}
	return sum
}

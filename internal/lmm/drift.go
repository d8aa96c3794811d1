package lmm

import (
	"fmt"
	"math"

	"github.com/seenimoa/lmmarrears/pkg/models"
)

// minDenominator bounds 1 + δL away from zero.
const minDenominator = 1e-12

// DriftBuffers is the scratch space of Drift. It is not safe for concurrent
// use; keep one per worker.
type DriftBuffers struct {
	weights []float64
	scales  []float64
}

// NewDriftBuffers allocates buffers for n components.
func NewDriftBuffers(n int) *DriftBuffers {
	return &DriftBuffers{weights: make([]float64, n), scales: make([]float64, n)}
}

func (b *DriftBuffers) ensure(n int) {
	if cap(b.weights) < n {
		b.weights = make([]float64, n)
		b.scales = make([]float64, n)
	}
	b.weights = b.weights[:n]
	b.scales = b.scales[:n]
}

// Drift writes μ_i(t_timeIndex, L) for every component into dst and returns
// it. Fixed components get zero drift. rates are the values at the start of
// the step. buf may be nil, in which case scratch space is allocated.
//
//	terminal: μ_i = -Σ_{k>i} c_ik δ_k/(1+δ_k L_k)
//	spot:     μ_i =  Σ_{first<=k<=i} c_ik δ_k/(1+δ_k L_k)
func (m *Model) Drift(timeIndex int, rates, dst []float64, buf *DriftBuffers) ([]float64, error) {
	n := len(m.initialForwards)
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = 0
	}

	first := m.FirstEvolving(timeIndex)
	if first == n {
		return dst, nil
	}

	if buf == nil {
		buf = NewDriftBuffers(n)
	}
	buf.ensure(n)

	// c_ik = a_i a_k ρ_ik with a_k = σ_k s_k; w_k = δ_k/(1+δ_k L_k).
	weights, scales := buf.weights, buf.scales
	for k := first; k < n; k++ {
		l := rates[k]
		if math.IsNaN(l) || math.IsInf(l, 0) {
			return nil, fmt.Errorf("%w: L_%d(t_%d) = %v", models.ErrNumericalInstability, k, timeIndex, l)
		}
		denom := 1 + m.periodLengths[k]*l
		if denom <= minDenominator {
			return nil, fmt.Errorf("%w: 1+δL_%d = %v at t_%d", models.ErrNumericalInstability, k, denom, timeIndex)
		}
		weights[k] = m.periodLengths[k] / denom
		scales[k] = m.covariance.LoadingScale(timeIndex, k, rates)
	}

	corr := m.covariance.Correlation()
	switch m.measure {
	case models.MeasureTerminal:
		for i := first; i < n; i++ {
			var sum float64
			for k := i + 1; k < n; k++ {
				sum += corr.Correlation(i, k) * scales[k] * weights[k]
			}
			dst[i] = -scales[i] * sum
		}
	case models.MeasureSpot:
		for i := first; i < n; i++ {
			var sum float64
			for k := first; k <= i; k++ {
				sum += corr.Correlation(i, k) * scales[k] * weights[k]
			}
			dst[i] = scales[i] * sum
		}
	default:
		return nil, fmt.Errorf("%w: unknown measure %q", models.ErrConfiguration, m.measure)
	}
	return dst, nil
}

// FactorLoading writes the loadings of component i on every factor into dst.
// Fixed components have zero loading.
func (m *Model) FactorLoading(timeIndex, component int, rates, dst []float64) []float64 {
	dst = m.covariance.FactorLoading(timeIndex, component, rates, dst)
	if component < m.FirstEvolving(timeIndex) {
		for k := range dst {
			dst[k] = 0
		}
	}
	return dst
}

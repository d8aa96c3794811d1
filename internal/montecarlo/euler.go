package montecarlo

import (
	"fmt"
	"math"

	"github.com/seenimoa/lmmarrears/internal/lmm"
	"github.com/seenimoa/lmmarrears/pkg/models"
)

// EulerScheme integrates the forward rate SDE with an explicit Euler step:
//
//	L_i(t_{j+1}) = L_i(t_j) + μ_i Δt + Σ_k f_ik √Δt Z_k
//
// Drift and loadings use the values at t_j only.
type EulerScheme struct {
	model *lmm.Model
}

// maxAbsRate bounds a simulated forward rate; a path beyond it has exploded.
const maxAbsRate = 100

// NewEulerScheme binds a scheme to a model.
func NewEulerScheme(model *lmm.Model) *EulerScheme {
	return &EulerScheme{model: model}
}

// workspace holds the per-worker scratch buffers of Evolve.
type workspace struct {
	draws   []float64
	drift   []float64
	loading []float64
	scratch *lmm.DriftBuffers
}

func newWorkspace(components, factors int) *workspace {
	return &workspace{
		draws:   make([]float64, factors),
		drift:   make([]float64, components),
		loading: make([]float64, factors),
		scratch: lmm.NewDriftBuffers(components),
	}
}

// Evolve fills path rows 1..N from row 0. One draw vector is taken from the
// stream at every step, even after every LIBOR has fixed, so the mapping from
// draws to steps never shifts.
func (e *EulerScheme) Evolve(stream *Stream, path *lmm.Path, ws *workspace) error {
	sim := e.model.SimulationGrid()
	n := e.model.NumberOfComponents()
	if ws == nil {
		ws = newWorkspace(n, e.model.NumberOfFactors())
	}

	for j := 0; j < sim.NumberOfSteps(); j++ {
		dt := sim.Time(j+1) - sim.Time(j)
		sqrtDt := math.Sqrt(dt)
		prev, next := path.At(j), path.At(j+1)

		draws := stream.Next(ws.draws)
		first := e.model.FirstEvolving(j)
		copy(next[:first], prev[:first])
		if first == n {
			continue
		}

		drift, err := e.model.Drift(j, prev, ws.drift, ws.scratch)
		if err != nil {
			return err
		}
		for i := first; i < n; i++ {
			loading := e.model.Covariance().FactorLoading(j, i, prev, ws.loading)
			var diffusion float64
			for k, f := range loading {
				diffusion += f * draws[k]
			}
			v := prev[i] + drift[i]*dt + diffusion*sqrtDt
			if math.IsNaN(v) || math.Abs(v) > maxAbsRate {
				return fmt.Errorf("%w: L_%d(t_%d) = %v", models.ErrNumericalInstability, i, j+1, v)
			}
			next[i] = v
		}
	}
	return nil
}

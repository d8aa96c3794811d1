package covariance

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/seenimoa/lmmarrears/internal/timegrid"
	"github.com/seenimoa/lmmarrears/pkg/models"
)

// CorrelationStructure is a symmetric, unit-diagonal correlation between the
// LIBOR components together with its full-rank factor matrix F, F·Fᵀ = ρ.
type CorrelationStructure struct {
	rho     *mat.SymDense
	factors *mat.Dense
}

// NewExponentialDecayCorrelation builds ρ_ik = exp(-α|T_i - T_k|) over the
// LIBOR start times of the tenor grid.
func NewExponentialDecayCorrelation(alpha float64, tenorGrid *timegrid.Grid) (*CorrelationStructure, error) {
	if !(alpha > 0) || math.IsInf(alpha, 0) {
		return nil, fmt.Errorf("%w: correlation decay must be positive, got %v", models.ErrConfiguration, alpha)
	}
	n := tenorGrid.NumberOfSteps()
	rho := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		rho.SetSym(i, i, 1)
		for k := i + 1; k < n; k++ {
			rho.SetSym(i, k, math.Exp(-alpha*math.Abs(tenorGrid.Time(i)-tenorGrid.Time(k))))
		}
	}
	return NewCorrelationStructure(rho)
}

// NewCorrelationStructure factorizes an arbitrary correlation matrix.
// Negative eigenvalues produced by rounding are floored at zero.
func NewCorrelationStructure(rho *mat.SymDense) (*CorrelationStructure, error) {
	n := rho.SymmetricDim()
	if n == 0 {
		return nil, fmt.Errorf("%w: empty correlation matrix", models.ErrConfiguration)
	}
	for i := 0; i < n; i++ {
		if math.Abs(rho.At(i, i)-1) > 1e-12 {
			return nil, fmt.Errorf("%w: correlation diagonal (%d,%d) is %v", models.ErrConfiguration, i, i, rho.At(i, i))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(rho, true); !ok {
		return nil, fmt.Errorf("%w: eigen-decomposition of correlation failed", models.ErrConfiguration)
	}
	values := eig.Values(nil)
	vectors := mat.NewDense(n, n, nil)
	eig.VectorsTo(vectors)

	// Largest eigenvalue first.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	factors := mat.NewDense(n, n, nil)
	for col, src := range order {
		scale := math.Sqrt(math.Max(values[src], 0))
		for row := 0; row < n; row++ {
			factors.Set(row, col, vectors.At(row, src)*scale)
		}
	}

	own := mat.NewSymDense(n, nil)
	own.CopySym(rho)
	return &CorrelationStructure{rho: own, factors: factors}, nil
}

// Correlation returns ρ_ik.
func (c *CorrelationStructure) Correlation(i, k int) float64 { return c.rho.At(i, k) }

// Factor returns F_ik, the loading of component i on factor k.
func (c *CorrelationStructure) Factor(i, k int) float64 { return c.factors.At(i, k) }

// NumberOfComponents returns the matrix dimension.
func (c *CorrelationStructure) NumberOfComponents() int { return c.rho.SymmetricDim() }

// NumberOfFactors equals the number of components; no factor reduction is applied.
func (c *CorrelationStructure) NumberOfFactors() int {
	_, cols := c.factors.Dims()
	return cols
}

// Matrix returns a copy of ρ.
func (c *CorrelationStructure) Matrix() *mat.SymDense {
	out := mat.NewSymDense(c.rho.SymmetricDim(), nil)
	out.CopySym(c.rho)
	return out
}

// FactorMatrix returns a copy of F.
func (c *CorrelationStructure) FactorMatrix() *mat.Dense {
	return mat.DenseCopyOf(c.factors)
}

// Package covariance builds the instantaneous covariance structure of the
// LIBOR market model: a parametric volatility surface, an exponential-decay
// correlation with its factor decomposition, and the blended local-volatility
// transform applied to each factor loading.
package covariance

import (
	"fmt"
	"math"

	"github.com/seenimoa/lmmarrears/internal/timegrid"
	"github.com/seenimoa/lmmarrears/pkg/models"
)

// DefaultNormalScale converts lognormal volatility levels to absolute
// (normal) ones.
const DefaultNormalScale = 0.05

// VolatilityParams are the coefficients of σ(τ) = d + (a + bτ)·exp(-cτ).
type VolatilityParams struct {
	A, B, C, D float64

	// NormalScale multiplies every entry under normal dynamics. Zero means
	// DefaultNormalScale.
	NormalScale float64
}

// VolatilityStructure is a dense [simTime][tenor] matrix of instantaneous
// volatilities. Row j is the volatility over the step starting at t_j; column
// i belongs to the LIBOR starting at T_i.
type VolatilityStructure struct {
	values [][]float64
	rows   int
	cols   int
}

// NewVolatilityStructure evaluates the parametric volatility on the
// simulation and tenor grids. Entries where the LIBOR has already fixed
// (T_i - t_j <= 0, within timegrid.Tolerance) are zero. The parameters are not sign-checked.
func NewVolatilityStructure(params VolatilityParams, simGrid, tenorGrid *timegrid.Grid, dynamics models.Dynamics) (*VolatilityStructure, error) {
	if simGrid == nil || tenorGrid == nil {
		return nil, fmt.Errorf("%w: volatility structure needs both grids", models.ErrConfiguration)
	}

	scale := 1.0
	switch dynamics {
	case models.DynamicsLognormal:
	case models.DynamicsNormal:
		scale = params.NormalScale
		if scale == 0 {
			scale = DefaultNormalScale
		}
	default:
		return nil, fmt.Errorf("%w: unknown dynamics %q", models.ErrConfiguration, dynamics)
	}

	rows := simGrid.NumberOfSteps()
	cols := tenorGrid.NumberOfSteps()
	values := make([][]float64, rows)
	for j := 0; j < rows; j++ {
		t := simGrid.Time(j)
		row := make([]float64, cols)
		for i := 0; i < cols; i++ {
			tau := tenorGrid.Time(i) - t
			if tau <= timegrid.Tolerance {
				continue
			}
			row[i] = scale * (params.D + (params.A+params.B*tau)*math.Exp(-params.C*tau))
		}
		values[j] = row
	}

	return &VolatilityStructure{
		values: values,
		rows:   rows,
		cols:   cols,
	}, nil
}

// Volatility returns σ_i(t_j).
func (v *VolatilityStructure) Volatility(timeIndex, component int) float64 {
	return v.values[timeIndex][component]
}

// NumberOfTimes returns the number of rows.
func (v *VolatilityStructure) NumberOfTimes() int { return v.rows }

// NumberOfComponents returns the number of LIBOR columns.
func (v *VolatilityStructure) NumberOfComponents() int { return v.cols }

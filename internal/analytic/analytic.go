// Package analytic prices a LIBOR-in-arrears payment in closed form with the
// lognormal convexity adjustment.
package analytic

import (
	"fmt"
	"math"

	"github.com/seenimoa/lmmarrears/internal/lmm"
	"github.com/seenimoa/lmmarrears/internal/timegrid"
	"github.com/seenimoa/lmmarrears/pkg/models"
)

// LiborInArrears returns the value of δ·L(T_i) paid at T_i:
//
//	[P(T_i) - P(T_{i+1})] + P(T_{i+1})·δ²·L0²·exp(variance·T_i)
//
// variance is the average squared relative volatility of L over [0, T_i].
func LiborInArrears(initialForward, variance, fixing, periodEnd, dfPeriodEnd, dfFixing float64) float64 {
	delta := periodEnd - fixing
	return (dfFixing - dfPeriodEnd) +
		dfPeriodEnd*delta*delta*initialForward*initialForward*math.Exp(variance*fixing)
}

// ConvexityAdjusted prices the in-arrears payment of LIBOR periodIndex of the
// model, scaled by notional. The variance is taken from the model's
// integrated covariance up to the fixing date.
func ConvexityAdjusted(model *lmm.Model, periodIndex int, notional float64) (float64, error) {
	n := model.NumberOfComponents()
	if periodIndex < 0 || periodIndex >= n {
		return 0, fmt.Errorf("%w: period index %d outside [0, %d)", models.ErrConfiguration, periodIndex, n)
	}

	tenor := model.TenorGrid()
	fixing := tenor.Time(periodIndex)
	periodEnd := tenor.Time(periodIndex + 1)
	l0 := model.InitialForward(periodIndex)

	if fixing <= timegrid.Tolerance {
		return notional * (periodEnd - fixing) * l0, nil
	}

	integrated := model.Covariance().IntegratedVariance(model.TenorSimulationIndex(periodIndex), periodIndex)
	variance := integrated / fixing

	value := LiborInArrears(l0, variance, fixing, periodEnd,
		model.DiscountAtTenor(periodIndex+1), model.DiscountAtTenor(periodIndex))
	return notional * value, nil
}

// Table prices every period of the model.
func Table(model *lmm.Model, notional float64) ([]float64, error) {
	out := make([]float64, model.NumberOfComponents())
	for i := range out {
		v, err := ConvexityAdjusted(model, i, notional)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

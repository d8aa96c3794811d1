// Package product values interest rate payoffs on simulated LIBOR market
// model paths.
package product

import (
	"fmt"

	"github.com/seenimoa/lmmarrears/internal/lmm"
	"github.com/seenimoa/lmmarrears/internal/timegrid"
	"github.com/seenimoa/lmmarrears/pkg/models"
)

// Model is what a product needs from the simulation to value one path.
type Model interface {
	Numeraire(t float64, path *lmm.Path) (float64, error)
	LIBOR(time, start, end float64, path *lmm.Path) (float64, error)
}

// Product is a contract valued path-wise in units of the numeraire.
type Product interface {
	Name() string
	Value(evaluationTime float64, model Model, path *lmm.Path) (float64, error)
}

// LiborInArrears pays Notional·L(T_i; T_i, T_{i+1})·δ at the fixing date T_i
// rather than at the end of the accrual period.
type LiborInArrears struct {
	PeriodStart float64
	PeriodEnd   float64
	Notional    float64
}

// NewLiborInArrears validates the period.
func NewLiborInArrears(periodStart, periodEnd, notional float64) (*LiborInArrears, error) {
	if periodStart < 0 || periodEnd <= periodStart+timegrid.Tolerance {
		return nil, fmt.Errorf("%w: arrears period [%v, %v]", models.ErrConfiguration, periodStart, periodEnd)
	}
	return &LiborInArrears{PeriodStart: periodStart, PeriodEnd: periodEnd, Notional: notional}, nil
}

// Name identifies the product in reports.
func (p *LiborInArrears) Name() string {
	return fmt.Sprintf("libor-in-arrears[%g,%g]", p.PeriodStart, p.PeriodEnd)
}

// Value returns Notional·L·δ / N(T_i) · N(evaluationTime).
func (p *LiborInArrears) Value(evaluationTime float64, model Model, path *lmm.Path) (float64, error) {
	libor, err := model.LIBOR(p.PeriodStart, p.PeriodStart, p.PeriodEnd, path)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", p.Name(), err)
	}
	numeraireAtPayment, err := model.Numeraire(p.PeriodStart, path)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", p.Name(), err)
	}
	numeraireAtEvaluation, err := model.Numeraire(evaluationTime, path)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", p.Name(), err)
	}

	payoff := p.Notional * libor * (p.PeriodEnd - p.PeriodStart)
	return payoff / numeraireAtPayment * numeraireAtEvaluation, nil
}

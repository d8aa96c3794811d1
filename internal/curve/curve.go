// Package curve provides the initial market curves for the LIBOR market model:
// a forward curve interpolated from sparse fixings and a discount curve
// derived from it by compounding.
package curve

import (
	"fmt"
	"math"
	"sort"

	"github.com/seenimoa/lmmarrears/pkg/models"
)

// Provider supplies initial forward rates and discount factors.
type Provider interface {
	ForwardRate(t float64) (float64, error)
	DiscountFactor(t float64) (float64, error)
}

// ════════════════════════════════════════════════════════════════════
// Forward curve
// ════════════════════════════════════════════════════════════════════

// ForwardCurve interpolates given forwards linearly in value. The forward at
// time t is the simple rate for the period [t, t+PaymentOffset()].
type ForwardCurve struct {
	times         []float64
	forwards      []float64
	paymentOffset float64
	extrapolation models.Extrapolation
}

// NewForwardCurve builds a forward curve from fixing times and their forwards.
func NewForwardCurve(fixingTimes, forwards []float64, paymentOffset float64, extrapolation models.Extrapolation) (*ForwardCurve, error) {
	if len(fixingTimes) == 0 {
		return nil, fmt.Errorf("%w: forward curve needs at least one fixing", models.ErrConfiguration)
	}
	if len(fixingTimes) != len(forwards) {
		return nil, fmt.Errorf("%w: %d fixing times but %d forwards", models.ErrConfiguration, len(fixingTimes), len(forwards))
	}
	if !(paymentOffset > 0) {
		return nil, fmt.Errorf("%w: payment offset must be positive, got %v", models.ErrConfiguration, paymentOffset)
	}
	for i, t := range fixingTimes {
		if t < 0 || math.IsNaN(t) {
			return nil, fmt.Errorf("%w: fixing time %v is negative", models.ErrConfiguration, t)
		}
		if i > 0 && t <= fixingTimes[i-1] {
			return nil, fmt.Errorf("%w: fixing times must be strictly increasing (%v after %v)", models.ErrConfiguration, t, fixingTimes[i-1])
		}
	}
	switch extrapolation {
	case models.ExtrapolationConstant, models.ExtrapolationNone:
	case "":
		extrapolation = models.ExtrapolationConstant
	default:
		return nil, fmt.Errorf("%w: unknown extrapolation %q", models.ErrConfiguration, extrapolation)
	}

	c := &ForwardCurve{
		times:         append([]float64(nil), fixingTimes...),
		forwards:      append([]float64(nil), forwards...),
		paymentOffset: paymentOffset,
		extrapolation: extrapolation,
	}
	return c, nil
}

// PaymentOffset returns the accrual length the forwards refer to.
func (c *ForwardCurve) PaymentOffset() float64 { return c.paymentOffset }

// Forward returns the initial forward for the period starting at t.
func (c *ForwardCurve) Forward(t float64) (float64, error) {
	if t < 0 || math.IsNaN(t) {
		return 0, fmt.Errorf("%w: forward at t=%v", models.ErrCurveEvaluation, t)
	}

	first, last := c.times[0], c.times[len(c.times)-1]
	if t < first || t > last {
		if c.extrapolation == models.ExtrapolationNone {
			return 0, fmt.Errorf("%w: forward at t=%v outside [%v, %v]", models.ErrCurveEvaluation, t, first, last)
		}
		if t < first {
			return c.forwards[0], nil
		}
		return c.forwards[len(c.forwards)-1], nil
	}

	// First fixing >= t.
	idx := sort.SearchFloat64s(c.times, t)
	if c.times[idx] == t || idx == 0 {
		return c.forwards[idx], nil
	}
	t1, t2 := c.times[idx-1], c.times[idx]
	f1, f2 := c.forwards[idx-1], c.forwards[idx]
	return f1 + (f2-f1)*(t-t1)/(t2-t1), nil
}

// ════════════════════════════════════════════════════════════════════
// Discount curve
// ════════════════════════════════════════════════════════════════════

// DiscountCurve derives discount factors from a forward curve:
// P(T) = Π 1/(1 + f(t_k)·min(δ, T - t_k)), t_k = k·δ < T.
type DiscountCurve struct {
	forward *ForwardCurve
}

// NewDiscountCurveFromForward wraps a forward curve.
func NewDiscountCurveFromForward(forward *ForwardCurve) *DiscountCurve {
	return &DiscountCurve{forward: forward}
}

// DiscountFactor returns P(0, t).
func (d *DiscountCurve) DiscountFactor(t float64) (float64, error) {
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, fmt.Errorf("%w: discount factor at t=%v", models.ErrCurveEvaluation, t)
	}

	offset := d.forward.PaymentOffset()
	df := 1.0
	for k := 0; ; k++ {
		start := float64(k) * offset
		if start >= t-1e-12 {
			break
		}
		fwd, err := d.forward.Forward(start)
		if err != nil {
			return 0, fmt.Errorf("discount factor at t=%v: %w", t, err)
		}
		accrual := math.Min(offset, t-start)
		df /= 1.0 + fwd*accrual
	}
	return df, nil
}

// ════════════════════════════════════════════════════════════════════
// Market curves
// ════════════════════════════════════════════════════════════════════

// Market bundles a forward curve and its derived discount curve.
type Market struct {
	Forward  *ForwardCurve
	Discount *DiscountCurve
}

// NewMarket builds the forward curve from fixings and derives discounting.
func NewMarket(fixingTimes, forwards []float64, paymentOffset float64, extrapolation models.Extrapolation) (*Market, error) {
	fwd, err := NewForwardCurve(fixingTimes, forwards, paymentOffset, extrapolation)
	if err != nil {
		return nil, err
	}
	return &Market{Forward: fwd, Discount: NewDiscountCurveFromForward(fwd)}, nil
}

// ForwardRate implements Provider.
func (m *Market) ForwardRate(t float64) (float64, error) { return m.Forward.Forward(t) }

// DiscountFactor implements Provider.
func (m *Market) DiscountFactor(t float64) (float64, error) { return m.Discount.DiscountFactor(t) }

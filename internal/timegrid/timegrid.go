// Package timegrid provides the uniform time discretizations used by the
// simulation: a fine grid for the Euler scheme and a coarser tenure structure
// for the LIBOR fixing/payment dates.
package timegrid

import (
	"fmt"
	"math"

	"github.com/seenimoa/lmmarrears/pkg/models"
)

// Tolerance is the absolute distance under which two times are the same point.
const Tolerance = 1e-9

// Grid is an immutable, strictly increasing sequence 0 = t_0 < t_1 < ... < t_n
// with uniform step.
type Grid struct {
	step  float64
	times []float64
}

// NewUniform creates the grid {0, step, 2·step, ..., horizon}. The horizon must
// be an integer multiple of the step (within Tolerance).
func NewUniform(step, horizon float64) (*Grid, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("%w: time step must be positive, got %v", models.ErrConfiguration, step)
	}
	if !(horizon > 0) || math.IsInf(horizon, 0) {
		return nil, fmt.Errorf("%w: horizon must be positive, got %v", models.ErrConfiguration, horizon)
	}

	ratio := horizon / step
	n := int(math.Round(ratio))
	if n < 1 || math.Abs(float64(n)*step-horizon) > Tolerance {
		return nil, fmt.Errorf("%w: horizon %v is not a multiple of step %v", models.ErrConfiguration, horizon, step)
	}

	times := make([]float64, n+1)
	for i := range times {
		// i·step rather than repeated addition, so no drift accumulates.
		times[i] = float64(i) * step
	}
	return &Grid{step: step, times: times}, nil
}

// Step returns the uniform step size.
func (g *Grid) Step() float64 { return g.step }

// Len returns the number of time points.
func (g *Grid) Len() int { return len(g.times) }

// NumberOfSteps returns Len()-1.
func (g *Grid) NumberOfSteps() int { return len(g.times) - 1 }

// Time returns t_i.
func (g *Grid) Time(i int) float64 { return g.times[i] }

// Horizon returns the last time point.
func (g *Grid) Horizon() float64 { return g.times[len(g.times)-1] }

// Times returns a copy of the time points.
func (g *Grid) Times() []float64 {
	out := make([]float64, len(g.times))
	copy(out, g.times)
	return out
}

// IndexOf returns i with |t_i - t| <= Tolerance, or -1 if t is not a grid point.
func (g *Grid) IndexOf(t float64) int {
	i := g.PrecedingIndex(t + Tolerance)
	if i < 0 {
		return -1
	}
	if math.Abs(g.times[i]-t) <= Tolerance {
		return i
	}
	return -1
}

// PrecedingIndex returns the largest i with t_i <= t, or -1 when t < 0.
// Times beyond the horizon map to the last index.
func (g *Grid) PrecedingIndex(t float64) int {
	if t < 0 {
		return -1
	}
	i := int(math.Floor(t / g.step))
	if i >= len(g.times) {
		return len(g.times) - 1
	}
	// t/step may round either way; settle on the exact bracket.
	for i > 0 && g.times[i] > t {
		i--
	}
	for i+1 < len(g.times) && g.times[i+1] <= t {
		i++
	}
	return i
}

// Contains reports whether every point of other lies on g.
func (g *Grid) Contains(other *Grid) bool {
	for _, t := range other.times {
		if g.IndexOf(t) < 0 {
			return false
		}
	}
	return true
}

package montecarlo

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// accumulator keeps a running mean and sum of squared deviations (Welford).
type accumulator struct {
	count int
	mean  float64
	m2    float64
}

func (a *accumulator) add(x float64) {
	a.count++
	d := x - a.mean
	a.mean += d / float64(a.count)
	a.m2 += d * (x - a.mean)
}

// merge folds b into a (Chan et al. pairwise update).
func (a *accumulator) merge(b accumulator) {
	if b.count == 0 {
		return
	}
	if a.count == 0 {
		*a = b
		return
	}
	n := a.count + b.count
	d := b.mean - a.mean
	a.mean += d * float64(b.count) / float64(n)
	a.m2 += b.m2 + d*d*float64(a.count)*float64(b.count)/float64(n)
	a.count = n
}

// variance is the unbiased sample variance.
func (a accumulator) variance() float64 {
	if a.count < 2 {
		return 0
	}
	return a.m2 / float64(a.count-1)
}

// standardError returns sample std / √n.
func (a accumulator) standardError() float64 {
	if a.count < 2 {
		return 0
	}
	return stat.StdErr(math.Sqrt(a.variance()), float64(a.count))
}

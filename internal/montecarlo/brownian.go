package montecarlo

import (
	"golang.org/x/exp/rand"
)

// Generator produces standard normal variates.
type Generator interface {
	NormFloat64() float64
}

// GeneratorFactory returns a generator seeded with seed. Factories must be
// deterministic: equal seeds yield equal sequences.
type GeneratorFactory func(seed uint64) Generator

// PCGGenerator is the default factory, a PCG source from golang.org/x/exp/rand.
func PCGGenerator(seed uint64) Generator {
	return rand.New(rand.NewSource(seed))
}

// Driver hands out one independent stream of draws per path. The stream of
// path p depends only on (seed, p), never on which worker evaluates it.
type Driver struct {
	seed    uint64
	factors int
	factory GeneratorFactory
}

// NewDriver creates a driver for the given Brownian dimension.
func NewDriver(seed uint64, factors int, factory GeneratorFactory) *Driver {
	if factory == nil {
		factory = PCGGenerator
	}
	return &Driver{seed: seed, factors: factors, factory: factory}
}

// NumberOfFactors returns the number of draws per step.
func (d *Driver) NumberOfFactors() int { return d.factors }

// Stream returns the draws of one path.
func (d *Driver) Stream(pathIndex int) *Stream {
	return &Stream{gen: d.factory(PathSeed(d.seed, pathIndex)), factors: d.factors}
}

// Stream yields increments of a standard Brownian motion, in units of √Δt.
type Stream struct {
	gen     Generator
	factors int
}

// Next fills dst with one draw per factor and returns it.
func (s *Stream) Next(dst []float64) []float64 {
	if cap(dst) < s.factors {
		dst = make([]float64, s.factors)
	}
	dst = dst[:s.factors]
	for k := range dst {
		dst[k] = s.gen.NormFloat64()
	}
	return dst
}

// PathSeed derives the seed of a path with a splitmix64 step.
func PathSeed(seed uint64, pathIndex int) uint64 {
	z := seed + uint64(pathIndex+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

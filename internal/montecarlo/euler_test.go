package montecarlo

import (
	"errors"
	"math"
	"testing"

	"github.com/seenimoa/lmmarrears/pkg/models"
)

func TestEvolveFreezesFixedRates(t *testing.T) {
	m := testModel(t, models.MeasureSpot, defaultVol)
	scheme := NewEulerScheme(m)
	path := m.NewPath()
	if err := scheme.Evolve(NewDriver(3, m.NumberOfFactors(), nil).Stream(0), path, nil); err != nil {
		t.Fatalf("Evolve() error: %v", err)
	}

	for i := 0; i < m.NumberOfComponents(); i++ {
		fixIndex := m.TenorSimulationIndex(i)
		for j := fixIndex + 1; j < path.NumberOfTimes(); j++ {
			if path.Rate(j, i) != path.Rate(fixIndex, i) {
				t.Errorf("L_%d moved after fixing: t_%d %v vs %v", i, j, path.Rate(j, i), path.Rate(fixIndex, i))
				break
			}
		}
	}
	if path.Rate(path.NumberOfTimes()-1, 0) != m.InitialForward(0) {
		t.Errorf("L_0 changed although it fixes at t=0")
	}
}

func TestEvolveOneStepByHand(t *testing.T) {
	m := testModel(t, models.MeasureTerminal, defaultVol)
	scheme := NewEulerScheme(m)
	path := m.NewPath()
	gen := func(uint64) Generator { return constGenerator(1) }
	if err := scheme.Evolve(NewDriver(1, m.NumberOfFactors(), gen).Stream(0), path, nil); err != nil {
		t.Fatalf("Evolve() error: %v", err)
	}

	l0 := m.InitialForwards()
	dt := m.SimulationGrid().Time(1)
	drift, _ := m.Drift(0, l0, nil, nil)
	i := 2
	loading := m.FactorLoading(0, i, l0, nil)
	var diffusion float64
	for _, f := range loading {
		diffusion += f
	}
	want := l0[i] + drift[i]*dt + diffusion*math.Sqrt(dt)
	if got := path.Rate(1, i); math.Abs(got-want) > 1e-15 {
		t.Errorf("L_%d(t_1): got %v, want %v", i, got, want)
	}
}

func TestEvolveConsumesDrawsEveryStep(t *testing.T) {
	m := testModel(t, models.MeasureSpot, defaultVol)
	counter := &countingGenerator{}
	d := NewDriver(1, m.NumberOfFactors(), func(uint64) Generator { return counter })
	if err := NewEulerScheme(m).Evolve(d.Stream(0), m.NewPath(), nil); err != nil {
		t.Fatalf("Evolve() error: %v", err)
	}
	want := m.SimulationGrid().NumberOfSteps() * m.NumberOfFactors()
	if counter.n != want {
		t.Errorf("draws: got %d, want %d", counter.n, want)
	}
}

type countingGenerator struct{ n int }

func (c *countingGenerator) NormFloat64() float64 {
	c.n++
	return 0
}

func TestEvolveExplodingPathIsUnstable(t *testing.T) {
	m := testModel(t, models.MeasureSpot, defaultVol)
	// One huge shock on the first factor of the first step; finite, but far
	// beyond any plausible rate.
	gen := func(uint64) Generator { return &shockGenerator{shock: 1e7} }
	err := NewEulerScheme(m).Evolve(NewDriver(1, m.NumberOfFactors(), gen).Stream(0), m.NewPath(), nil)
	if !errors.Is(err, models.ErrNumericalInstability) {
		t.Errorf("Evolve(): got %v, want ErrNumericalInstability", err)
	}
}

// ═══ Test Helpers ═══

// shockGenerator returns shock once, then zeros.
type shockGenerator struct {
	shock float64
	used  bool
}

func (g *shockGenerator) NormFloat64() float64 {
	if g.used {
		return 0
	}
	g.used = true
	return g.shock
}

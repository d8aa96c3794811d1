package analytic

import (
	"errors"
	"math"
	"testing"

	"github.com/seenimoa/lmmarrears/internal/covariance"
	"github.com/seenimoa/lmmarrears/internal/curve"
	"github.com/seenimoa/lmmarrears/internal/lmm"
	"github.com/seenimoa/lmmarrears/internal/timegrid"
	"github.com/seenimoa/lmmarrears/pkg/models"
)

func TestLiborInArrearsFormula(t *testing.T) {
	got := LiborInArrears(0.05, 0.04, 2, 2.5, 0.9, 0.92)
	want := (0.92 - 0.9) + 0.9*0.25*0.0025*math.Exp(0.08)
	if math.Abs(got-want) > 1e-15 {
		t.Errorf("LiborInArrears: got %v, want %v", got, want)
	}
}

func TestLiborInArrearsZeroVarianceIsDiscountedForward(t *testing.T) {
	// With P(T_i)/P(T_{i+1}) = 1 + δL0 the unadjusted price is P(T_i)·δ·L0.
	l0, delta, dfFix := 0.05, 0.5, 0.95
	dfEnd := dfFix / (1 + delta*l0)
	got := LiborInArrears(l0, 0, 1, 1+delta, dfEnd, dfFix)
	want := dfFix * delta * l0
	if math.Abs(got-want) > 1e-15 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestConvexityAdjustedFirstPeriod(t *testing.T) {
	m := testModel(t, 0.2)
	got, err := ConvexityAdjusted(m, 0, 1000)
	if err != nil {
		t.Fatalf("ConvexityAdjusted() error: %v", err)
	}
	want := 1000 * 0.5 * m.InitialForward(0)
	if got != want {
		t.Errorf("T_0 period: got %v, want %v", got, want)
	}
}

func TestConvexityAdjustmentIsPositive(t *testing.T) {
	flat := testModel(t, 0)
	vol := testModel(t, 0.2)
	for i := 1; i < flat.NumberOfComponents(); i++ {
		base, _ := ConvexityAdjusted(flat, i, 1)
		adjusted, _ := ConvexityAdjusted(vol, i, 1)
		wantBase := flat.DiscountAtTenor(i) * flat.PeriodLength(i) * flat.InitialForward(i)
		if math.Abs(base-wantBase) > 1e-15 {
			t.Errorf("period %d zero vol: got %v, want %v", i, base, wantBase)
		}
		if adjusted <= base {
			t.Errorf("period %d: adjusted %v not above unadjusted %v", i, adjusted, base)
		}
	}
}

func TestConvexityAdjustedUsesIntegratedVariance(t *testing.T) {
	m := testModel(t, 0.2)
	// Flat σ = 0.2: variance per unit time is 0.04 for every fixing.
	got, _ := ConvexityAdjusted(m, 4, 1)
	want := LiborInArrears(m.InitialForward(4), 0.04, 2, 2.5, m.DiscountAtTenor(5), m.DiscountAtTenor(4))
	if math.Abs(got-want) > 1e-14 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestConvexityAdjustedBadIndex(t *testing.T) {
	m := testModel(t, 0.2)
	for _, i := range []int{-1, m.NumberOfComponents()} {
		if _, err := ConvexityAdjusted(m, i, 1); !errors.Is(err, models.ErrConfiguration) {
			t.Errorf("index %d: got %v, want ErrConfiguration", i, err)
		}
	}
}

func TestTable(t *testing.T) {
	m := testModel(t, 0.2)
	values, err := Table(m, 1000)
	if err != nil {
		t.Fatalf("Table() error: %v", err)
	}
	if len(values) != m.NumberOfComponents() {
		t.Fatalf("Table: got %d rows, want %d", len(values), m.NumberOfComponents())
	}
	for i, v := range values {
		want, _ := ConvexityAdjusted(m, i, 1000)
		if v != want {
			t.Errorf("row %d: got %v, want %v", i, v, want)
		}
	}
}

// ═══ Test Helpers ═══

func testModel(t *testing.T, volLevel float64) *lmm.Model {
	t.Helper()
	sim, _ := timegrid.NewUniform(0.1, 3)
	tenor, _ := timegrid.NewUniform(0.5, 3)
	market, err := curve.NewMarket([]float64{0.5, 1, 2, 3}, []float64{0.05, 0.05, 0.05, 0.05}, 0.5, models.ExtrapolationConstant)
	if err != nil {
		t.Fatalf("market: %v", err)
	}
	l0, err := lmm.InitialForwards(tenor, market)
	if err != nil {
		t.Fatalf("initial forwards: %v", err)
	}
	vol, _ := covariance.NewVolatilityStructure(covariance.VolatilityParams{D: volLevel}, sim, tenor, models.DynamicsLognormal)
	corr, _ := covariance.NewExponentialDecayCorrelation(0.5, tenor)
	cov, err := covariance.NewModel(sim, vol, corr, models.DynamicsLognormal, l0)
	if err != nil {
		t.Fatalf("covariance: %v", err)
	}
	m, err := lmm.New(lmm.Options{SimulationGrid: sim, TenorGrid: tenor, Curve: market, Covariance: cov, Measure: models.MeasureTerminal})
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	return m
}

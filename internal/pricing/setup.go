// Package pricing wires configuration into the LIBOR market model and runs
// the in-arrears comparison across measures against the analytic oracle.
package pricing

import (
	"fmt"

	"github.com/seenimoa/lmmarrears/internal/config"
	"github.com/seenimoa/lmmarrears/internal/covariance"
	"github.com/seenimoa/lmmarrears/internal/curve"
	"github.com/seenimoa/lmmarrears/internal/lmm"
	"github.com/seenimoa/lmmarrears/internal/product"
	"github.com/seenimoa/lmmarrears/internal/timegrid"
	"github.com/seenimoa/lmmarrears/pkg/models"
)

// Setup holds the measure-independent pieces built from a configuration.
type Setup struct {
	Config         *config.Config
	SimulationGrid *timegrid.Grid
	TenorGrid      *timegrid.Grid
	Market         *curve.Market
	Dynamics       models.Dynamics
	Covariance     *covariance.Model
}

// NewSetup validates cfg and builds grids, curves and the covariance model.
func NewSetup(cfg *config.Config) (*Setup, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	simGrid, err := timegrid.NewUniform(cfg.Simulation.TimeStep, cfg.Tenor.Horizon)
	if err != nil {
		return nil, fmt.Errorf("simulation grid: %w", err)
	}
	tenorGrid, err := timegrid.NewUniform(cfg.Tenor.PeriodLength, cfg.Tenor.Horizon)
	if err != nil {
		return nil, fmt.Errorf("tenor grid: %w", err)
	}

	market, err := curve.NewMarket(cfg.Curve.FixingTimes, cfg.Curve.Forwards, cfg.Tenor.PeriodLength,
		models.Extrapolation(cfg.Curve.Extrapolation))
	if err != nil {
		return nil, fmt.Errorf("curve: %w", err)
	}

	dynamics, err := models.ParseDynamics(cfg.Model.Dynamics)
	if err != nil {
		return nil, err
	}

	vol, err := covariance.NewVolatilityStructure(covariance.VolatilityParams{
		A:           cfg.Volatility.A,
		B:           cfg.Volatility.B,
		C:           cfg.Volatility.C,
		D:           cfg.Volatility.D,
		NormalScale: cfg.Volatility.NormalScale,
	}, simGrid, tenorGrid, dynamics)
	if err != nil {
		return nil, fmt.Errorf("volatility: %w", err)
	}
	corr, err := covariance.NewExponentialDecayCorrelation(cfg.Correlation.Decay, tenorGrid)
	if err != nil {
		return nil, fmt.Errorf("correlation: %w", err)
	}
	l0, err := lmm.InitialForwards(tenorGrid, market)
	if err != nil {
		return nil, err
	}
	cov, err := covariance.NewModel(simGrid, vol, corr, dynamics, l0)
	if err != nil {
		return nil, fmt.Errorf("covariance: %w", err)
	}

	return &Setup{
		Config:         cfg,
		SimulationGrid: simGrid,
		TenorGrid:      tenorGrid,
		Market:         market,
		Dynamics:       dynamics,
		Covariance:     cov,
	}, nil
}

// Model builds the LIBOR market model under measure.
func (s *Setup) Model(measure models.Measure) (*lmm.Model, error) {
	m, err := lmm.New(lmm.Options{
		SimulationGrid: s.SimulationGrid,
		TenorGrid:      s.TenorGrid,
		Curve:          s.Market,
		Covariance:     s.Covariance,
		Measure:        measure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s model: %w", measure, err)
	}
	return m, nil
}

// Products returns one in-arrears payment per LIBOR period.
func (s *Setup) Products() ([]product.Product, error) {
	n := s.TenorGrid.NumberOfSteps()
	out := make([]product.Product, n)
	for i := 0; i < n; i++ {
		p, err := product.NewLiborInArrears(s.TenorGrid.Time(i), s.TenorGrid.Time(i+1), s.Config.Product.Notional)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

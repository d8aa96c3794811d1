package pricing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/lmmarrears/internal/analytic"
	"github.com/seenimoa/lmmarrears/internal/config"
	"github.com/seenimoa/lmmarrears/internal/montecarlo"
	"github.com/seenimoa/lmmarrears/internal/recorder"
	"github.com/seenimoa/lmmarrears/pkg/models"
)

// Engine runs comparisons for one Setup.
type Engine struct {
	setup    *Setup
	logger   *slog.Logger
	observer montecarlo.Observer
	recorder recorder.Recorder
	now      func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the engine and simulation logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithObserver forwards simulation events, e.g. to metrics.
func WithObserver(o montecarlo.Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithRecorder persists completed comparisons.
func WithRecorder(r recorder.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// NewEngine creates an engine for setup.
func NewEngine(setup *Setup, opts ...Option) *Engine {
	e := &Engine{
		setup:    setup,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		recorder: recorder.NewNoopRecorder(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ────────────────────────────────────────────────────────────────────
// Analytic table
// ────────────────────────────────────────────────────────────────────

// Analytic returns the comparison rows with only the oracle filled in.
func (e *Engine) Analytic() ([]models.ComparisonRow, error) {
	// The oracle only reads curve and covariance; the measure is irrelevant.
	m, err := e.setup.Model(models.MeasureTerminal)
	if err != nil {
		return nil, err
	}
	values, err := analytic.Table(m, e.setup.Config.Product.Notional)
	if err != nil {
		return nil, err
	}

	tenor := e.setup.TenorGrid
	rows := make([]models.ComparisonRow, len(values))
	for i, v := range values {
		rows[i] = models.ComparisonRow{
			PeriodIndex: i,
			PeriodStart: tenor.Time(i),
			PeriodEnd:   tenor.Time(i + 1),
			Analytic:    v,
		}
	}
	return rows, nil
}

// ────────────────────────────────────────────────────────────────────
// Comparison
// ────────────────────────────────────────────────────────────────────

// Compare prices every in-arrears period under each measure concurrently and
// attaches the analytic value. A failing measure does not stop the others;
// the comparison holds whatever completed and the error joins every failure.
func (e *Engine) Compare(ctx context.Context, measures []models.Measure) (*models.Comparison, error) {
	if len(measures) == 0 {
		return nil, fmt.Errorf("%w: no measures requested", models.ErrConfiguration)
	}
	rows, err := e.Analytic()
	if err != nil {
		return nil, err
	}
	cfg := e.setup.Config
	comparison := &models.Comparison{
		RunID:     uuid.NewString(),
		Dynamics:  e.setup.Dynamics,
		Notional:  cfg.Product.Notional,
		Seed:      cfg.Simulation.Seed,
		Rows:      rows,
		CreatedAt: e.now().UTC(),
	}
	logger := e.logger.With("run_id", comparison.RunID)
	logger.Info("comparison started",
		"measures", measures,
		"dynamics", e.setup.Dynamics,
		"paths", cfg.Simulation.Paths,
		"periods", len(rows))

	var (
		mu   sync.Mutex
		errs []error
	)
	diagnostics := make([]*models.Diagnostics, len(measures))

	g, gctx := errgroup.WithContext(ctx)
	for idx, measure := range measures {
		idx, measure := idx, measure // per-iteration copy (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			result, err := e.simulate(gctx, measure, logger)
			if result != nil {
				mu.Lock()
				for i := range result.Estimates {
					est := result.Estimates[i]
					switch measure {
					case models.MeasureTerminal:
						comparison.Rows[i].Terminal = &est
					case models.MeasureSpot:
						comparison.Rows[i].Spot = &est
					}
				}
				d := result.Diagnostics
				diagnostics[idx] = &d
				mu.Unlock()
			}
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", measure, err))
				mu.Unlock()
			}
			return nil // non-fatal, the other measures keep running
		})
	}
	_ = g.Wait()

	for _, d := range diagnostics {
		if d != nil {
			comparison.Diagnostics = append(comparison.Diagnostics, *d)
		}
	}

	if len(errs) > 0 {
		return comparison, errors.Join(errs...)
	}

	if err := e.record(ctx, comparison); err != nil {
		logger.Warn("run not recorded", "error", err)
	}
	logger.Info("comparison completed")
	return comparison, nil
}

func (e *Engine) simulate(ctx context.Context, measure models.Measure, logger *slog.Logger) (*montecarlo.Result, error) {
	model, err := e.setup.Model(measure)
	if err != nil {
		return nil, err
	}
	products, err := e.setup.Products()
	if err != nil {
		return nil, err
	}

	s := e.setup.Config.Simulation
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	opts := []montecarlo.Option{montecarlo.WithLogger(logger)}
	if e.observer != nil {
		opts = append(opts, montecarlo.WithObserver(e.observer))
	}
	sim, err := montecarlo.NewSimulation(model, montecarlo.Settings{
		Paths:               s.Paths,
		Seed:                uint64(s.Seed),
		Workers:             workers,
		BatchSize:           s.BatchSize,
		MaxUnstableFraction: s.MaxUnstableFraction,
		RetainPathValues:    s.RetainPathValues,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return sim.Run(ctx, 0, products)
}

func (e *Engine) record(ctx context.Context, comparison *models.Comparison) error {
	fingerprint, err := config.Fingerprint(e.setup.Config)
	if err != nil {
		return err
	}
	return e.recorder.RecordRun(ctx, &recorder.RunSummary{Comparison: comparison, Fingerprint: fingerprint})
}

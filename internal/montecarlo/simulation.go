// Package montecarlo runs the LIBOR market model simulation: per-path
// Brownian streams, the Euler scheme, and a batched worker pool whose result
// does not depend on the number of workers.
package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/lmmarrears/internal/lmm"
	"github.com/seenimoa/lmmarrears/internal/product"
	"github.com/seenimoa/lmmarrears/pkg/models"
)

// DefaultBatchSize applies when Settings.BatchSize is zero.
const DefaultBatchSize = 500

// Settings control a simulation run.
type Settings struct {
	Paths               int
	Seed                uint64
	Workers             int
	BatchSize           int
	MaxUnstableFraction float64
	// RetainPathValues keeps every accepted path value in the Result.
	RetainPathValues bool
	Generator        GeneratorFactory
}

// Observer receives batch and run events, e.g. for metrics.
type Observer interface {
	BatchCompleted(measure models.Measure, accepted, unstable int)
	RunCompleted(measure models.Measure, duration time.Duration)
}

// Result is the outcome of Run.
type Result struct {
	Estimates   []models.Estimate
	Diagnostics models.Diagnostics
	// PathValues[p] holds the accepted path values of product p in path
	// order. Empty unless Settings.RetainPathValues.
	PathValues [][]float64
}

// Simulation is safe to Run concurrently.
type Simulation struct {
	model    *lmm.Model
	scheme   *EulerScheme
	driver   *Driver
	settings Settings
	logger   *slog.Logger
	observer Observer
}

// Option customises a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger used for run summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulation) { s.logger = logger }
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(s *Simulation) { s.observer = o }
}

// NewSimulation validates settings and binds them to a model.
func NewSimulation(model *lmm.Model, settings Settings, opts ...Option) (*Simulation, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: simulation needs a model", models.ErrConfiguration)
	}
	if settings.Paths <= 0 {
		return nil, fmt.Errorf("%w: paths must be positive, got %d", models.ErrConfiguration, settings.Paths)
	}
	if settings.Workers <= 0 {
		settings.Workers = 1
	}
	if settings.BatchSize <= 0 {
		settings.BatchSize = DefaultBatchSize
	}
	if settings.MaxUnstableFraction < 0 || settings.MaxUnstableFraction > 1 {
		return nil, fmt.Errorf("%w: max unstable fraction %v outside [0, 1]", models.ErrConfiguration, settings.MaxUnstableFraction)
	}

	s := &Simulation{
		model:    model,
		scheme:   NewEulerScheme(model),
		driver:   NewDriver(settings.Seed, model.NumberOfFactors(), settings.Generator),
		settings: settings,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Model returns the simulated model.
func (s *Simulation) Model() *lmm.Model { return s.model }

// batchResult is owned by one batch until Wait returns.
type batchResult struct {
	done     bool
	acc      []accumulator
	values   [][]float64
	unstable int
}

// ════════════════════════════════════════════════════════════════════
// Run
// ════════════════════════════════════════════════════════════════════

// Run simulates all paths and values every product at evaluationTime. Paths
// are cut into fixed batches that run on at most Settings.Workers goroutines;
// batch results are merged in batch order, so the estimate is bit-identical
// for any worker count. When ctx is cancelled the merged result of the
// completed batches is returned together with ctx.Err().
func (s *Simulation) Run(ctx context.Context, evaluationTime float64, products []product.Product) (*Result, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: no products to value", models.ErrConfiguration)
	}
	start := time.Now()
	measure := s.model.Measure()

	batchSize := s.settings.BatchSize
	numBatches := (s.settings.Paths + batchSize - 1) / batchSize
	results := make([]batchResult, numBatches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Workers)
	for b := 0; b < numBatches; b++ {
		if gctx.Err() != nil {
			break
		}
		first := b * batchSize
		b := b // per-iteration copy (pre-Go 1.22 loop semantics)
		last := min(first+batchSize, s.settings.Paths)
		g.Go(func() error {
			res, err := s.runBatch(gctx, evaluationTime, products, first, last)
			if err != nil {
				return err
			}
			results[b] = res
			if s.observer != nil {
				s.observer.BatchCompleted(measure, last-first-res.unstable, res.unstable)
			}
			return nil
		})
	}
	waitErr := g.Wait()

	result := s.reduce(evaluationTime, products, results)
	result.Diagnostics.Measure = measure
	result.Diagnostics.Duration = time.Since(start)
	if s.observer != nil {
		s.observer.RunCompleted(measure, result.Diagnostics.Duration)
	}

	if err := ctx.Err(); err != nil {
		result.Diagnostics.Partial = true
		s.logger.Warn("simulation cancelled",
			"measure", measure,
			"completed_batches", result.Diagnostics.Batches,
			"batches", numBatches,
			"accepted_paths", result.Diagnostics.AcceptedPaths)
		return result, err
	}
	if waitErr != nil {
		return result, waitErr
	}

	d := result.Diagnostics
	if d.Paths > 0 && float64(d.UnstablePaths)/float64(d.Paths) > s.settings.MaxUnstableFraction {
		return result, fmt.Errorf("%w: %d of %d paths unstable (limit %.4g)",
			models.ErrNumericalInstability, d.UnstablePaths, d.Paths, s.settings.MaxUnstableFraction)
	}

	s.logger.Info("simulation completed",
		"measure", measure,
		"paths", d.Paths,
		"unstable_paths", d.UnstablePaths,
		"batches", d.Batches,
		"duration", d.Duration)
	return result, nil
}

func (s *Simulation) runBatch(ctx context.Context, evaluationTime float64, products []product.Product, first, last int) (batchResult, error) {
	res := batchResult{acc: make([]accumulator, len(products))}
	if s.settings.RetainPathValues {
		res.values = make([][]float64, len(products))
	}

	path := s.model.NewPath()
	ws := newWorkspace(s.model.NumberOfComponents(), s.model.NumberOfFactors())
	pathValues := make([]float64, len(products))

	for p := first; p < last; p++ {
		if err := ctx.Err(); err != nil {
			return batchResult{}, err
		}

		err := s.evaluatePath(p, evaluationTime, products, path, ws, pathValues)
		if errors.Is(err, models.ErrNumericalInstability) {
			res.unstable++
			s.logger.Debug("path discarded", "path", p, "error", err)
			continue
		}
		if err != nil {
			return batchResult{}, fmt.Errorf("path %d: %w", p, err)
		}

		for i, v := range pathValues {
			res.acc[i].add(v)
			if res.values != nil {
				res.values[i] = append(res.values[i], v)
			}
		}
	}
	res.done = true
	return res, nil
}

func (s *Simulation) evaluatePath(pathIndex int, evaluationTime float64, products []product.Product, path *lmm.Path, ws *workspace, out []float64) error {
	stream := s.driver.Stream(pathIndex)
	if err := s.scheme.Evolve(stream, path, ws); err != nil {
		return err
	}
	for i, prod := range products {
		v, err := prod.Value(evaluationTime, s.model, path)
		if err != nil {
			return err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s value %v", models.ErrNumericalInstability, prod.Name(), v)
		}
		out[i] = v
	}
	return nil
}

func (s *Simulation) reduce(evaluationTime float64, products []product.Product, results []batchResult) *Result {
	acc := make([]accumulator, len(products))
	result := &Result{}
	if s.settings.RetainPathValues {
		result.PathValues = make([][]float64, len(products))
	}

	var d models.Diagnostics
	for _, r := range results {
		if !r.done {
			continue
		}
		d.Batches++
		d.UnstablePaths += r.unstable
		for i := range acc {
			acc[i].merge(r.acc[i])
			if result.PathValues != nil {
				result.PathValues[i] = append(result.PathValues[i], r.values[i]...)
			}
		}
	}
	if len(acc) > 0 {
		d.AcceptedPaths = acc[0].count
	}
	d.Paths = d.AcceptedPaths + d.UnstablePaths

	result.Estimates = make([]models.Estimate, len(products))
	for i, prod := range products {
		result.Estimates[i] = models.Estimate{
			Product:        prod.Name(),
			EvaluationTime: evaluationTime,
			Value:          acc[i].mean,
			StandardError:  acc[i].standardError(),
			Paths:          acc[i].count,
		}
	}
	result.Diagnostics = d
	return result
}

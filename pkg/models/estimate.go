package models

import (
	"math"
	"time"
)

// --- Simulation output ---

// Estimate is a Monte Carlo price for one product at one evaluation time.
type Estimate struct {
	Product        string  `json:"product"`
	EvaluationTime float64 `json:"evaluation_time"`
	Value          float64 `json:"value"`
	StandardError  float64 `json:"standard_error"`
	Paths          int     `json:"paths"`
}

// Diagnostics summarises a simulation run.
type Diagnostics struct {
	Measure       Measure       `json:"measure"`
	Paths         int           `json:"paths"`          // simulated: accepted + unstable
	AcceptedPaths int           `json:"accepted_paths"` // contributed to the estimates
	UnstablePaths int           `json:"unstable_paths"` // discarded (drift singularity)
	Batches       int           `json:"batches"`        // completed
	Partial       bool          `json:"partial"`        // cancelled before all batches ran
	Duration      time.Duration `json:"duration"`
}

// --- Comparison table ---

// ComparisonRow holds simulated and analytic prices for one LIBOR period.
type ComparisonRow struct {
	PeriodIndex int     `json:"period_index"`
	PeriodStart float64 `json:"period_start"` // T_i (fixing = payment)
	PeriodEnd   float64 `json:"period_end"`   // T_{i+1}

	Terminal *Estimate `json:"terminal,omitempty"`
	Spot     *Estimate `json:"spot,omitempty"`
	Analytic float64   `json:"analytic"`
}

// RelativeDifference returns |estimate - analytic| / analytic. It is NaN when
// the estimate is missing.
func (r ComparisonRow) RelativeDifference(e *Estimate) float64 {
	if e == nil {
		return math.NaN()
	}
	return math.Abs(e.Value-r.Analytic) / r.Analytic
}

// Comparison is the result of pricing every in-arrears period under the
// configured measures.
type Comparison struct {
	RunID       string          `json:"run_id"`
	Dynamics    Dynamics        `json:"dynamics"`
	Notional    float64         `json:"notional"`
	Seed        int64           `json:"seed"`
	Rows        []ComparisonRow `json:"rows"`
	Diagnostics []Diagnostics   `json:"diagnostics"`
	CreatedAt   time.Time       `json:"created_at"`
}

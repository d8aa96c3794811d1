// Package recorder persists run summaries (never simulated paths) for later
// comparison across seeds and configurations.
package recorder

import (
	"context"
	"time"

	"github.com/seenimoa/lmmarrears/pkg/models"
)

// RunSummary is everything recorded about one comparison run.
type RunSummary struct {
	Comparison  *models.Comparison
	Fingerprint string // config hash
}

// RunInfo is a row of the run index.
type RunInfo struct {
	RunID       string
	CreatedAt   time.Time
	Fingerprint string
	Dynamics    models.Dynamics
	Seed        int64
	Periods     int
}

// Recorder persists run summaries.
type Recorder interface {
	RecordRun(ctx context.Context, run *RunSummary) error
	ListRuns(ctx context.Context, limit int) ([]RunInfo, error)
	Close() error
}

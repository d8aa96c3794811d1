package recorder

import "context"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(context.Context, *RunSummary) error { return nil }

func (n *NoopRecorder) ListRuns(context.Context, int) ([]RunInfo, error) { return nil, nil }

func (n *NoopRecorder) Close() error { return nil }

package auditagent

import (
	"context"
	"time"
)

// ResultSink receives every emitted row batch. Implementations must make one
// Write call atomic with respect to concurrent Write calls from other
// workers: a device's rows are never interleaved with another device's, and
// their relative order is preserved. The header, when the format has one, is
// written once at construction, before any worker starts.
type ResultSink interface {
	Write(ctx context.Context, rows []Row) error
	Close() error
	Name() string
}

// ProgressRecorder observes completed-unit counts. Advance is called exactly
// once per finished device, from worker goroutines; implementations guard
// their own state.
type ProgressRecorder interface {
	Advance(n int)
	Finish()
}

// RunRecord describes one audit run for the history store.
type RunRecord struct {
	RunID        string
	HostID       string
	AgentVersion string
	DeviceCount  int
	StartedAt    time.Time
}

// RunUpdate describes the terminal state of a run.
type RunUpdate struct {
	OKCount      int
	FailedCount  int
	FinishedAt   time.Time
	ErrorMessage string
}

// RunRecorder persists run lifecycle state. Recorder failures are logged and
// never fail the audit itself.
type RunRecorder interface {
	CreateRun(ctx context.Context, rec *RunRecord) error
	FinishRun(ctx context.Context, runID string, upd *RunUpdate) error
}

type noopProgress struct{}

func (noopProgress) Advance(int) {}
func (noopProgress) Finish()     {}

type noopRunRecorder struct{}

func (noopRunRecorder) CreateRun(context.Context, *RunRecord) error         { return nil }
func (noopRunRecorder) FinishRun(context.Context, string, *RunUpdate) error { return nil }

package auditagent

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config is the complete run configuration for an AuditPool. Everything the
// pool and its workers need is carried here; the pool keeps no process-wide
// state.
type Config struct {
	// Workers caps the pool size; the effective count is clamped to the
	// device count so no worker ever idles against an empty queue.
	Workers int
	// Timeout bounds each device's session establishment and command I/O.
	Timeout     time.Duration
	Credentials Credentials
	Provider    SessionProvider
	Sink        ResultSink
	// Progress observes completed-device counts; nil disables it.
	Progress ProgressRecorder
	// Runs persists run lifecycle records; nil disables history.
	Runs         RunRecorder
	AgentVersion string
	// Logger carries the run's logger; nil selects the global logger.
	Logger *zerolog.Logger
}

// RunSummary reports the outcome of one audit run.
type RunSummary struct {
	RunID   string
	Total   int
	OK      int
	Failed  int
	Elapsed time.Duration
}

// AuditPool drains a device queue with a bounded worker pool, auditing each
// device exactly once and aggregating rows through the configured sink.
type AuditPool struct {
	cfg      Config
	provider SessionProvider
	sink     ResultSink
	progress ProgressRecorder
	runs     RunRecorder
	log      zerolog.Logger
	hostID   string
}

// NewAuditPool builds a pool with the provided configuration, applying
// defaults for anything unset.
func NewAuditPool(cfg Config) (*AuditPool, error) {
	if cfg.Provider == nil {
		return nil, errors.New("session provider cannot be nil")
	}
	if cfg.Sink == nil {
		return nil, errors.New("result sink cannot be nil")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.AgentVersion == "" {
		cfg.AgentVersion = AgentVersion
	}

	pool := &AuditPool{
		cfg:      cfg,
		provider: cfg.Provider,
		sink:     cfg.Sink,
		progress: cfg.Progress,
		runs:     cfg.Runs,
	}
	if pool.progress == nil {
		pool.progress = noopProgress{}
	}
	if pool.runs == nil {
		pool.runs = noopRunRecorder{}
	}
	if cfg.Logger != nil {
		pool.log = *cfg.Logger
	} else {
		pool.log = log.Logger
	}
	// cache host id for run records; ignore error silently
	if id, err := hostID(); err == nil {
		pool.hostID = id
	}
	return pool, nil
}

// Run audits every device in the list and blocks until the queue is drained
// and all workers have joined. Each device is attempted exactly once; every
// failure surfaces as a row, never as a Run error. A canceled context does
// not stop the drain: it fails the remaining session operations fast, so
// each leftover device still yields its failure row, and the cancellation
// is reported as the returned error once the run completes.
func (p *AuditPool) Run(ctx context.Context, devices []string) (*RunSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	runID := fmt.Sprintf("audit-%s-%s", start.Format("20060102-150405"), runSuffix())
	summary := &RunSummary{RunID: runID, Total: len(devices)}

	if err := p.runs.CreateRun(ctx, &RunRecord{
		RunID:        runID,
		HostID:       p.hostID,
		AgentVersion: p.cfg.AgentVersion,
		DeviceCount:  len(devices),
		StartedAt:    start,
	}); err != nil {
		p.log.Error().Err(err).Str("run_id", runID).Msg("run recorder create failed")
	}

	workers := p.cfg.Workers
	if workers > len(devices) {
		workers = len(devices)
	}
	queue := newWorkQueue(devices)

	p.log.Info().
		Str("run_id", runID).
		Int("devices", len(devices)).
		Int("workers", workers).
		Msg("audit run starting")

	var okCount, failedCount int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			wlog := p.log.With().Int("worker", n).Logger()
			p.runWorker(ctx, queue, wlog, &okCount, &failedCount)
		}(i + 1)
	}

	queue.waitUntilDrained()
	wg.Wait()
	p.progress.Finish()

	summary.OK = int(atomic.LoadInt64(&okCount))
	summary.Failed = int(atomic.LoadInt64(&failedCount))
	summary.Elapsed = time.Since(start)

	if err := p.runs.FinishRun(context.Background(), runID, &RunUpdate{
		OKCount:      summary.OK,
		FailedCount:  summary.Failed,
		FinishedAt:   time.Now(),
		ErrorMessage: errString(ctx.Err()),
	}); err != nil {
		p.log.Error().Err(err).Str("run_id", runID).Msg("run recorder finish failed")
	}

	p.log.Info().
		Str("run_id", runID).
		Int("ok", summary.OK).
		Int("failed", summary.Failed).
		Dur("elapsed", summary.Elapsed).
		Msg("audit run complete")
	return summary, ctx.Err()
}

// runWorker loops "pop device, audit, emit rows, advance progress, mark
// done" until the queue reports empty.
func (p *AuditPool) runWorker(ctx context.Context, queue *workQueue, wlog zerolog.Logger, okCount, failedCount *int64) {
	for {
		deviceID, more := queue.tryPop()
		if !more {
			return
		}
		dlog := wlog.With().Str("device", deviceID).Logger()
		rows := p.auditDevice(ctx, deviceID, dlog)
		if len(rows) == 0 {
			// every device yields at least one row
			rows = []Row{errorRow(deviceID, errors.New("device task produced no rows"))}
		}
		if err := p.sink.Write(ctx, rows); err != nil {
			dlog.Error().Err(err).Str("sink", p.sink.Name()).Msg("result sink write failed")
		}
		if rows[0].OK() {
			atomic.AddInt64(okCount, 1)
		} else {
			atomic.AddInt64(failedCount, 1)
		}
		p.progress.Advance(1)
		queue.markDone()
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// runSuffix disambiguates runs started within the same second, so two run
// ids never collide in the history store.
func runSuffix() string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%06d", os.Getpid()%1000000)
	}
	return hex.EncodeToString(buf)
}

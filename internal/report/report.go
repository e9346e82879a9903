// Package report aggregates audit rows into the CSV report and its optional
// mirrors: a JSONL stream and a SQLite history database that also records
// run lifecycles.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	auditagent "github.com/netaudit/AuditAgent"
	pkgerrors "github.com/pkg/errors"
)

// Config controls enabled sinks.
type Config struct {
	// CSVPath is the primary report target; empty disables it.
	CSVPath string
	// JSONLPath mirrors rows as JSON lines when set.
	JSONLPath string
	// DisableHistory skips the SQLite history mirror.
	DisableHistory bool
	// HistoryPath overrides the SQLite history location.
	HistoryPath string
}

// Manager fans rows out to every configured sink.
type Manager struct {
	sinks []auditagent.ResultSink
	name  string
	runs  auditagent.RunRecorder
}

// NewManager builds a report manager based on cfg.
func NewManager(cfg Config) (*Manager, error) {
	sinks := make([]auditagent.ResultSink, 0, 3)
	if strings.TrimSpace(cfg.CSVPath) != "" {
		csvSink, err := newCSVSink(cfg.CSVPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, csvSink)
	}
	if strings.TrimSpace(cfg.JSONLPath) != "" {
		jsonl, err := newJSONLSink(cfg.JSONLPath)
		if err != nil {
			closeSinks(sinks)
			return nil, err
		}
		sinks = append(sinks, jsonl)
	}
	var runs auditagent.RunRecorder
	if !historyDisabled(cfg) {
		history, err := newHistorySink(cfg.HistoryPath)
		if err != nil {
			closeSinks(sinks)
			return nil, err
		}
		sinks = append(sinks, history)
		runs = history
	}
	if len(sinks) == 0 {
		return nil, pkgerrors.New("report: no sinks enabled")
	}
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	return &Manager{sinks: sinks, name: strings.Join(names, ","), runs: runs}, nil
}

func historyDisabled(cfg Config) bool {
	if cfg.DisableHistory {
		return true
	}
	val := strings.TrimSpace(os.Getenv(auditagent.EnvDisableHistory))
	return strings.EqualFold(val, "1") || strings.EqualFold(val, "true")
}

// Runs returns the run recorder backed by the history mirror, or nil when
// history is disabled.
func (m *Manager) Runs() auditagent.RunRecorder {
	if m == nil {
		return nil
	}
	return m.runs
}

// Write delivers one device's rows to every sink.
func (m *Manager) Write(ctx context.Context, rows []auditagent.Row) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Write(ctx, rows); err != nil {
			errs = append(errs, pkgerrors.Wrap(err, fmt.Sprintf("%s write failed", sink.Name())))
		}
	}
	return errors.Join(errs...)
}

// Close flushes and closes every sink.
func (m *Manager) Close() error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, pkgerrors.Wrap(err, fmt.Sprintf("%s close failed", sink.Name())))
		}
	}
	return errors.Join(errs...)
}

// Name lists the active sinks.
func (m *Manager) Name() string {
	if m == nil || m.name == "" {
		return "report"
	}
	return m.name
}

func closeSinks(sinks []auditagent.ResultSink) {
	for _, sink := range sinks {
		sink.Close()
	}
}

func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pkgerrors.Wrapf(err, "report: create dir %s failed", dir)
	}
	return nil
}

func ensureParentDir(path string) error {
	return ensureDir(filepath.Dir(path))
}

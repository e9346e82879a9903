package report

import (
	"context"
	"encoding/csv"
	"os"
	"sync"

	auditagent "github.com/netaudit/AuditAgent"
	"github.com/pkg/errors"
)

// csvSink writes the primary audit report. The header row goes out at
// construction, before any worker produces rows.
type csvSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	path   string
}

func newCSVSink(path string) (*csvSink, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "report: create csv file failed")
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(auditagent.Columns); err != nil {
		file.Close()
		return nil, errors.Wrap(err, "report: write csv header failed")
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return nil, errors.Wrap(err, "report: flush csv header failed")
	}
	return &csvSink{file: file, writer: writer, path: path}, nil
}

// Write appends the batch under one lock, so one device's rows never
// interleave with another's.
func (c *csvSink) Write(_ context.Context, rows []auditagent.Row) error {
	if c == nil || c.writer == nil {
		return errors.New("report: csv sink nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, row := range rows {
		if err := c.writer.Write(row.Values()); err != nil {
			return errors.Wrap(err, "report: write csv row failed")
		}
	}
	c.writer.Flush()
	return errors.Wrap(c.writer.Error(), "report: flush csv failed")
}

func (c *csvSink) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writer != nil {
		c.writer.Flush()
		if err := c.writer.Error(); err != nil {
			return errors.Wrap(err, "report: flush csv on close failed")
		}
	}
	if c.file != nil {
		if err := c.file.Close(); err != nil {
			return errors.Wrap(err, "report: close csv file failed")
		}
	}
	return nil
}

func (c *csvSink) Name() string {
	if c == nil || c.path == "" {
		return "csv"
	}
	return c.path
}

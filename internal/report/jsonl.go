package report

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"

	auditagent "github.com/netaudit/AuditAgent"
	"github.com/pkg/errors"
)

// jsonlSink mirrors audit rows as one JSON object per line, keyed by the
// report column names.
type jsonlSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

func newJSONLSink(path string) (*jsonlSink, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "report: create jsonl file failed")
	}
	return &jsonlSink{file: file, writer: bufio.NewWriter(file), path: path}, nil
}

func (j *jsonlSink) Write(_ context.Context, rows []auditagent.Row) error {
	if j == nil || j.writer == nil {
		return errors.New("report: jsonl sink nil")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, row := range rows {
		payload, err := json.Marshal(rowPayload(row))
		if err != nil {
			return errors.Wrap(err, "report: marshal jsonl row failed")
		}
		if _, err := j.writer.Write(payload); err != nil {
			return errors.Wrap(err, "report: write jsonl row failed")
		}
		if err := j.writer.WriteByte('\n'); err != nil {
			return errors.Wrap(err, "report: write jsonl newline failed")
		}
	}
	return errors.Wrap(j.writer.Flush(), "report: flush jsonl failed")
}

func (j *jsonlSink) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.writer != nil {
		if err := j.writer.Flush(); err != nil {
			return errors.Wrap(err, "report: flush jsonl on close failed")
		}
	}
	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return errors.Wrap(err, "report: close jsonl file failed")
		}
	}
	return nil
}

func (j *jsonlSink) Name() string {
	if j == nil || j.path == "" {
		return "jsonl"
	}
	return j.path
}

func rowPayload(row auditagent.Row) map[string]string {
	values := row.Values()
	payload := make(map[string]string, len(values))
	for i, col := range auditagent.Columns {
		payload[col] = values[i]
	}
	return payload
}

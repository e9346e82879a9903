package report

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	auditagent "github.com/netaudit/AuditAgent"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	defaultHistoryDirName  = ".auditagent"
	defaultHistoryFileName = "history.sqlite"
	historyRowsTable       = "audit_rows"
	historyRunsTable       = "audit_runs"
)

// historySink mirrors every report row into SQLite and doubles as the run
// recorder. It serves one run at a time: CreateRun pins the run id stamped
// onto subsequent rows.
type historySink struct {
	db     *sql.DB
	insert *sql.Stmt
	path   string

	mu    sync.Mutex
	runID string
}

func newHistorySink(override string) (*historySink, error) {
	dbPath, err := resolveHistoryPath(override)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "report: open history database failed")
	}
	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := prepareHistorySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	stmt, err := db.Prepare(buildRowInsert())
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "report: prepare history insert failed")
	}
	return &historySink{db: db, insert: stmt, path: dbPath}, nil
}

func resolveHistoryPath(override string) (string, error) {
	if custom := strings.TrimSpace(override); custom != "" {
		if err := ensureParentDir(custom); err != nil {
			return "", err
		}
		return custom, nil
	}
	if custom := strings.TrimSpace(os.Getenv(auditagent.EnvHistoryDB)); custom != "" {
		if err := ensureParentDir(custom); err != nil {
			return "", err
		}
		return custom, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "report: locate user home failed")
	}
	dir := filepath.Join(home, defaultHistoryDirName)
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultHistoryFileName), nil
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "report: execute %s failed", pragma)
		}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return nil
}

func prepareHistorySchema(db *sql.DB) error {
	createRuns := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id TEXT PRIMARY KEY,
			host_id TEXT,
			agent_version TEXT,
			device_count INTEGER,
			started_at INTEGER,
			finished_at INTEGER,
			ok_count INTEGER,
			failed_count INTEGER,
			error TEXT
		);`, historyRunsTable)
	if _, err := db.Exec(createRuns); err != nil {
		return errors.Wrap(err, "report: init runs schema failed")
	}

	rowCols := make([]string, 0, len(auditagent.Columns))
	for _, col := range auditagent.Columns {
		rowCols = append(rowCols, fmt.Sprintf("%s TEXT", quoteIdent(col)))
	}
	createRows := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT,
			%s,
			created_at INTEGER
		);`, historyRowsTable, strings.Join(rowCols, ",\n\t\t\t"))
	if _, err := db.Exec(createRows); err != nil {
		return errors.Wrap(err, "report: init rows schema failed")
	}

	for _, col := range []struct {
		table string
		name  string
		typ   string
	}{
		{historyRunsTable, "host_id", "TEXT"},
		{historyRunsTable, "agent_version", "TEXT"},
		{historyRowsTable, "created_at", "INTEGER"},
	} {
		if err := ensureSQLiteColumn(db, col.table, col.name, col.typ); err != nil {
			return err
		}
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_run ON %s(run_id);`, historyRowsTable, historyRowsTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_ip ON %s(%s);`, historyRowsTable, historyRowsTable, quoteIdent("ip_address")),
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "report: init history indexes failed")
		}
	}
	return nil
}

func buildRowInsert() string {
	cols := make([]string, 0, len(auditagent.Columns)+2)
	cols = append(cols, "run_id")
	cols = append(cols, auditagent.Columns...)
	cols = append(cols, "created_at")
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdent(col)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(historyRowsTable),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))
}

// Write mirrors the batch inside one transaction so a device's rows land
// atomically.
func (h *historySink) Write(ctx context.Context, rows []auditagent.Row) error {
	if h == nil || h.db == nil || h.insert == nil {
		return errors.New("report: history sink nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.mu.Lock()
	runID := h.runID
	h.mu.Unlock()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "report: begin history tx failed")
	}
	stmt := tx.StmtContext(ctx, h.insert)
	now := time.Now().Unix()
	for _, row := range rows {
		args := make([]any, 0, len(auditagent.Columns)+2)
		args = append(args, runID)
		for _, v := range row.Values() {
			args = append(args, v)
		}
		args = append(args, now)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "report: insert audit row failed")
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "report: commit history tx failed")
	}
	return nil
}

func (h *historySink) Close() error {
	if h == nil {
		return nil
	}
	if h.insert != nil {
		h.insert.Close()
	}
	if h.db != nil {
		return h.db.Close()
	}
	return nil
}

func (h *historySink) Name() string {
	if h == nil || h.path == "" {
		return "history"
	}
	return h.path
}

// CreateRun registers the run and pins its id for subsequent row writes.
// Re-registering the same id refreshes the stored attributes.
func (h *historySink) CreateRun(ctx context.Context, rec *auditagent.RunRecord) error {
	if h == nil || h.db == nil {
		return errors.New("report: history sink nil")
	}
	if rec == nil {
		return errors.New("report: run record nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.mu.Lock()
	h.runID = rec.RunID
	h.mu.Unlock()

	query := fmt.Sprintf(`INSERT INTO %s (run_id, host_id, agent_version, device_count, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			host_id=excluded.host_id,
			agent_version=excluded.agent_version,
			device_count=excluded.device_count,
			started_at=excluded.started_at`, quoteIdent(historyRunsTable))
	_, err := h.db.ExecContext(ctx, query,
		rec.RunID, rec.HostID, rec.AgentVersion, rec.DeviceCount, rec.StartedAt.Unix())
	return errors.Wrap(err, "report: insert audit run failed")
}

// FinishRun closes out the run record with final counts.
func (h *historySink) FinishRun(ctx context.Context, runID string, upd *auditagent.RunUpdate) error {
	if h == nil || h.db == nil {
		return errors.New("report: history sink nil")
	}
	if upd == nil {
		return errors.New("report: run update nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	query := fmt.Sprintf(`UPDATE %s SET finished_at=?, ok_count=?, failed_count=?, error=? WHERE run_id=?`,
		quoteIdent(historyRunsTable))
	_, err := h.db.ExecContext(ctx, query,
		upd.FinishedAt.Unix(), upd.OKCount, upd.FailedCount, upd.ErrorMessage, runID)
	return errors.Wrap(err, "report: update audit run failed")
}

func ensureSQLiteColumn(db *sql.DB, table, column, columnType string) error {
	query := fmt.Sprintf("PRAGMA table_info(%s);", table)
	rows, err := db.Query(query)
	if err != nil {
		return errors.Wrapf(err, "report: describe %s schema failed", table)
	}
	defer rows.Close()
	exists := false
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return errors.Wrap(err, "report: scan sqlite table info failed")
		}
		if strings.EqualFold(name, column) {
			exists = true
			break
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "report: iterate sqlite table info failed")
	}
	if exists {
		return nil
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s;", table, column, columnType)
	if _, err := db.Exec(stmt); err != nil {
		return errors.Wrapf(err, "report: add column %s to %s failed", column, table)
	}
	return nil
}

func quoteIdent(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	escaped := strings.ReplaceAll(trimmed, "\"", "\"\"")
	return fmt.Sprintf("\"%s\"", escaped)
}

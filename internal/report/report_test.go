package report

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	auditagent "github.com/netaudit/AuditAgent"
)

func sampleRows() []auditagent.Row {
	return []auditagent.Row{
		{
			Hostname:          "core-sw-01",
			IPAddress:         "10.1.0.1",
			Model:             "WS-C3750X-48P",
			Version:           "15.2(4)E10",
			Status:            auditagent.StatusOK,
			Interface:         "GigabitEthernet1/0/1",
			InterfaceIP:       "10.0.0.1",
			InterfaceStatus:   "up",
			ProtocolStatus:    "up",
			NeighborDevice:    "dist-sw-01",
			NeighborPlatform:  "cisco WS-C3850-24T",
			NeighborInterface: "TenGigabitEthernet1/1/3",
		},
		{
			Hostname:  "N/A",
			IPAddress: "10.1.0.2",
			Model:     "N/A",
			Version:   "N/A",
			// Commas in the status must survive the CSV round trip.
			Status:            "Error: dial tcp 10.1.0.2:22: connect, network unreachable",
			Interface:         "N/A",
			InterfaceIP:       "N/A",
			InterfaceStatus:   "N/A",
			ProtocolStatus:    "N/A",
			NeighborDevice:    "N/A",
			NeighborPlatform:  "N/A",
			NeighborInterface: "N/A",
		},
	}
}

func TestManagerWritesCSVReport(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "network_audit_test.csv")
	manager, err := NewManager(Config{CSVPath: csvPath, DisableHistory: true})
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	rows := sampleRows()
	if err := manager.Write(context.Background(), rows); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := manager.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d records", len(records))
	}
	if !reflect.DeepEqual(records[0], auditagent.Columns) {
		t.Fatalf("expected header %v, got %v", auditagent.Columns, records[0])
	}
	if !reflect.DeepEqual(records[1], rows[0].Values()) {
		t.Fatalf("row 1 did not round trip:\nwant %v\ngot  %v", rows[0].Values(), records[1])
	}
	if records[2][4] != rows[1].Status {
		t.Fatalf("expected status with comma preserved, got %q", records[2][4])
	}
}

func TestManagerConcurrentWritesKeepBatchesAtomic(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "audit.csv")
	manager, err := NewManager(Config{CSVPath: csvPath, DisableHistory: true})
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	const devices = 16
	const rowsPerDevice = 5
	var wg sync.WaitGroup
	for d := 0; d < devices; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			host := fmt.Sprintf("sw-%02d", d)
			batch := make([]auditagent.Row, rowsPerDevice)
			for i := range batch {
				batch[i] = auditagent.Row{
					Hostname:  host,
					IPAddress: fmt.Sprintf("10.0.%d.1", d),
					Model:     "WS-C3750X-48P",
					Version:   "15.2(4)E10",
					Status:    auditagent.StatusOK,
					Interface: fmt.Sprintf("GigabitEthernet1/0/%d", i),
				}
			}
			if err := manager.Write(context.Background(), batch); err != nil {
				t.Errorf("Write for %s returned error: %v", host, err)
			}
		}(d)
	}
	wg.Wait()
	if err := manager.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()
	// The reader rejects any record whose field count differs from the
	// header's, so torn rows surface as a read error.
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if want := 1 + devices*rowsPerDevice; len(records) != want {
		t.Fatalf("expected %d records, got %d", want, len(records))
	}

	// Each device's batch must be contiguous and in emission order.
	seen := make(map[string]bool, devices)
	for i := 1; i < len(records); i += rowsPerDevice {
		host := records[i][0]
		if seen[host] {
			t.Fatalf("device %s rows split across batches at record %d", host, i)
		}
		seen[host] = true
		for j := 0; j < rowsPerDevice; j++ {
			rec := records[i+j]
			if rec[0] != host {
				t.Fatalf("record %d: expected host %s, got %s", i+j, host, rec[0])
			}
			if want := fmt.Sprintf("GigabitEthernet1/0/%d", j); rec[5] != want {
				t.Fatalf("record %d: expected interface %s, got %s", i+j, want, rec[5])
			}
		}
	}
	if len(seen) != devices {
		t.Fatalf("expected %d devices in report, got %d", devices, len(seen))
	}
}

func TestManagerRequiresASink(t *testing.T) {
	if _, err := NewManager(Config{DisableHistory: true}); err == nil {
		t.Fatal("expected error when no sink is enabled")
	}
}

func TestManagerMirrorsJSONL(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "audit.csv")
	jsonlPath := filepath.Join(dir, "audit.jsonl")
	manager, err := NewManager(Config{CSVPath: csvPath, JSONLPath: jsonlPath, DisableHistory: true})
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	rows := sampleRows()
	if err := manager.Write(context.Background(), rows); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := manager.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	data, err := os.ReadFile(jsonlPath)
	if err != nil {
		t.Fatalf("read jsonl: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != len(rows) {
		t.Fatalf("expected %d jsonl lines, got %d", len(rows), len(lines))
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(lines[0]), &payload); err != nil {
		t.Fatalf("unmarshal jsonl line: %v", err)
	}
	if payload["hostname"] != "core-sw-01" || payload["status"] != auditagent.StatusOK {
		t.Fatalf("unexpected jsonl payload: %v", payload)
	}
	if len(payload) != len(auditagent.Columns) {
		t.Fatalf("expected %d keys, got %d", len(auditagent.Columns), len(payload))
	}

	name := manager.Name()
	if !strings.Contains(name, csvPath) || !strings.Contains(name, jsonlPath) {
		t.Fatalf("expected manager name to list sinks, got %q", name)
	}
}

func TestManagerHistoryDisabled(t *testing.T) {
	manager, err := NewManager(Config{CSVPath: filepath.Join(t.TempDir(), "audit.csv"), DisableHistory: true})
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	defer manager.Close()
	if manager.Runs() != nil {
		t.Fatal("expected nil run recorder with history disabled")
	}
}

func TestManagerHistoryDisabledByEnv(t *testing.T) {
	t.Setenv(auditagent.EnvDisableHistory, "1")
	manager, err := NewManager(Config{CSVPath: filepath.Join(t.TempDir(), "audit.csv")})
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	defer manager.Close()
	if manager.Runs() != nil {
		t.Fatal("expected nil run recorder with history disabled via environment")
	}
}

func TestHistorySinkRecordsRunLifecycle(t *testing.T) {
	dir := t.TempDir()
	historyPath := filepath.Join(dir, "history.sqlite")
	manager, err := NewManager(Config{
		CSVPath:     filepath.Join(dir, "audit.csv"),
		HistoryPath: historyPath,
	})
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	runs := manager.Runs()
	if runs == nil {
		t.Fatal("expected run recorder when history is enabled")
	}

	ctx := context.Background()
	started := time.Now()
	if err := runs.CreateRun(ctx, &auditagent.RunRecord{
		RunID:        "audit-20260821-000000",
		HostID:       "host-1234",
		AgentVersion: auditagent.AgentVersion,
		DeviceCount:  2,
		StartedAt:    started,
	}); err != nil {
		t.Fatalf("CreateRun returned error: %v", err)
	}
	if err := manager.Write(ctx, sampleRows()); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := runs.FinishRun(ctx, "audit-20260821-000000", &auditagent.RunUpdate{
		OKCount:     1,
		FailedCount: 1,
		FinishedAt:  started.Add(3 * time.Second),
	}); err != nil {
		t.Fatalf("FinishRun returned error: %v", err)
	}
	if err := manager.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	db, err := sql.Open("sqlite", historyPath)
	if err != nil {
		t.Fatalf("open history db: %v", err)
	}
	defer db.Close()

	var rowCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM audit_rows WHERE run_id = ?`, "audit-20260821-000000").Scan(&rowCount); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rowCount != 2 {
		t.Fatalf("expected 2 mirrored rows, got %d", rowCount)
	}

	var okCount, failedCount int
	var hostID string
	if err := db.QueryRow(`SELECT ok_count, failed_count, host_id FROM audit_runs WHERE run_id = ?`, "audit-20260821-000000").
		Scan(&okCount, &failedCount, &hostID); err != nil {
		t.Fatalf("read run record: %v", err)
	}
	if okCount != 1 || failedCount != 1 || hostID != "host-1234" {
		t.Fatalf("unexpected run record: ok=%d failed=%d host=%q", okCount, failedCount, hostID)
	}

	var status string
	if err := db.QueryRow(`SELECT status FROM audit_rows WHERE ip_address = ?`, "10.1.0.1").Scan(&status); err != nil {
		t.Fatalf("read row status: %v", err)
	}
	if status != auditagent.StatusOK {
		t.Fatalf("expected %q, got %q", auditagent.StatusOK, status)
	}
}

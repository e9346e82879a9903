package auditagent

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func TestRowValuesFollowColumnOrder(t *testing.T) {
	row := Row{
		Hostname:          "core-sw-01",
		IPAddress:         "10.1.0.1",
		Model:             "WS-C3750X-48P",
		Version:           "15.2(4)E10",
		Status:            StatusOK,
		Interface:         "GigabitEthernet1/0/1",
		InterfaceIP:       "10.0.0.1",
		InterfaceStatus:   "up",
		ProtocolStatus:    "up",
		NeighborDevice:    "dist-sw-01",
		NeighborPlatform:  "cisco WS-C3850-24T",
		NeighborInterface: "TenGigabitEthernet1/1/3",
	}
	want := []string{
		"core-sw-01", "10.1.0.1", "WS-C3750X-48P", "15.2(4)E10", StatusOK,
		"GigabitEthernet1/0/1", "10.0.0.1", "up", "up",
		"dist-sw-01", "cisco WS-C3850-24T", "TenGigabitEthernet1/1/3",
	}
	got := row.Values()
	if len(got) != len(Columns) {
		t.Fatalf("expected %d values to match the header, got %d", len(Columns), len(got))
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("values out of column order:\nwant %v\ngot  %v", want, got)
	}
}

func TestFailureRowMarksAbsentColumns(t *testing.T) {
	row := failureRow("10.1.0.1", StatusAuthFailed)
	if row.IPAddress != "10.1.0.1" || row.Status != StatusAuthFailed {
		t.Fatalf("unexpected failure row: %+v", row)
	}
	for i, val := range row.Values() {
		switch Columns[i] {
		case "ip_address", "status":
			continue
		default:
			if val != placeholderAbsent {
				t.Fatalf("expected %q in column %s, got %q", placeholderAbsent, Columns[i], val)
			}
		}
	}
}

func TestStatusFormatting(t *testing.T) {
	if got := errorRow("10.1.0.1", errors.New("boom")).Status; got != "Error: boom" {
		t.Fatalf("expected error status, got %q", got)
	}
	if got := unsupportedOSRow("10.1.0.1", OSFamily("linux")).Status; got != "Unsupported OS: linux" {
		t.Fatalf("expected unsupported status, got %q", got)
	}
}

func TestRowOK(t *testing.T) {
	if !(Row{Status: StatusOK}).OK() {
		t.Fatal("expected OK row")
	}
	if (Row{Status: StatusAuthFailed}).OK() {
		t.Fatal("expected non-OK row")
	}
}

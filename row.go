package auditagent

import "fmt"

// Row is one line of the audit table: a device summary, one interface, or a
// failure. Field order in Values mirrors Columns.
type Row struct {
	Hostname          string
	IPAddress         string
	Model             string
	Version           string
	Status            string
	Interface         string
	InterfaceIP       string
	InterfaceStatus   string
	ProtocolStatus    string
	NeighborDevice    string
	NeighborPlatform  string
	NeighborInterface string
}

// Values returns the row fields in Columns order, ready for the CSV writer.
func (r Row) Values() []string {
	return []string{
		r.Hostname,
		r.IPAddress,
		r.Model,
		r.Version,
		r.Status,
		r.Interface,
		r.InterfaceIP,
		r.InterfaceStatus,
		r.ProtocolStatus,
		r.NeighborDevice,
		r.NeighborPlatform,
		r.NeighborInterface,
	}
}

// OK reports whether the row carries the success status.
func (r Row) OK() bool {
	return r.Status == StatusOK
}

// failureRow builds the single terminal row for a failed device. Only the
// address and status columns carry data; everything else is structurally
// absent.
func failureRow(deviceID, status string) Row {
	return Row{
		Hostname:          placeholderAbsent,
		IPAddress:         deviceID,
		Model:             placeholderAbsent,
		Version:           placeholderAbsent,
		Status:            status,
		Interface:         placeholderAbsent,
		InterfaceIP:       placeholderAbsent,
		InterfaceStatus:   placeholderAbsent,
		ProtocolStatus:    placeholderAbsent,
		NeighborDevice:    placeholderAbsent,
		NeighborPlatform:  placeholderAbsent,
		NeighborInterface: placeholderAbsent,
	}
}

// unsupportedOSRow tags a device whose detected family has no command set.
func unsupportedOSRow(deviceID string, family OSFamily) Row {
	return failureRow(deviceID, fmt.Sprintf(statusUnsupportedOSFormat, string(family)))
}

// errorRow is the catch-all failure row carrying a human-readable description.
func errorRow(deviceID string, err error) Row {
	return failureRow(deviceID, fmt.Sprintf(statusErrorFormat, err))
}

// summaryRow covers a device that parsed a version record but no interfaces.
func summaryRow(deviceID, hostname string, ver VersionRecord) Row {
	return Row{
		Hostname:          hostname,
		IPAddress:         deviceID,
		Model:             ver.Hardware,
		Version:           ver.Version,
		Status:            StatusOK,
		Interface:         placeholderAbsent,
		InterfaceIP:       placeholderAbsent,
		InterfaceStatus:   placeholderAbsent,
		ProtocolStatus:    placeholderAbsent,
		NeighborDevice:    placeholderAbsent,
		NeighborPlatform:  placeholderAbsent,
		NeighborInterface: placeholderAbsent,
	}
}

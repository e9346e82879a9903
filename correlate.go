package auditagent

import "strings"

// correlateDevice merges the per-device version, interface, and neighbor
// records into the emitted rows. The join is best-effort by interface name
// only; partial neighbor data never suppresses an interface row.
func correlateDevice(deviceID string, versions []VersionRecord, interfaces []InterfaceRecord, neighbors []NeighborRecord) []Row {
	if len(versions) == 0 {
		return []Row{failureRow(deviceID, StatusVersionParseFailed)}
	}
	ver := versions[0]

	hostname := strings.TrimSpace(ver.Hostname)
	if hostname == "" {
		// The legacy report fell back to the device prompt here; an exec
		// channel has no prompt, so the device identifier stands in.
		hostname = deviceID
	}

	// Last write wins on duplicate local ports. Neighbor data is
	// supplementary and the ambiguity is accepted, not corrected.
	byLocalPort := make(map[string]NeighborRecord, len(neighbors))
	for _, n := range neighbors {
		byLocalPort[n.LocalPort] = n
	}

	if len(interfaces) == 0 {
		return []Row{summaryRow(deviceID, hostname, ver)}
	}

	rows := make([]Row, 0, len(interfaces))
	for _, iface := range interfaces {
		row := Row{
			Hostname:        hostname,
			IPAddress:       deviceID,
			Model:           ver.Hardware,
			Version:         ver.Version,
			Status:          StatusOK,
			Interface:       iface.Name,
			InterfaceIP:     iface.Address,
			InterfaceStatus: iface.Status,
			ProtocolStatus:  iface.Protocol,
		}
		if neighbor, ok := byLocalPort[iface.Name]; ok {
			row.NeighborDevice = neighbor.DeviceID
			row.NeighborPlatform = neighbor.Platform
			row.NeighborInterface = neighbor.RemotePort
		}
		rows = append(rows, row)
	}
	return rows
}

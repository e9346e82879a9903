package cisco

import (
	"regexp"
	"strings"

	auditagent "github.com/netaudit/AuditAgent"
)

// detectFamily fingerprints the operating system from `show version` output.
// Unrecognized platforms return a descriptive tag that surfaces verbatim in
// the unsupported-OS report status.
func detectFamily(output string) auditagent.OSFamily {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "nx-os") || strings.Contains(lower, "nexus operating system"):
		return auditagent.OSFamilyNXOS
	case strings.Contains(lower, "adaptive security appliance"):
		return auditagent.OSFamilyASA
	// XR banners also contain "Cisco IOS", so check them first.
	case strings.Contains(lower, "ios xr") || strings.Contains(lower, "ios-xr"):
		return auditagent.OSFamily("cisco_xr")
	case strings.Contains(lower, "cisco ios"):
		return auditagent.OSFamilyIOS
	case strings.Contains(lower, "junos"):
		return auditagent.OSFamily("juniper_junos")
	case strings.Contains(lower, "linux"):
		return auditagent.OSFamily("linux")
	default:
		return auditagent.OSFamily("unknown")
	}
}

var (
	iosVersionRe  = regexp.MustCompile(`Version\s+([^,\s]+)`)
	iosUptimeRe   = regexp.MustCompile(`(?m)^(\S+)\s+uptime is`)
	iosModelRe    = regexp.MustCompile(`(?m)^[Cc]isco\s+(\S+).*\bprocessor\b`)
	iosModelNumRe = regexp.MustCompile(`(?m)^Model [Nn]umber\s*:\s*(\S+)`)

	nxosVersionRe = regexp.MustCompile(`(?mi)^\s*(?:NXOS|system):\s+version\s+(\S+)`)
	nxosDeviceRe  = regexp.MustCompile(`(?mi)^\s*Device name:\s+(\S+)`)
	nxosModelRe   = regexp.MustCompile(`(?mi)^\s*cisco\s+(Nexus\s?\S+(?:\s+\S+)?)\s+[Cc]hassis`)

	asaVersionRe = regexp.MustCompile(`Adaptive Security Appliance Software Version\s+(\S+)`)
	asaModelRe   = regexp.MustCompile(`(?m)^Hardware:\s+([^,\s]+)`)
	asaUptimeRe  = regexp.MustCompile(`(?m)^(\S+)\s+up\s+\d`)
)

// parseVersion extracts the platform identity from version output. An empty
// return means nothing recognizable was present.
func parseVersion(family auditagent.OSFamily, output string) []auditagent.VersionRecord {
	var rec auditagent.VersionRecord
	switch family {
	case auditagent.OSFamilyNXOS:
		rec.Version = firstMatch(nxosVersionRe, output)
		rec.Hostname = firstMatch(nxosDeviceRe, output)
		rec.Hardware = strings.Join(strings.Fields(firstMatch(nxosModelRe, output)), " ")
	case auditagent.OSFamilyASA:
		rec.Version = firstMatch(asaVersionRe, output)
		rec.Hostname = firstMatch(asaUptimeRe, output)
		rec.Hardware = firstMatch(asaModelRe, output)
	default:
		rec.Version = firstMatch(iosVersionRe, output)
		rec.Hostname = firstMatch(iosUptimeRe, output)
		rec.Hardware = firstMatch(iosModelRe, output)
		if rec.Hardware == "" {
			rec.Hardware = firstMatch(iosModelNumRe, output)
		}
	}
	if rec.Version == "" && rec.Hostname == "" && rec.Hardware == "" {
		return nil
	}
	return []auditagent.VersionRecord{rec}
}

// parseInterfaces reads `show ip interface brief` style tables. IOS and ASA
// share the six-column layout; NX-OS prints a composite
// protocol/link/admin state instead.
func parseInterfaces(family auditagent.OSFamily, output string) []auditagent.InterfaceRecord {
	if family == auditagent.OSFamilyNXOS {
		return parseNXOSInterfaces(output)
	}
	return parseTableInterfaces(output)
}

func parseTableInterfaces(output string) []auditagent.InterfaceRecord {
	var records []auditagent.InterfaceRecord
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		// The OK? column anchors real table rows.
		if !strings.EqualFold(fields[2], "YES") && !strings.EqualFold(fields[2], "NO") {
			continue
		}
		// Status may span several words ("administratively down"); the
		// protocol column is always last.
		records = append(records, auditagent.InterfaceRecord{
			Name:     fields[0],
			Address:  fields[1],
			Status:   strings.Join(fields[4:len(fields)-1], " "),
			Protocol: fields[len(fields)-1],
		})
	}
	return records
}

func parseNXOSInterfaces(output string) []auditagent.InterfaceRecord {
	var records []auditagent.InterfaceRecord
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		state := fields[len(fields)-1]
		if !strings.Contains(state, "protocol-") {
			continue
		}
		rec := auditagent.InterfaceRecord{Name: fields[0], Address: fields[1]}
		for _, part := range strings.Split(state, "/") {
			switch {
			case strings.HasPrefix(part, "protocol-"):
				rec.Protocol = strings.TrimPrefix(part, "protocol-")
			case strings.HasPrefix(part, "link-"):
				rec.Status = strings.TrimPrefix(part, "link-")
			}
		}
		records = append(records, rec)
	}
	return records
}

// parseNeighbors reads `show cdp neighbors detail` blocks. Each record keeps
// the first management address listed for the neighbor.
func parseNeighbors(output string) []auditagent.NeighborRecord {
	var records []auditagent.NeighborRecord
	var current *auditagent.NeighborRecord
	flush := func() {
		if current != nil && current.DeviceID != "" {
			records = append(records, *current)
		}
		current = nil
	}
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Device ID:"):
			flush()
			current = &auditagent.NeighborRecord{DeviceID: valueAfter(trimmed, "Device ID:")}
		case current == nil:
			continue
		case strings.HasPrefix(trimmed, "IP address:"):
			if current.MgmtAddress == "" {
				current.MgmtAddress = valueAfter(trimmed, "IP address:")
			}
		case strings.HasPrefix(trimmed, "IPv4 Address:"):
			if current.MgmtAddress == "" {
				current.MgmtAddress = valueAfter(trimmed, "IPv4 Address:")
			}
		case strings.HasPrefix(trimmed, "Platform:"):
			value := valueAfter(trimmed, "Platform:")
			if idx := strings.Index(value, ","); idx >= 0 {
				value = value[:idx]
			}
			current.Platform = strings.TrimSpace(value)
		case strings.HasPrefix(trimmed, "Interface:"):
			parts := strings.SplitN(trimmed, ",", 2)
			current.LocalPort = valueAfter(parts[0], "Interface:")
			if len(parts) == 2 {
				if idx := strings.Index(parts[1], ":"); idx >= 0 {
					current.RemotePort = strings.TrimSpace(parts[1][idx+1:])
				}
			}
		}
	}
	flush()
	return records
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func valueAfter(line, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, prefix))
}

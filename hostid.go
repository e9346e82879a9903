package auditagent

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// hostID returns a best-effort stable identifier for the machine running the
// audit, used to attribute run history records. On macOS it uses
// `system_profiler`; on Linux it prefers /etc/machine-id then falls back to
// /sys/class/dmi/id/product_uuid; everywhere else the hostname stands in.
func hostID() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		cmd := exec.CommandContext(context.Background(), "bash", "-c", "system_profiler SPHardwareDataType | awk '/Hardware UUID/ {print $3}'")
		out, err := cmd.Output()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	case "linux":
		if id, err := readSystemFile("/etc/machine-id"); err == nil && id != "" {
			return id, nil
		}
		if id, err := readSystemFile("/sys/class/dmi/id/product_uuid"); err == nil && id != "" {
			return id, nil
		}
		return os.Hostname()
	default:
		return os.Hostname()
	}
}

func readSystemFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Package inventory loads the device target lists an audit run works
// through, either as a plain one-host-per-line file or as a YAML run
// description with run-level overrides.
package inventory

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Inventory describes one audit run: the devices to visit plus optional
// overrides for pool sizing and output placement. Zero values mean "use the
// run defaults".
type Inventory struct {
	Workers        int      `yaml:"workers"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Output         string   `yaml:"output"`
	Devices        []string `yaml:"devices"`
}

// Timeout returns the per-device timeout as a duration, zero when unset.
func (inv *Inventory) Timeout() time.Duration {
	return time.Duration(inv.TimeoutSeconds) * time.Second
}

// Load reads the inventory at path: files ending in .yaml or .yml are parsed
// as a full Inventory, anything else as a plain device list.
func Load(path string) (*Inventory, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		devices, err := LoadLines(path)
		if err != nil {
			return nil, err
		}
		return &Inventory{Devices: devices}, nil
	}
}

// LoadLines reads a plain-text device list: one host or address per line,
// surrounding whitespace trimmed, blank lines and #-comments skipped.
// Duplicate lines are kept; each occurrence is audited separately.
func LoadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open device list")
	}
	defer f.Close()
	devices, err := scanLines(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read device list %s", path)
	}
	return devices, nil
}

// LoadYAML reads a YAML inventory. Unknown keys are rejected.
func LoadYAML(path string) (*Inventory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open inventory")
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	inv := &Inventory{}
	if err := dec.Decode(inv); err != nil {
		return nil, errors.Wrapf(err, "parse inventory %s", path)
	}
	inv.Devices = normalizeDevices(inv.Devices)
	return inv, nil
}

func scanLines(r io.Reader) ([]string, error) {
	var devices []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		devices = append(devices, line)
	}
	return devices, scanner.Err()
}

func normalizeDevices(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, d := range in {
		if trimmed := strings.TrimSpace(d); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

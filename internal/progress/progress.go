// Package progress renders the terminal progress bar for audit runs.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Bar adapts progressbar to the pool's progress recorder. A nil Bar is a
// valid no-op.
type Bar struct {
	bar *progressbar.ProgressBar
}

// NewBar creates a device-unit progress bar sized for total devices,
// rendered on stderr so report output stays clean.
func NewBar(total int) *Bar {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Auditing Devices"),
		progressbar.OptionSetItsString("device"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)
	return &Bar{bar: bar}
}

// Advance records n completed devices.
func (b *Bar) Advance(n int) {
	if b == nil || b.bar == nil {
		return
	}
	_ = b.bar.Add(n)
}

// Finish completes the bar even when some devices were skipped.
func (b *Bar) Finish() {
	if b == nil || b.bar == nil {
		return
	}
	_ = b.bar.Finish()
}

// Package progress reports migration counts at a bounded cadence.
package progress

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Tracker tracks transferred item counts. The rendered bar throttles its
// own updates, so callers can Add per batch or per item without flooding
// the terminal.
type Tracker struct {
	bar       *progressbar.ProgressBar
	unit      string
	current   atomic.Int64
	startTime time.Time
}

// New creates a tracker for items of the named unit ("rows", "images").
func New(unit string) *Tracker {
	return &Tracker{
		unit:      unit,
		startTime: time.Now(),
	}
}

// Start begins rendering. A total of -1 renders an unbounded spinner,
// which fits the record path where the source row count is unknown until
// the stream is drained.
func (t *Tracker) Start(total int64) {
	t.bar = progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription("Migrating"),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(t.unit),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Add increments the progress counter.
func (t *Tracker) Add(n int64) {
	t.current.Add(n)
	if t.bar != nil {
		t.bar.Add64(n)
	}
}

// Current returns the current count.
func (t *Tracker) Current() int64 {
	return t.current.Load()
}

// Finish stops rendering and prints a throughput summary.
func (t *Tracker) Finish() {
	if t.bar != nil {
		t.bar.Finish()
	}

	elapsed := time.Since(t.startTime)
	perSec := float64(t.current.Load()) / elapsed.Seconds()

	fmt.Println()
	fmt.Printf("Processed %d %s in %s (%.0f %s/sec)\n",
		t.current.Load(), t.unit, elapsed.Round(time.Second), perSec, t.unit)
}

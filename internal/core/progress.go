package core

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/Sumatoshi-tech/codefang/pkg/analyzers/common/terminal"
)

// ProgressReporter renders a live progress bar to an io.Writer when the
// writer is a terminal, and is otherwise a no-op sink that still advances its
// internal counters — callers always call Update/Finish regardless of TTY
// detection, so headless runs (CI, piped output) never block or panic.
type ProgressReporter struct {
	out        io.Writer
	label      string
	isTTY      bool
	width      int
	minRedraw  time.Duration
	lastDrawAt time.Time
	current    int
	total      int
}

// NewProgressReporter returns a reporter writing label-prefixed bars to out.
// TTY detection uses the underlying file descriptor when out is an *os.File;
// any other writer is treated as non-interactive.
func NewProgressReporter(out io.Writer, label string) *ProgressReporter {
	isTTY := false

	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}

	return &ProgressReporter{
		out:       out,
		label:     label,
		isTTY:     isTTY,
		width:     30,
		minRedraw: 100 * time.Millisecond,
	}
}

// AsProgressFunc adapts the reporter to the ProgressFunc signature consumed
// by AnalysisContext and FileSet scanning.
func (p *ProgressReporter) AsProgressFunc() ProgressFunc {
	return p.Update
}

// Update records progress and redraws the bar, throttled to minRedraw unless
// the scan just completed (current == total).
func (p *ProgressReporter) Update(current, total int) {
	p.current = current
	p.total = total

	if !p.isTTY {
		return
	}

	now := time.Now()
	if current != total && now.Sub(p.lastDrawAt) < p.minRedraw {
		return
	}

	p.lastDrawAt = now
	p.draw()
}

// Finish clears the in-progress line. No-op when not attached to a terminal.
func (p *ProgressReporter) Finish() {
	if !p.isTTY {
		return
	}

	fmt.Fprint(p.out, "\r\033[K")
}

func (p *ProgressReporter) draw() {
	ratio := 0.0
	if p.total > 0 {
		ratio = float64(p.current) / float64(p.total)
	}

	bar := terminal.DrawProgressBar(ratio, p.width)

	fmt.Fprintf(p.out, "\r%s %s %d/%d", p.label, bar, p.current, p.total)
}

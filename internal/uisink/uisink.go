// Package uisink provides the default, no-frills terminal ProgressSink: a
// single updating "step/total" line on stderr. No progress-bar library
// appears anywhere in the retrieved corpus, so this ~20-line sink is
// hand-rolled rather than imported; see DESIGN.md.
package uisink

import (
	"fmt"
	"io"
)

// Terminal reports scan progress as a single carriage-return-updated line.
type Terminal struct {
	Out io.Writer

	total int
	done  int
	label string
}

// Prep implements collab.ProgressSink.
func (t *Terminal) Prep(total int, label string) {
	t.total = total
	t.done = 0
	t.label = label
}

// Step implements collab.ProgressSink.
func (t *Terminal) Step() {
	t.done++
	if t.total == 0 {
		return
	}
	fmt.Fprintf(t.Out, "\r%s: %d/%d", t.label, t.done, t.total)
}

// Fin implements collab.ProgressSink.
func (t *Terminal) Fin() {
	if t.total > 0 {
		fmt.Fprintln(t.Out)
	}
}

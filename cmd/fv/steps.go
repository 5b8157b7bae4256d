package main

import (
	"fmt"
	"io"

	"github.com/alfredjeanlab/flowview/internal/panel"
	"github.com/alfredjeanlab/flowview/internal/ui"
)

// outputTail prints what a step panel received since the last flush.
type outputTail struct {
	step     string
	printed  int
	fallback string
}

// flush prints the new lines of out to w and a changed fallback message to
// errw. Lines evicted by the output cap before they were printed are skipped.
func (t *outputTail) flush(w, errw io.Writer, out *panel.StepOutput) {
	lines := out.Lines()
	total := out.Dropped() + len(lines)
	if fresh := total - t.printed; fresh > 0 {
		if fresh > len(lines) {
			fresh = len(lines)
		}
		printLogLines(w, t.step, lines[len(lines)-fresh:])
		t.printed = total
	}
	if fb := out.Fallback(); fb != "" && fb != t.fallback {
		t.fallback = fb
		label := "last message:"
		if t.step != "" {
			label = t.step + " last message:"
		}
		fmt.Fprintf(errw, "%s %s\n", ui.RenderMuted(label), fb)
	}
}

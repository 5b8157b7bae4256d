package panel

import "github.com/alfredjeanlab/flowview/internal/model"

// StepOutput accumulates the log lines pushed for one step.
type StepOutput struct {
	lines    []model.StepLog
	max      int
	dropped  int
	fallback string
}

// NewStepOutput creates a buffer keeping at most max lines; zero keeps all.
func NewStepOutput(max int) *StepOutput {
	return &StepOutput{max: max}
}

// Append adds lines in arrival order, evicting the oldest past the cap.
func (o *StepOutput) Append(lines ...model.StepLog) {
	o.lines = append(o.lines, lines...)
	if o.max > 0 && len(o.lines) > o.max {
		n := len(o.lines) - o.max
		o.dropped += n
		o.lines = append(o.lines[:0:0], o.lines[n:]...)
	}
}

// Lines returns the buffered lines.
func (o *StepOutput) Lines() []model.StepLog { return o.lines }

// Dropped returns how many lines were evicted by the cap.
func (o *StepOutput) Dropped() int { return o.dropped }

// Fallback is the text shown instead of output after the feed failed.
func (o *StepOutput) Fallback() string { return o.fallback }

func (o *StepOutput) setFallback(s string) { o.fallback = s }

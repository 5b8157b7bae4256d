package ui

import (
	"fmt"

	"github.com/alfredjeanlab/flowview/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorError  = 203 // red
)

// Status colors, one per engine state.
var statusColors = map[model.State]int{
	model.StateRunning:  74,  // blue
	model.StatePaused:   179, // amber
	model.StatePending:  250, // light gray
	model.StateStopped:  114, // green
	model.StateFailed:   203, // red
	model.StateTimeout:  209, // orange
	model.StateCanceled: 245, // medium gray
	model.StateSkipped:  109, // teal
	model.StateBlocked:  176, // purple
	model.StateUnknown:  240, // dark gray
}

var noColor bool

func paint(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderError returns s in the error (red) color.
func RenderError(s string) string { return paint(colorError, s) }

// StatusColor returns the ANSI256 color for state. Unrecognized states use
// the unknown color.
func StatusColor(state model.State) int {
	if c, ok := statusColors[state]; ok {
		return c
	}
	return statusColors[model.StateUnknown]
}

// RenderStatus returns the state name in its status color. An empty state
// renders as "unknown".
func RenderStatus(state model.State) string {
	if state == "" {
		state = model.StateUnknown
	}
	return paint(StatusColor(state), string(state))
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

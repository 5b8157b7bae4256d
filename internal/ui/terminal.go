package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ColorFor reports whether ANSI colors should be written to f. NO_COLOR and
// CLICOLOR=0 turn color off and CLICOLOR_FORCE=1 turns it on whatever f is.
// Otherwise f must be a terminal.
func ColorFor(f *os.File) bool {
	switch {
	case os.Getenv("NO_COLOR") != "":
		return false
	case envValue("CLICOLOR_FORCE") == "1":
		return true
	case envValue("CLICOLOR") == "0":
		return false
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// ShouldUseColor reports whether stdout takes color and ForceNoColor has
// not been called.
func ShouldUseColor() bool {
	return !noColor && ColorFor(os.Stdout)
}

func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

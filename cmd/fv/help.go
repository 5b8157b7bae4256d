package main

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowview/internal/ui"
)

// helpRule restyles every match of re. Submatch 1 and the last submatch are
// kept as-is; the submatches between them go through paint.
type helpRule struct {
	re    *regexp.Regexp
	paint func(string) string
}

var helpRules = []helpRule{
	// Group headers such as "Live views:" and "Flags:"; "Usage:" stays plain.
	{regexp.MustCompile(`(?m)^()((?:[A-TV-Z]|U[^s\n])[^\n]*:)([ \t]*)$`), ui.RenderAccent},
	// Command names in the two-space indented listing.
	{regexp.MustCompile(`(?m)^(  )(\S+)(  )`), ui.RenderCommand},
	// Flag value types, e.g. "--size int".
	{regexp.MustCompile(`(--?\S+\s+)(string|int|duration)()\b`), ui.RenderMuted},
	{regexp.MustCompile(`()(\(default [^)]*\))()`), ui.RenderMuted},
}

// colorizedHelpFunc renders cobra's usage text and restyles it when the
// terminal takes color.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	for _, r := range helpRules {
		s = r.re.ReplaceAllStringFunc(s, func(m string) string {
			parts := r.re.FindStringSubmatch(m)
			if len(parts) != 4 {
				return m
			}
			return parts[1] + r.paint(parts[2]) + parts[3]
		})
	}
	return s
}

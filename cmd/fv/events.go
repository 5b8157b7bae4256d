package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowview/internal/dashboard"
	"github.com/alfredjeanlab/flowview/internal/events"
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	Short:   "Follow engine notifications",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, cleanup, err := dashboard.EventSources(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		var last uint64
		return runLive(cmd, liveView{
			sources: sources,
			setup:   func(*live) error { return nil },
			onChange: func(l *live, view string) {
				if view != "events" {
					return
				}
				last = printNewEvents(l.out, l.d.Events().Entries(), last)
			},
		})
	},
}

// printNewEvents prints the entries after sequence number last and returns
// the last one printed.
func printNewEvents(w io.Writer, entries []events.Event, last uint64) uint64 {
	for _, e := range entries {
		if e.Seq > last {
			printEvent(w, e)
			last = e.Seq
		}
	}
	return last
}

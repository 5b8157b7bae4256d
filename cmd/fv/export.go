package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowview/internal/dashboard"
	"github.com/alfredjeanlab/flowview/internal/panel"
	flowsync "github.com/alfredjeanlab/flowview/internal/sync"
)

// errExported ends the view once the export ran.
var errExported = errors.New("export done")

var exportCmd = &cobra.Command{
	Use:     "export <task>",
	Short:   "Export a task's step graph as JSONL",
	GroupID: "actions",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		dir, _ := cmd.Flags().GetString("dir")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		c := *cfg
		if dir != "" {
			c.ExportDir = dir
		}
		dests, err := dashboard.Destinations(cmd.Context(), &c)
		if err != nil {
			return err
		}
		if len(dests) == 0 {
			return fmt.Errorf("no export destination: pass --dir or set FLOWVIEW_EXPORT_DIR / FLOWVIEW_EXPORT_S3_BUCKET")
		}

		ready := make(chan struct{})
		var p *panel.Panel
		failed := -1
		v := liveView{
			cfg: &c,
			setup: func(l *live) error {
				var err error
				p, err = l.d.OpenTask(name)
				return err
			},
			onChange: func(l *live, view string) {
				if p != nil && view == p.Key().String() && p.Graph() != nil {
					select {
					case <-ready:
					default:
						close(ready)
					}
				}
			},
			background: func(ctx context.Context, d *dashboard.Dashboard) error {
				wait, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				select {
				case <-ready:
				case <-wait.Done():
					if ctx.Err() != nil {
						return nil
					}
					return fmt.Errorf("no snapshot for %s within %s", name, timeout)
				}
				failed = flowsync.NewScheduler(d.ExportFunc(), dests, time.Hour, logger).Once(ctx)
				return errExported
			},
		}
		if err := runLive(cmd, v); err != nil && !errors.Is(err, errExported) {
			return err
		}
		switch {
		case failed < 0:
			return fmt.Errorf("export of %s interrupted", name)
		case failed > 0:
			return fmt.Errorf("export of %s failed for %d of %d destinations", name, failed, len(dests))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %d destination(s)\n", flowsync.ObjectName(name), len(dests))
		return nil
	},
}

func init() {
	exportCmd.Flags().String("dir", "", "write the export into this directory")
	exportCmd.Flags().Duration("timeout", 30*time.Second, "how long to wait for the first snapshot")
}

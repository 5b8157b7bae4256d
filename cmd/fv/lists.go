package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowview/internal/dashboard"
	"github.com/alfredjeanlab/flowview/internal/listing"
	"github.com/alfredjeanlab/flowview/internal/model"
)

// listOptions are the flags shared by the list views.
type listOptions struct {
	page int
	size int
	once bool
}

func readListOptions(cmd *cobra.Command) listOptions {
	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("size")
	once, _ := cmd.Flags().GetBool("once")
	return listOptions{page: page, size: size, once: once}
}

// listView renders a paginated feed. The first page comes from the feed URL;
// any other page is requested once the first one arrived.
func listView[T any](opts listOptions, open func(*dashboard.Dashboard) (*dashboard.Feed[T], error), render func(io.Writer, listing.State[T])) liveView {
	c := *cfg
	if opts.size > 0 {
		c.PageSize = opts.size
	}
	var feed *dashboard.Feed[T]
	jumped := opts.page <= 1
	// quit releases the feed before the view stops.
	quit := func(l *live) {
		if feed != nil {
			l.d.CloseFeed(feed.Channel())
			feed = nil
		}
		l.stop()
	}
	return liveView{
		cfg: &c,
		setup: func(l *live) error {
			f, err := open(l.d)
			if err != nil {
				return err
			}
			feed = f
			return nil
		},
		onChange: func(l *live, view string) {
			if feed == nil || view != feed.Kind().String() {
				return
			}
			ctl := feed.Controller()
			if !jumped {
				jumped = true
				ctl.RequestPage(opts.page, c.PageSize)
				return
			}
			render(l.out, ctl.State())
			if opts.once {
				quit(l)
			}
		},
		onKey: func(l *live, line string) {
			if feed != nil && !pageKey(feed.Controller(), line, func() { quit(l) }) {
				fmt.Fprintf(l.out, "unknown command %q (n, p, r, g <page>, s <size>, q)\n", line)
			}
		},
	}
}

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Short:   "Watch the task list",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := listView(readListOptions(cmd),
			func(d *dashboard.Dashboard) (*dashboard.Feed[model.Task], error) { return d.WatchTasks() },
			printTaskList)
		return runLive(cmd, v)
	},
}

var pipelinesCmd = &cobra.Command{
	Use:     "pipelines",
	Short:   "Watch the pipeline list",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := listView(readListOptions(cmd),
			func(d *dashboard.Dashboard) (*dashboard.Feed[model.Pipeline], error) { return d.WatchPipelines() },
			printPipelineList)
		return runLive(cmd, v)
	},
}

var buildsCmd = &cobra.Command{
	Use:     "builds <pipeline>",
	Short:   "Watch the builds of a pipeline",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline := args[0]
		v := listView(readListOptions(cmd),
			func(d *dashboard.Dashboard) (*dashboard.Feed[string], error) { return d.WatchBuilds(pipeline) },
			func(w io.Writer, s listing.State[string]) { printBuildList(w, pipeline, s) })
		return runLive(cmd, v)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{tasksCmd, pipelinesCmd, buildsCmd} {
		cmd.Flags().Int("page", 1, "page to show first")
		cmd.Flags().Int("size", 0, "page size (default FLOWVIEW_PAGE_SIZE)")
		cmd.Flags().Bool("once", false, "print one page and exit")
	}
}

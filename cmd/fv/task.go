package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowview/internal/client"
	"github.com/alfredjeanlab/flowview/internal/dashboard"
	"github.com/alfredjeanlab/flowview/internal/panel"
	flowsync "github.com/alfredjeanlab/flowview/internal/sync"
)

const defaultExportInterval = 30 * time.Second

var taskCmd = &cobra.Command{
	Use:     "task <name>",
	Short:   "Watch the step graph of a task",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		once, _ := cmd.Flags().GetBool("once")
		detail, _ := cmd.Flags().GetBool("detail")
		export, _ := cmd.Flags().GetBool("export")

		if detail {
			t, err := flowClient.GetTask(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("getting task %s: %w", name, err)
			}
			printTaskDetail(cmd.OutOrStdout(), t)
			fmt.Fprintln(cmd.OutOrStdout())
		}

		tv := newTaskView(name, cmd.ErrOrStderr())
		tv.once = once
		v := liveView{
			setup:    tv.setup,
			onChange: tv.render,
			onKey:    tv.command,
		}
		if export {
			v.background = exportLoop
		}
		return runLive(cmd, v)
	},
}

const taskUsage = `commands:
  open <step>              open a step panel, or bring it to the front
  close <step>             close one step panel
  close-all                close every step panel
  panels                   list open panels, front first
  kill|pause|resume <step> act on a step
  esc                      close the task panel and quit
  q                        quit`

// taskView shows a task graph and the output of every step panel opened
// on top of it. All methods run on the dashboard loop.
type taskView struct {
	name  string
	once  bool
	errw  io.Writer
	task  *panel.Panel
	tails map[string]*outputTail
}

func newTaskView(name string, errw io.Writer) *taskView {
	return &taskView{name: name, errw: errw, tails: make(map[string]*outputTail)}
}

func (v *taskView) setup(l *live) error {
	p, err := l.d.OpenTask(v.name)
	if err != nil {
		return err
	}
	v.task = p
	return nil
}

func (v *taskView) render(l *live, view string) {
	if v.task == nil {
		return
	}
	if view == v.task.Key().String() {
		printGraph(l.out, v.name, v.task.Graph())
		if v.once {
			l.stop()
		}
		return
	}
	if view == dashboard.PanelsView {
		for step := range v.tails {
			if _, ok := l.d.Panels().Lookup(panel.Key{Kind: panel.KindStep, ID: step}); !ok {
				delete(v.tails, step)
			}
		}
		return
	}
	step, ok := strings.CutPrefix(view, panel.KindStep.String()+":")
	if !ok {
		return
	}
	p, ok := l.d.Panels().Lookup(panel.Key{Kind: panel.KindStep, ID: step})
	if !ok {
		return
	}
	tail := v.tails[step]
	if tail == nil {
		tail = &outputTail{step: step}
		v.tails[step] = tail
	}
	tail.flush(l.out, v.errw, p.Output())
}

// command handles one line typed while the task view runs.
func (v *taskView) command(l *live, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	arg := ""
	if len(fields) == 2 {
		arg = fields[1]
	}
	switch verb := fields[0]; {
	case verb == "q" || verb == "quit":
		l.stop()
	case verb == "esc":
		l.d.Dismiss()
		fmt.Fprintf(l.out, "closed %s\n", v.name)
		l.stop()
	case verb == "close-all":
		l.d.CloseSteps()
	case verb == "panels":
		printPanels(l.out, l.d.Panels().Panels())
	case verb == "open" && arg != "":
		p, err := l.d.OpenStep(arg)
		if err != nil {
			fmt.Fprintf(l.out, "open %s: %v\n", arg, err)
			return
		}
		fmt.Fprintf(l.out, "%s on top (z=%d)\n", p.Key(), p.Z())
	case verb == "close" && arg != "":
		if !l.d.CloseStep(arg) {
			fmt.Fprintf(l.out, "step %s is not open\n", arg)
		}
	default:
		action, ok := client.ParseAction(verb)
		if !ok || arg == "" {
			fmt.Fprintln(l.out, taskUsage)
			return
		}
		v.stepAction(l, action, arg)
	}
}

// stepAction runs the request off the loop and reports back on it.
func (v *taskView) stepAction(l *live, action client.Action, step string) {
	go func() {
		err := flowClient.ManageStep(l.ctx, v.name, step, action)
		_ = l.d.Do(l.ctx, func() {
			if err != nil {
				fmt.Fprintf(l.out, "%s %s: %v\n", action, step, err)
				return
			}
			fmt.Fprintf(l.out, "%s %s: ok\n", action, step)
		})
	}()
}

// exportLoop writes periodic graph exports while the task view runs.
func exportLoop(ctx context.Context, d *dashboard.Dashboard) error {
	dests, err := dashboard.Destinations(ctx, d.Config())
	if err != nil {
		return err
	}
	if len(dests) == 0 {
		return fmt.Errorf("--export needs FLOWVIEW_EXPORT_DIR or FLOWVIEW_EXPORT_S3_BUCKET")
	}
	interval := d.Config().ExportInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}
	sched := flowsync.NewScheduler(d.ExportFunc(), dests, interval, logger)
	sched.Start()
	<-ctx.Done()
	sched.Stop()
	return nil
}

func init() {
	taskCmd.Flags().Bool("once", false, "print the first snapshot and exit")
	taskCmd.Flags().Bool("detail", false, "print task details before the graph")
	taskCmd.Flags().Bool("export", false, "export the graph periodically (FLOWVIEW_EXPORT_*)")
}

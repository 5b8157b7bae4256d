package main

import (
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowview/internal/panel"
)

var logsCmd = &cobra.Command{
	Use:     "logs <task> <step>",
	Short:   "Follow the output of a step",
	GroupID: "views",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, step := args[0], args[1]
		maxLines, _ := cmd.Flags().GetInt("max-lines")

		var p *panel.Panel
		tail := &outputTail{}
		return runLive(cmd, liveView{
			maxOutputLines: maxLines,
			setup: func(l *live) error {
				if _, err := l.d.OpenTask(task); err != nil {
					return err
				}
				var err error
				p, err = l.d.OpenStep(step)
				return err
			},
			onChange: func(l *live, view string) {
				if p == nil || view != p.Key().String() {
					return
				}
				tail.flush(l.out, cmd.ErrOrStderr(), p.Output())
			},
		})
	},
}

func init() {
	logsCmd.Flags().Int("max-lines", 10000, "output lines kept in memory (0 = unlimited)")
}

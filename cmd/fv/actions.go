package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowview/internal/client"
)

// actionCmd builds the kill/pause/resume commands, which act on a whole
// task or on one of its steps.
func actionCmd(action client.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:     string(action) + " <task> [step]",
		Short:   short,
		GroupID: "actions",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := args[0]
			if len(args) == 2 {
				step := args[1]
				if err := flowClient.ManageStep(cmd.Context(), task, step, action); err != nil {
					return fmt.Errorf("%s step %s/%s: %w", action, task, step, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s: ok\n", action, task, step)
				return nil
			}
			if err := flowClient.ManageTask(cmd.Context(), task, action); err != nil {
				return fmt.Errorf("%s task %s: %w", action, task, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: ok\n", action, task)
			return nil
		},
	}
}

var (
	killCmd   = actionCmd(client.ActionKill, "Kill a task or step")
	pauseCmd  = actionCmd(client.ActionPause, "Pause a task or step")
	resumeCmd = actionCmd(client.ActionResume, "Resume a paused task or step")
)

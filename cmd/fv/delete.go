package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <task>...",
	Short:   "Delete one or more tasks",
	GroupID: "actions",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range args {
			if err := flowClient.DeleteTask(cmd.Context(), name); err != nil {
				return fmt.Errorf("deleting %s: %w", name, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", name)
		}
		return nil
	},
}

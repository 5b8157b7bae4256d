package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowview/internal/client"
	"github.com/alfredjeanlab/flowview/internal/model"
)

var createCmd = &cobra.Command{
	Use:     "create -f <file>",
	Short:   "Submit a task from a YAML definition",
	GroupID: "actions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if file == "" {
			return fmt.Errorf("--file is required (use - for stdin)")
		}

		var (
			data []byte
			err  error
		)
		if file == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(file)
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}

		spec, err := client.ParseTaskSpec(data)
		if err != nil {
			return err
		}
		if dryRun {
			if err := model.ValidateTaskSpec(spec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d steps, valid\n", spec.Name, len(spec.Step))
			return nil
		}

		created, err := flowClient.CreateTask(cmd.Context(), spec)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), created)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created task %s (%d steps)\n", created.Name, created.Count)
		return nil
	},
}

func init() {
	createCmd.Flags().StringP("file", "f", "", "task definition (YAML), - for stdin")
	createCmd.Flags().Bool("dry-run", false, "validate locally without submitting")
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowview/internal/client"
	"github.com/alfredjeanlab/flowview/internal/config"
	"github.com/alfredjeanlab/flowview/internal/ui"
)

var (
	urlFlag    string
	tokenFlag  string
	jsonOutput bool
	verbose    bool
	logJSON    bool
	noColor    bool

	cfg        *config.Config
	flowClient client.FlowClient
	logger     = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:           "fv <command>",
	Short:         "Live terminal client for the flow engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(os.Stderr, verbose, logJSON)
		slog.SetDefault(logger)
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if urlFlag != "" {
			c.URL = urlFlag
			if c.WSURL, err = config.DeriveWSURL(urlFlag); err != nil {
				return fmt.Errorf("--url: %w", err)
			}
		}
		if tokenFlag != "" {
			c.Token = tokenFlag
		}
		cfg = c
		flowClient = client.NewHTTPClient(cfg.APIURL(), cfg.Token)
		logger.Debug("fv: configured", "api", cfg.APIURL(), "ws", cfg.WSBase(), "remote", cfg.Remote)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if flowClient != nil {
			flowClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&urlFlag, "url", "", "engine URL (overrides FLOWVIEW_URL and the active remote)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "bearer token (overrides FLOWVIEW_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON to stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable ANSI colors")

	rootCmd.AddGroup(
		&cobra.Group{ID: "views", Title: "Live views:"},
		&cobra.Group{ID: "actions", Title: "Actions:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Live views
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(pipelinesCmd)
	rootCmd.AddCommand(buildsCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(eventsCmd)

	// Actions
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(exportCmd)

	// System
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderError("Error: ")+err.Error())
		os.Exit(1)
	}
}

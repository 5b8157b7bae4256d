package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowview/internal/config"
)

var remoteCmd = &cobra.Command{
	Use:     "remote",
	Short:   "Manage named engine remotes",
	GroupID: "system",
	// Remote subcommands only touch remotes.toml, so the engine config is not loaded.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(os.Stderr, verbose, logJSON)
		return nil
	},
}

// editRemotes loads the remotes file, applies edit and saves the result.
// The message edit returns is printed once the file is written.
func editRemotes(w io.Writer, edit func(*config.RemotesConfig) (string, error)) error {
	rc, err := config.LoadRemotes()
	if err != nil {
		return err
	}
	msg, err := edit(&rc)
	if err != nil {
		return err
	}
	if err := config.SaveRemotes(rc); err != nil {
		return err
	}
	logger.Debug("remote: saved", "active", rc.Active, "count", len(rc.Remotes))
	fmt.Fprintln(w, msg)
	return nil
}

func lookupRemote(rc *config.RemotesConfig, name string) (config.Remote, error) {
	r, ok := rc.Remotes[name]
	if !ok {
		return r, fmt.Errorf("remote %q not found (see 'fv remote list')", name)
	}
	return r, nil
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add or update a named remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := args[0], args[1]
		if _, err := config.DeriveWSURL(url); err != nil {
			return fmt.Errorf("remote %q: %w", name, err)
		}
		flags := cmd.Flags()
		r := config.Remote{URL: url}
		r.WSURL, _ = flags.GetString("ws-url")
		r.Token, _ = flags.GetString("token")
		r.NATSURL, _ = flags.GetString("nats")
		r.Description, _ = flags.GetString("description")

		return editRemotes(cmd.OutOrStdout(), func(rc *config.RemotesConfig) (string, error) {
			_, existed := rc.Remotes[name]
			rc.Remotes[name] = r
			if existed {
				return fmt.Sprintf("remote %q updated (%s)", name, url), nil
			}
			return fmt.Sprintf("remote %q added (%s)", name, url), nil
		})
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a named remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		return editRemotes(cmd.OutOrStdout(), func(rc *config.RemotesConfig) (string, error) {
			if _, err := lookupRemote(rc, name); err != nil {
				return "", err
			}
			delete(rc.Remotes, name)
			if rc.Active == name {
				rc.Active = ""
			}
			return fmt.Sprintf("remote %q removed", name), nil
		})
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Select the active remote; without a name the selection is cleared",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editRemotes(cmd.OutOrStdout(), func(rc *config.RemotesConfig) (string, error) {
			if len(args) == 0 {
				rc.Active = ""
				return "active remote cleared", nil
			}
			if _, err := lookupRemote(rc, args[0]); err != nil {
				return "", err
			}
			rc.Active = args[0]
			return fmt.Sprintf("now using remote %q", args[0]), nil
		})
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured remotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := config.LoadRemotes()
		if err != nil {
			return err
		}
		if len(rc.Remotes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no remotes configured (add one with 'fv remote add')")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  NAME\tURL\tNATS\tTOKEN\tDESCRIPTION")
		for _, name := range rc.Names() {
			r := rc.Remotes[name]
			marker := "  "
			if name == rc.Active {
				marker = "* "
			}
			fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\t%s\n", marker, name, r.URL, r.NATSURL, maskToken(r.Token, "..."), r.Description)
		}
		return tw.Flush()
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show one remote (the active one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := config.LoadRemotes()
		if err != nil {
			return err
		}
		name := rc.Active
		if len(args) == 1 {
			name = args[0]
		}
		if name == "" {
			return fmt.Errorf("no active remote: pass a name or run 'fv remote use <name>'")
		}
		r, err := lookupRemote(&rc, name)
		if err != nil {
			return err
		}

		if name == rc.Active {
			name += " (active)"
		}
		ws := r.WSURL
		if ws == "" {
			ws, _ = config.DeriveWSURL(r.URL)
			ws += " (derived)"
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, row := range [][2]string{
			{"name", name},
			{"description", r.Description},
			{"url", r.URL},
			{"ws_url", ws},
			{"nats_url", r.NATSURL},
			{"token", maskToken(r.Token, "*")},
		} {
			if row[1] != "" {
				fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1])
			}
		}
		return tw.Flush()
	},
}

// maskToken keeps the first 8 characters of token. A "*" mask stars out the
// rest character by character; any other mask replaces it whole.
func maskToken(token, mask string) string {
	if len(token) <= 8 {
		return token
	}
	if mask == "*" {
		return token[:8] + strings.Repeat("*", len(token)-8)
	}
	return token[:8] + mask
}

func init() {
	f := remoteAddCmd.Flags()
	f.String("ws-url", "", "websocket origin, when it is not derived from the url")
	f.String("token", "", "bearer token sent to the engine")
	f.String("nats", "", "NATS URL for the event ticker")
	f.String("description", "", "free-form description")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteListCmd, remoteUseCmd, remoteShowCmd)
}

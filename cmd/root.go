// Package cmd defines and implements the CLI commands for the inkbot
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inkbot",
		Short: "A reply bot for fountain pen ink review links.",
		Long: `inkbot watches a subreddit comment feed for [[ink name]] tokens,
matches them against a curated catalog of ink review links, and replies
with a markdown list of the best matches. Replies are deduplicated so a
comment is never answered twice, even across restarts.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.inkbot.yaml)")

	cmd.AddCommand(newRunCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "command execution failed: %v\n", err)
		os.Exit(1)
	}
}

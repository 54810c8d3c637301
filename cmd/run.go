package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inklinks/inkbot/internal/app"
	"github.com/inklinks/inkbot/internal/config"
)

// newRunCmd creates and configures the 'run' subcommand, which starts the
// bot and blocks until it receives SIGINT or SIGTERM.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Starts the reply bot",
		Long: `Authenticates against Reddit, loads the ink catalog from Airtable,
and watches the configured subreddit comment feed. The bot restarts its
session on failure and keeps running until interrupted.`,

		RunE: runBotCommand,
	}
	return cmd
}

func runBotCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize application services: %w", err)
	}
	defer a.Close()

	zap.ReplaceGlobals(a.Logger())

	a.StartOps()

	if err := a.Supervisor().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run bot: %w", err)
	}

	a.Logger().Info("shutdown complete")
	return nil
}

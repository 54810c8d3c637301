// Package app initializes and holds long-lived application services, acting
// as a dependency injection container. Session-scoped state (feed session,
// rule store, dedupe ledger) is deliberately NOT held here: the supervisor
// rebuilds it fresh on every iteration.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inklinks/inkbot/internal/airtable"
	"github.com/inklinks/inkbot/internal/bot"
	"github.com/inklinks/inkbot/internal/clock/system"
	"github.com/inklinks/inkbot/internal/config"
	"github.com/inklinks/inkbot/internal/consumer"
	"github.com/inklinks/inkbot/internal/dedupe"
	"github.com/inklinks/inkbot/internal/logging"
	"github.com/inklinks/inkbot/internal/metrics"
	"github.com/inklinks/inkbot/internal/notify"
	"github.com/inklinks/inkbot/internal/ops"
	"github.com/inklinks/inkbot/internal/publish"
	"github.com/inklinks/inkbot/internal/reddit"
	"github.com/inklinks/inkbot/internal/rules"
	"github.com/inklinks/inkbot/internal/supervisor"
)

// App holds the shared, long-lived services for the bot.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	notifier bot.Notifier
	ops      *ops.Server
}

// New creates and initializes an App from the loaded configuration. It is
// designed to fail fast if any critical service cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	metrics.Init()

	var notifier bot.Notifier
	switch cfg.Notify.Provider {
	case "pubsub":
		logger.Info("using pubsub notify provider", zap.String("topic", cfg.Notify.TopicName))
		notifier, err = notify.NewPubSubProvider(ctx, cfg.Notify.ProjectID, cfg.Notify.TopicName)
		if err != nil {
			return nil, fmt.Errorf("initialize notifier: %w", err)
		}
	case "noop":
		notifier = notify.NoOpProvider{}
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", cfg.Notify.Provider)
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		notifier: notifier,
		ops:      ops.NewServer(cfg.Server.Port, logger),
	}, nil
}

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// StartOps begins serving the operational HTTP endpoints in the background.
func (a *App) StartOps() {
	a.ops.Start()
}

// Supervisor assembles the restart loop with per-iteration factories for the
// session, rule source, dedupe ledger, and consumer.
func (a *App) Supervisor() *supervisor.Supervisor {
	cfg := a.cfg

	deps := supervisor.Deps{
		OpenSession: func(ctx context.Context) (bot.Session, error) {
			return reddit.Open(ctx, reddit.Config{
				Credentials: reddit.Credentials{
					Username:     cfg.Reddit.Username,
					Password:     cfg.Reddit.Password,
					ClientID:     cfg.Reddit.ClientID,
					ClientSecret: cfg.Reddit.ClientSecret,
					UserAgent:    cfg.Reddit.UserAgent,
				},
				PollInterval: cfg.PollInterval(),
				PageLimit:    cfg.Reddit.PageLimit,
			}, a.logger)
		},
		RuleSource: airtable.New(airtable.Config{
			APIKey:     cfg.Airtable.APIKey,
			BaseID:     cfg.Airtable.BaseID,
			Table:      cfg.Airtable.Table,
			APIVersion: cfg.Airtable.APIVersion,
			Timeout:    cfg.AirtableTimeout(),
		}, a.logger),
		OpenDedupe: a.openDedupe,
		NewRunner: func(ruleStore *rules.Store, store bot.DedupeStore, session bot.Session) supervisor.Runner {
			pub := publish.New(session, cfg.Publish.MaxAttempts, cfg.PublishWait(), a.logger)
			return consumer.New(ruleStore, store, pub, a.notifier, system.New(), a.logger)
		},
	}

	return supervisor.New(deps, cfg.Reddit.Subreddit, cfg.RestartWait(), a.logger)
}

// openDedupe opens the configured dedupe ledger backend. Called once per
// supervisor iteration; the supervisor closes it on every exit path.
func (a *App) openDedupe(ctx context.Context) (bot.DedupeStore, error) {
	switch a.cfg.Store.Provider {
	case "sqlite":
		path, err := a.cfg.StorePath()
		if err != nil {
			return nil, err
		}
		a.logger.Debug("opening sqlite dedupe store", zap.String("path", path))
		return dedupe.OpenSQLite(path)
	case "postgres":
		a.logger.Debug("opening postgres dedupe store")
		return dedupe.OpenPostgres(ctx, dedupe.PostgresConfig{
			DSN:   a.cfg.Store.DSN,
			Table: a.cfg.Store.Table,
		})
	default:
		return nil, fmt.Errorf("unknown store provider: %s", a.cfg.Store.Provider)
	}
}

// Close gracefully shuts down all services in the container.
func (a *App) Close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.ops.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("error shutting down ops server", zap.Error(err))
	}
	if err := a.notifier.Close(); err != nil {
		a.logger.Warn("error closing notifier", zap.Error(err))
	}
	// Sync failures on stderr are expected on some platforms.
	_ = a.logger.Sync()
}

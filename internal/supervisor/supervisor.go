// Package supervisor owns the consume loop's lifecycle.
//
// Each iteration builds one full session from scratch: an authenticated feed
// session, a freshly loaded rule store, and a newly opened dedupe store. When
// the session fails, everything is closed, the supervisor waits a fixed
// interval, and the next iteration starts over. The loop is explicit and
// unbounded: the bot is meant to run unattended indefinitely, and every
// failure after the first successful bootstrap is treated as transient
// relative to the lifetime of the host process.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inklinks/inkbot/internal/bot"
	"github.com/inklinks/inkbot/internal/metrics"
	"github.com/inklinks/inkbot/internal/rules"
)

// Runner consumes a comment stream until it fails or the context finishes.
type Runner interface {
	Run(ctx context.Context, stream bot.CommentStream) error
}

// Deps carries the factories the supervisor uses to rebuild a session.
type Deps struct {
	OpenSession func(ctx context.Context) (bot.Session, error)
	RuleSource  bot.RuleSource
	OpenDedupe  func(ctx context.Context) (bot.DedupeStore, error)
	NewRunner   func(ruleStore *rules.Store, dedupe bot.DedupeStore, session bot.Session) Runner
}

// Supervisor wraps the consumer in a restart loop.
type Supervisor struct {
	deps      Deps
	subreddit string
	wait      time.Duration
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error
}

// New constructs a Supervisor.
func New(deps Deps, subreddit string, wait time.Duration, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		deps:      deps,
		subreddit: subreddit,
		wait:      wait,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// Run blocks until ctx is canceled. A failure before the first session was
// ever established is a configuration or bootstrap problem and is returned
// immediately; after that, failures restart the session forever.
func (s *Supervisor) Run(ctx context.Context) error {
	bootstrapped := false
	for {
		started, err := s.runOnce(ctx)
		if started {
			bootstrapped = true
		}
		if ctx.Err() != nil || err == nil {
			// Operator-requested shutdown: cleanup already ran, do not restart.
			s.logger.Info("supervisor stopping")
			return nil
		}
		if !bootstrapped {
			return fmt.Errorf("bootstrap failed: %w", err)
		}
		metrics.SupervisorRestarted()
		s.logger.Error("session failed, restarting",
			zap.Error(err),
			zap.Duration("wait", s.wait),
		)
		if serr := s.sleep(ctx, s.wait); serr != nil {
			s.logger.Info("supervisor stopping")
			return nil
		}
	}
}

// runOnce builds and runs one session. started reports whether the session
// was fully assembled before the failure, which separates bootstrap errors
// from run-time ones. Every acquired resource is released on every exit path.
func (s *Supervisor) runOnce(ctx context.Context) (started bool, err error) {
	session, err := s.deps.OpenSession(ctx)
	if err != nil {
		return false, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			s.logger.Warn("close session", zap.Error(cerr))
		}
	}()

	ruleStore, err := rules.Load(ctx, s.deps.RuleSource, s.logger)
	if err != nil {
		return false, err
	}
	metrics.RulesLoaded(ruleStore.Len())
	s.logger.Info("rules loaded", zap.Int("count", ruleStore.Len()))

	dedupe, err := s.deps.OpenDedupe(ctx)
	if err != nil {
		return false, fmt.Errorf("open dedupe store: %w", err)
	}
	defer func() {
		if cerr := dedupe.Close(); cerr != nil {
			s.logger.Warn("close dedupe store", zap.Error(cerr))
		}
	}()

	stream, err := session.Stream(ctx, s.subreddit)
	if err != nil {
		return false, fmt.Errorf("open comment stream: %w", err)
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			s.logger.Warn("close comment stream", zap.Error(cerr))
		}
	}()

	runner := s.deps.NewRunner(ruleStore, dedupe, session)
	return true, runner.Run(ctx, stream)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Package publish posts formatted replies with bounded retry.
//
// Transient failures sleep a fixed wait interval before the next attempt.
// The wait is applied between attempts only: once the budget is exhausted the
// final error is returned immediately, with no trailing sleep. Non-transient
// failures abort at once without consuming budget. Both exhaustion and
// non-transient failure are returned to the caller as systemic errors, since
// they usually mean the outbound channel itself is unhealthy.
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inklinks/inkbot/internal/bot"
	"github.com/inklinks/inkbot/internal/metrics"
)

// defaultMaxAttempts bounds how many times one reply is attempted.
const defaultMaxAttempts = 20

// Poster is the outbound side of a feed session.
type Poster interface {
	Reply(ctx context.Context, commentID, body string) (string, error)
}

// Publisher retries transient posting failures with a fixed wait interval.
type Publisher struct {
	poster      Poster
	maxAttempts int
	wait        time.Duration
	logger      *zap.Logger
	sleep       func(context.Context, time.Duration) error
}

// New constructs a Publisher. A non-positive maxAttempts falls back to the
// default budget.
func New(poster Poster, maxAttempts int, wait time.Duration, logger *zap.Logger) *Publisher {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		poster:      poster,
		maxAttempts: maxAttempts,
		wait:        wait,
		logger:      logger,
		sleep:       sleepContext,
	}
}

// Publish posts body as a reply to commentID and returns the reply id.
func (p *Publisher) Publish(ctx context.Context, commentID, body string) (string, error) {
	callID := uuid.NewString()
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		replyID, err := p.poster.Reply(ctx, commentID, body)
		if err == nil {
			if attempt > 1 {
				p.logger.Info("reply posted after retries",
					zap.String("call_id", callID),
					zap.String("comment_id", commentID),
					zap.Int("attempts", attempt),
				)
			}
			return replyID, nil
		}
		if !bot.IsTransient(err) {
			return "", fmt.Errorf("post reply to %s: %w", commentID, err)
		}
		lastErr = err
		metrics.PublishRetried()
		p.logger.Warn("transient publish failure",
			zap.String("call_id", callID),
			zap.String("comment_id", commentID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == p.maxAttempts {
			break
		}
		if err := p.sleep(ctx, p.wait); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("retry budget exhausted for %s after %d attempts: %w",
		commentID, p.maxAttempts, lastErr)
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

// Package consumer implements the sequential pipeline that drives each feed
// comment through token extraction, matching, formatting, and publishing.
package consumer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inklinks/inkbot/internal/bot"
	"github.com/inklinks/inkbot/internal/metrics"
	"github.com/inklinks/inkbot/internal/publish"
	"github.com/inklinks/inkbot/internal/reply"
	"github.com/inklinks/inkbot/internal/rules"
)

// Consumer processes comments strictly in feed order. Dedupe correctness and
// retry backoff reasoning both assume one in-flight publish at a time, so
// there is deliberately no concurrency here.
type Consumer struct {
	rules    *rules.Store
	dedupe   bot.DedupeStore
	pub      *publish.Publisher
	notifier bot.Notifier
	clock    bot.Clock
	logger   *zap.Logger
}

// New constructs a Consumer. notifier may be nil when no downstream queue is
// configured.
func New(
	ruleStore *rules.Store,
	dedupe bot.DedupeStore,
	pub *publish.Publisher,
	notifier bot.Notifier,
	clock bot.Clock,
	logger *zap.Logger,
) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		rules:    ruleStore,
		dedupe:   dedupe,
		pub:      pub,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// Run consumes the stream until it fails or ctx is canceled. Any error from
// processing is systemic and propagates to the supervisor.
func (c *Consumer) Run(ctx context.Context, stream bot.CommentStream) error {
	for {
		comment, err := stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("next comment: %w", err)
		}
		if err := c.process(ctx, comment); err != nil {
			return err
		}
	}
}

func (c *Consumer) process(ctx context.Context, comment bot.Comment) error {
	tokens := extractTokens(comment.Body)
	if len(tokens) == 0 {
		metrics.CommentSeen("no_tokens")
		return nil
	}

	seen, err := c.dedupe.Exists(ctx, comment.ID)
	if err != nil {
		return fmt.Errorf("dedupe lookup %s: %w", comment.ID, err)
	}
	if seen {
		metrics.CommentSeen("duplicate")
		c.logger.Debug("comment already handled", zap.String("comment_id", comment.ID))
		return nil
	}

	matches := make([]*bot.Rule, 0, len(tokens))
	for _, token := range tokens {
		matches = append(matches, c.rules.BestMatch(token))
	}

	body := reply.Format(matches)
	if body == "" {
		metrics.CommentSeen("no_match")
		return nil
	}

	replyID, err := c.pub.Publish(ctx, comment.ID, body)
	if err != nil {
		return err
	}

	// The dedupe write happens only after a confirmed successful post; the
	// entry must be durable before we move on.
	if err := c.dedupe.Record(ctx, comment.ID, replyID); err != nil {
		return fmt.Errorf("record dedupe entry %s: %w", comment.ID, err)
	}

	metrics.CommentSeen("replied")
	metrics.ReplyPosted()
	c.logger.Info("reply posted",
		zap.String("comment_id", comment.ID),
		zap.String("reply_id", replyID),
		zap.Int("tokens", len(tokens)),
	)

	c.publishEvent(ctx, comment, replyID, matches)
	return nil
}

// publishEvent emits a reply-posted notification. Notification failures are
// logged, not escalated: the reply itself is already posted and recorded.
func (c *Consumer) publishEvent(ctx context.Context, comment bot.Comment, replyID string, matches []*bot.Rule) {
	if c.notifier == nil {
		return
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if m != nil {
			names = append(names, m.Name)
		}
	}
	event := bot.ReplyEvent{
		EventID:   uuid.NewString(),
		CommentID: comment.ID,
		ReplyID:   replyID,
		Rules:     names,
		PostedAt:  c.clock.Now(),
	}
	if err := c.notifier.Publish(ctx, event); err != nil {
		c.logger.Warn("reply event publish failed",
			zap.String("comment_id", comment.ID),
			zap.Error(err),
		)
	}
}

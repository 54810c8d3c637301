// Package notify pushes reply-posted events to downstream consumers.
// This abstraction keeps the bot independent of a specific message queue;
// the default NoOp provider is for deployments with nothing downstream.
package notify

import (
	"context"

	"github.com/inklinks/inkbot/internal/bot"
)

// NoOpProvider drops events. It is useful for testing or running the bot
// without a real message queue.
type NoOpProvider struct{}

// Publish for NoOpProvider does nothing and returns nil.
func (NoOpProvider) Publish(context.Context, bot.ReplyEvent) error { return nil }

// Close for NoOpProvider does nothing and returns nil.
func (NoOpProvider) Close() error { return nil }

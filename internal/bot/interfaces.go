package bot

import (
	"context"
	"time"
)

// RuleSource fetches the full ordered rule table from the external source.
type RuleSource interface {
	FetchAllRules(ctx context.Context) ([]RuleRecord, error)
}

// CommentStream yields comments from the feed in feed order. Next blocks
// until an item is available or the context finishes.
type CommentStream interface {
	Next(ctx context.Context) (Comment, error)
	Close() error
}

// Session is an authenticated connection to the feed, able to both read
// comments and post replies.
type Session interface {
	Me(ctx context.Context) (string, error)
	Stream(ctx context.Context, subreddit string) (CommentStream, error)
	Reply(ctx context.Context, commentID, body string) (string, error)
	Close() error
}

// DedupeStore is the durable ledger of comment ids already replied to.
// Record must be flushed to stable storage before it returns.
type DedupeStore interface {
	Exists(ctx context.Context, commentID string) (bool, error)
	Record(ctx context.Context, commentID, replyID string) error
	Close() error
}

// Notifier pushes reply-posted events to downstream consumers.
type Notifier interface {
	Publish(ctx context.Context, event ReplyEvent) error
	Close() error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

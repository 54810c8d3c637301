// Package bot defines the core types and interfaces for the reply bot
// pipeline. It includes the rule, comment, and match records plus the
// boundary contracts the consumer is wired against.
package bot

import (
	"regexp"
	"time"
)

// RuleRecord is a raw rule row as delivered by the rule source, before
// pattern compilation. Records missing any field are dropped during load.
type RuleRecord struct {
	Name    string
	Pattern string
	Target  string
}

// Rule is an immutable, compiled rule: a named pattern mapped to a link
// target. The pattern is compiled case-insensitively exactly once, at load.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Target  string
}

// Comment is one item from the live feed. Read-only to this system.
type Comment struct {
	ID     string
	Author string
	Body   string
}

// Match pairs a rule with the length of the substring its pattern matched
// inside a token.
type Match struct {
	Rule   *Rule
	Length int
}

// ReplyEvent describes a successfully posted reply, for downstream
// notification.
type ReplyEvent struct {
	EventID   string    `json:"event_id"`
	CommentID string    `json:"comment_id"`
	ReplyID   string    `json:"reply_id"`
	Rules     []string  `json:"rules"`
	PostedAt  time.Time `json:"posted_at"`
}

// Package rules holds the loaded rule set and implements best-match
// selection over it. The store is built once per session and is immutable
// afterwards, so it is safe for concurrent readers.
package rules

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/inklinks/inkbot/internal/bot"
)

// Store is the compiled, ordered rule set for one session.
type Store struct {
	rules []bot.Rule
}

// Load fetches all rule records from source and compiles their patterns
// case-insensitively. Records missing a name, pattern, or target are dropped
// silently. A pattern that fails to compile indicates corrupt source data and
// aborts the whole load.
func Load(ctx context.Context, source bot.RuleSource, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	records, err := source.FetchAllRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch rules: %w", err)
	}

	compiled := make([]bot.Rule, 0, len(records))
	for _, rec := range records {
		if rec.Name == "" || rec.Pattern == "" || rec.Target == "" {
			logger.Debug("dropping incomplete rule record", zap.String("name", rec.Name))
			continue
		}
		re, err := regexp.Compile("(?i)" + rec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern for rule %q: %w", rec.Name, err)
		}
		compiled = append(compiled, bot.Rule{
			Name:    rec.Name,
			Pattern: re,
			Target:  rec.Target,
		})
	}
	return &Store{rules: compiled}, nil
}

// Rules returns the rule set in load order. Callers must not mutate it.
func (s *Store) Rules() []bot.Rule {
	return s.rules
}

// Len returns the number of loaded rules.
func (s *Store) Len() int {
	return len(s.rules)
}

// BestMatch selects the best rule for token, or nil.
func (s *Store) BestMatch(token string) *bot.Rule {
	return BestMatch(s.rules, token)
}

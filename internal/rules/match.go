package rules

import "github.com/inklinks/inkbot/internal/bot"

// minMatchLen is a strict lower bound on the matched substring length. A
// candidate whose pattern matched exactly this many characters does not
// qualify.
const minMatchLen = 5

// BestMatch scans rules in order and returns the rule whose pattern matched
// the longest substring of token. Rule patterns may nest or overlap (a brand
// pattern and a more specific product-line pattern), so the longest matched
// span approximates the most specific rule. Ties keep the earliest rule in
// load order. Returns nil when no match is longer than minMatchLen.
func BestMatch(rules []bot.Rule, token string) *bot.Rule {
	var best *bot.Rule
	bestLen := minMatchLen
	for i := range rules {
		loc := rules[i].Pattern.FindStringIndex(token)
		if loc == nil {
			continue
		}
		if n := loc[1] - loc[0]; n > bestLen {
			best = &rules[i]
			bestLen = n
		}
	}
	return best
}

package rules

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inklinks/inkbot/internal/bot"
)

func mustRule(name, pattern string) bot.Rule {
	return bot.Rule{
		Name:    name,
		Pattern: regexp.MustCompile("(?i)" + pattern),
		Target:  "https://img.example/" + name,
	}
}

func TestBestMatch_LongestWins(t *testing.T) {
	t.Parallel()

	ruleSet := []bot.Rule{
		mustRule("brand", `Noodle`),
		mustRule("product", `Noodler's Black`),
	}

	got := BestMatch(ruleSet, "Noodler's Black")
	require.NotNil(t, got)
	require.Equal(t, "product", got.Name)
}

func TestBestMatch_TieKeepsEarliestRule(t *testing.T) {
	t.Parallel()

	ruleSet := []bot.Rule{
		mustRule("first", `Iroshi`),
		mustRule("second", `roshin`),
	}

	// Both match 6 characters; load order breaks the tie.
	got := BestMatch(ruleSet, "Pilot Iroshin")
	require.NotNil(t, got)
	require.Equal(t, "first", got.Name)
}

func TestBestMatch_ThresholdIsStrict(t *testing.T) {
	t.Parallel()

	ruleSet := []bot.Rule{
		mustRule("five", `abcde`),
		mustRule("six", `fghijk`),
	}

	require.Nil(t, BestMatch(ruleSet, "abcde"), "a 5-char match must not qualify")

	got := BestMatch(ruleSet, "fghijk")
	require.NotNil(t, got)
	require.Equal(t, "six", got.Name)
}

func TestBestMatch_NoRuleMatches(t *testing.T) {
	t.Parallel()

	ruleSet := []bot.Rule{
		mustRule("only", `Iroshizuku`),
	}

	require.Nil(t, BestMatch(ruleSet, "xyz"))
	require.Nil(t, BestMatch(nil, "anything"))
}

func TestBestMatch_CaseInsensitive(t *testing.T) {
	t.Parallel()

	ruleSet := []bot.Rule{
		mustRule("iro", `iroshizuku`),
	}

	got := BestMatch(ruleSet, "PILOT IROSHIZUKU KON-PEKI")
	require.NotNil(t, got)
	require.Equal(t, "iro", got.Name)
}

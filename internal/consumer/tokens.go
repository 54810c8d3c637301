package consumer

import (
	"regexp"
	"strings"
)

// tokenPattern captures the text between [[ and ]], non-greedily, so
// adjacent tokens in one comment stay separate.
var tokenPattern = regexp.MustCompile(`\[\[(.*?)\]\]`)

// escapeStripper removes markdown backslash escapes in front of brackets so
// that an escaped [[name]] is still seen by extraction.
var escapeStripper = strings.NewReplacer(`\[`, "[", `\]`, "]")

// extractTokens returns the bracket-delimited tokens of body, in order of
// appearance, after stripping backslash escapes.
func extractTokens(body string) []string {
	groups := tokenPattern.FindAllStringSubmatch(escapeStripper.Replace(body), -1)
	if len(groups) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(groups))
	for _, g := range groups {
		tokens = append(tokens, g[1])
	}
	return tokens
}

// Package reply renders matched rules into the reply body posted to the feed.
package reply

import (
	"fmt"
	"strings"

	"github.com/inklinks/inkbot/internal/bot"
)

// Format emits one markdown list line per matched rule, in the order the
// tokens appeared in the comment. Nil entries and rules whose target could
// not be resolved are skipped here rather than at load, so one bad rule never
// kills the whole comment's reply. An empty return means "do not reply";
// callers must never post an empty body.
func Format(matches []*bot.Rule) string {
	var b strings.Builder
	for _, m := range matches {
		if m == nil || m.Name == "" || m.Target == "" {
			continue
		}
		fmt.Fprintf(&b, "* [%s](%s)   \n", m.Name, m.Target)
	}
	return b.String()
}

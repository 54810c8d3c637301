package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/inklinks/inkbot/internal/bot"
)

// anchorResetThreshold is how many consecutive empty pages the stream
// tolerates before assuming its anchor comment was deleted and the window
// must be re-opened. Re-opening can surface comments already handled; the
// dedupe ledger makes that safe.
const anchorResetThreshold = 10

// commentStream polls the subreddit's newest-comments listing, anchored on
// the fullname of the newest comment seen so far. Next blocks until a new
// comment is available or the context finishes.
type commentStream struct {
	session   *Session
	subreddit string

	before     string
	pending    []bot.Comment
	emptyPolls int
}

func (st *commentStream) Next(ctx context.Context) (bot.Comment, error) {
	for {
		if len(st.pending) > 0 {
			c := st.pending[0]
			st.pending = st.pending[1:]
			return c, nil
		}

		page, newest, err := st.session.newComments(ctx, st.subreddit, st.before)
		if err != nil {
			return bot.Comment{}, err
		}
		if len(page) > 0 {
			st.before = newest
			st.emptyPolls = 0
			st.pending = page
			continue
		}

		st.emptyPolls++
		if st.before != "" && st.emptyPolls >= anchorResetThreshold {
			st.before = ""
			st.emptyPolls = 0
		}
		if err := sleepContext(ctx, st.session.cfg.PollInterval); err != nil {
			return bot.Comment{}, err
		}
	}
}

func (st *commentStream) Close() error { return nil }

type listing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID     string `json:"id"`
				Name   string `json:"name"`
				Author string `json:"author"`
				Body   string `json:"body"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// newComments fetches one page of the subreddit's comment listing. The
// listing arrives newest-first; the returned slice is reversed into feed
// order. newest is the fullname to anchor the next poll on.
func (s *Session) newComments(ctx context.Context, subreddit, before string) ([]bot.Comment, string, error) {
	q := url.Values{
		"limit":    {strconv.Itoa(s.cfg.PageLimit)},
		"raw_json": {"1"},
	}
	if before != "" {
		q.Set("before", before)
	}
	endpoint := fmt.Sprintf("%s/r/%s/comments?%s", s.cfg.APIURL, subreddit, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build listing request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch comment listing: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("comment listing returned %d", resp.StatusCode)
	}

	var page listing
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, "", fmt.Errorf("decode comment listing: %w", err)
	}

	children := page.Data.Children
	if len(children) == 0 {
		return nil, "", nil
	}
	newest := children[0].Data.Name

	comments := make([]bot.Comment, 0, len(children))
	for i := len(children) - 1; i >= 0; i-- {
		child := children[i]
		if child.Kind != "t1" {
			continue
		}
		comments = append(comments, bot.Comment{
			ID:     child.Data.ID,
			Author: child.Data.Author,
			Body:   child.Data.Body,
		})
	}
	return comments, newest, nil
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

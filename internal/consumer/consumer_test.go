package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inklinks/inkbot/internal/bot"
	"github.com/inklinks/inkbot/internal/publish"
	"github.com/inklinks/inkbot/internal/rules"
)

var errDrained = errors.New("stream drained")

type fakeStream struct {
	comments []bot.Comment
}

func (f *fakeStream) Next(context.Context) (bot.Comment, error) {
	if len(f.comments) == 0 {
		return bot.Comment{}, errDrained
	}
	c := f.comments[0]
	f.comments = f.comments[1:]
	return c, nil
}

func (f *fakeStream) Close() error { return nil }

type memDedupe struct {
	entries map[string]string
}

func newMemDedupe() *memDedupe {
	return &memDedupe{entries: map[string]string{}}
}

func (m *memDedupe) Exists(_ context.Context, commentID string) (bool, error) {
	_, ok := m.entries[commentID]
	return ok, nil
}

func (m *memDedupe) Record(_ context.Context, commentID, replyID string) error {
	m.entries[commentID] = replyID
	return nil
}

func (m *memDedupe) Close() error { return nil }

type recordingPoster struct {
	calls   []string
	replyID string
	err     error
}

func (p *recordingPoster) Reply(_ context.Context, commentID, body string) (string, error) {
	p.calls = append(p.calls, commentID+"|"+body)
	if p.err != nil {
		return "", p.err
	}
	return p.replyID, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recordingNotifier struct {
	events []bot.ReplyEvent
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, evt bot.ReplyEvent) error {
	n.events = append(n.events, evt)
	return n.err
}

func (n *recordingNotifier) Close() error { return nil }

func testRuleStore(t *testing.T) *rules.Store {
	t.Helper()
	source := &staticSource{records: []bot.RuleRecord{
		{Name: "Pilot Iroshizuku", Pattern: `Iroshi[a-z]*`, Target: "https://img.example/iro"},
		{Name: "Noodler's", Pattern: `Noodler's`, Target: "https://img.example/noodlers"},
		{Name: "Noodler's Black", Pattern: `Noodler's Black`, Target: "https://img.example/black"},
	}}
	store, err := rules.Load(context.Background(), source, zap.NewNop())
	require.NoError(t, err)
	return store
}

type staticSource struct {
	records []bot.RuleRecord
}

func (s *staticSource) FetchAllRules(context.Context) ([]bot.RuleRecord, error) {
	return s.records, nil
}

func newTestConsumer(t *testing.T, poster publish.Poster, dedupe bot.DedupeStore, notifier bot.Notifier) *Consumer {
	t.Helper()
	pub := publish.New(poster, 3, 0, zap.NewNop())
	return New(testRuleStore(t), dedupe, pub, notifier, fixedClock{now: time.Unix(1700000000, 0).UTC()}, zap.NewNop())
}

func TestRun_RepliesAndRecordsDedupe(t *testing.T) {
	t.Parallel()

	poster := &recordingPoster{replyID: "t1_r1"}
	dedupe := newMemDedupe()
	notifier := &recordingNotifier{}
	c := newTestConsumer(t, poster, dedupe, notifier)

	stream := &fakeStream{comments: []bot.Comment{
		{ID: "c1", Body: "I love [[Pilot Iroshin]] ink"},
	}}

	err := c.Run(context.Background(), stream)
	require.ErrorIs(t, err, errDrained)

	require.Len(t, poster.calls, 1)
	require.Contains(t, poster.calls[0], "* [Pilot Iroshizuku](https://img.example/iro)   \n")
	require.Equal(t, "t1_r1", dedupe.entries["c1"])

	require.Len(t, notifier.events, 1)
	require.Equal(t, "c1", notifier.events[0].CommentID)
	require.Equal(t, []string{"Pilot Iroshizuku"}, notifier.events[0].Rules)
	require.NotEmpty(t, notifier.events[0].EventID)
}

func TestRun_NoTokensNoPublish(t *testing.T) {
	t.Parallel()

	poster := &recordingPoster{replyID: "t1_r1"}
	dedupe := newMemDedupe()
	c := newTestConsumer(t, poster, dedupe, nil)

	stream := &fakeStream{comments: []bot.Comment{
		{ID: "c1", Body: "no tokens here, just Iroshizuku by name"},
	}}

	err := c.Run(context.Background(), stream)
	require.ErrorIs(t, err, errDrained)
	require.Empty(t, poster.calls)
	require.Empty(t, dedupe.entries)
}

func TestRun_DedupeHitSkipsPublish(t *testing.T) {
	t.Parallel()

	poster := &recordingPoster{replyID: "t1_r1"}
	dedupe := newMemDedupe()
	dedupe.entries["c1"] = "t1_old"
	c := newTestConsumer(t, poster, dedupe, nil)

	stream := &fakeStream{comments: []bot.Comment{
		{ID: "c1", Body: "[[Pilot Iroshizuku]]"},
	}}

	err := c.Run(context.Background(), stream)
	require.ErrorIs(t, err, errDrained)
	require.Empty(t, poster.calls)
	require.Equal(t, "t1_old", dedupe.entries["c1"])
}

func TestRun_RestartProducesNoSecondReply(t *testing.T) {
	t.Parallel()

	poster := &recordingPoster{replyID: "t1_r1"}
	dedupe := newMemDedupe()

	for range 2 {
		c := newTestConsumer(t, poster, dedupe, nil)
		stream := &fakeStream{comments: []bot.Comment{
			{ID: "c1", Body: "[[Pilot Iroshizuku]] again"},
		}}
		err := c.Run(context.Background(), stream)
		require.ErrorIs(t, err, errDrained)
	}

	require.Len(t, poster.calls, 1, "second run over the same comment must not publish")
}

func TestRun_EmptyBodyNeverPublished(t *testing.T) {
	t.Parallel()

	poster := &recordingPoster{replyID: "t1_r1"}
	dedupe := newMemDedupe()
	c := newTestConsumer(t, poster, dedupe, nil)

	// Token present but nothing matches above the length threshold.
	stream := &fakeStream{comments: []bot.Comment{
		{ID: "c1", Body: "[[xyz]]"},
	}}

	err := c.Run(context.Background(), stream)
	require.ErrorIs(t, err, errDrained)
	require.Empty(t, poster.calls)
	require.Empty(t, dedupe.entries, "no dedupe entry without a posted reply")
}

func TestRun_LongestMatchSelected(t *testing.T) {
	t.Parallel()

	poster := &recordingPoster{replyID: "t1_r1"}
	dedupe := newMemDedupe()
	c := newTestConsumer(t, poster, dedupe, nil)

	stream := &fakeStream{comments: []bot.Comment{
		{ID: "c1", Body: "try [[Noodler's Black]]"},
	}}

	err := c.Run(context.Background(), stream)
	require.ErrorIs(t, err, errDrained)
	require.Len(t, poster.calls, 1)
	require.Contains(t, poster.calls[0], "Noodler's Black")
	require.NotContains(t, poster.calls[0], "img.example/noodlers)")
}

func TestRun_PublishFailurePropagates(t *testing.T) {
	t.Parallel()

	poster := &recordingPoster{err: errors.New("permanent rejection")}
	dedupe := newMemDedupe()
	c := newTestConsumer(t, poster, dedupe, nil)

	stream := &fakeStream{comments: []bot.Comment{
		{ID: "c1", Body: "[[Pilot Iroshizuku]]"},
	}}

	err := c.Run(context.Background(), stream)
	require.Error(t, err)
	require.NotErrorIs(t, err, errDrained)
	require.Empty(t, dedupe.entries, "no dedupe entry after a failed publish")
}

func TestRun_NotifierFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	poster := &recordingPoster{replyID: "t1_r1"}
	dedupe := newMemDedupe()
	notifier := &recordingNotifier{err: errors.New("pubsub down")}
	c := newTestConsumer(t, poster, dedupe, notifier)

	stream := &fakeStream{comments: []bot.Comment{
		{ID: "c1", Body: "[[Pilot Iroshizuku]]"},
	}}

	err := c.Run(context.Background(), stream)
	require.ErrorIs(t, err, errDrained)
	require.Equal(t, "t1_r1", dedupe.entries["c1"])
}

func TestExtractTokens(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want []string
	}{
		{"single", "I love [[Pilot Iroshin]] ink", []string{"Pilot Iroshin"}},
		{"multiple in order", "[[a b c]] then [[d e f]]", []string{"a b c", "d e f"}},
		{"escaped brackets", `try \[\[Noodler's Black\]\]`, []string{"Noodler's Black"}},
		{"none", "no tokens at all", nil},
		{"unclosed", "[[half open", nil},
		{"empty token", "[[]]", []string{""}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, extractTokens(tc.body))
		})
	}
}

func TestTokenPatternIsNonGreedy(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"a", "b"}, extractTokens("[[a]] x [[b]]"))
}

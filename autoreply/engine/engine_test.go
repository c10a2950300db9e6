package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/perch-social/myna/autoreply/compose"
	"github.com/perch-social/myna/autoreply/countstore"
	"github.com/perch-social/myna/autoreply/eventlog"
	"github.com/perch-social/myna/autoreply/ledger"
	"github.com/perch-social/myna/reddit"
)

type flakyProvider struct {
	text string
	err  error
}

func (p flakyProvider) Name() string { return "flaky" }

func (p flakyProvider) Invoke(ctx context.Context, prompt string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.text, nil
}

func testPost() *reddit.Post {
	return &reddit.Post{
		ID:        "p1",
		Name:      "t3_p1",
		Title:     "Best biryani in Mumbai?",
		Body:      "Looking for good spots near Bandra.",
		Author:    "foodie",
		Subreddit: "india",
		URL:       "https://www.reddit.com/r/india/comments/p1/",
		Score:     10,
		IsSelf:    true,
		CreatedAt: time.Now().Add(-time.Hour),
	}
}

func TestProcessPostHappyPath(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()

	out, err := eng.ProcessPost(ctx, testPost())
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.True(out.Replied)
	assert.Empty(out.RejectReason)
	assert.Equal("canned", out.Provider)
	assert.Equal("stub-comment", out.CommentID)
	assert.Equal("mumbai", out.Verdict.Pattern)
	assert.Equal("india_specific", out.Verdict.Category)
	assert.Equal(3, out.Verdict.Priority)
	assert.NotEmpty(out.ReplyText)

	seen, err := eng.Seen.IsSeen(ctx, "p1")
	require.NoError(t, err)
	assert.True(seen)

	st, err := eng.Ledger.Store.Get(ctx)
	require.NoError(t, err)
	assert.Len(st.ReplyTimes, 1)
	assert.False(st.LastReply.IsZero())

	sent, err := eng.Counts.GetCount(ctx, "reply-sent", "india", countstore.PeriodTotal)
	require.NoError(t, err)
	assert.Equal(1, sent)

	evaluated, err := eng.Counts.GetCountDistinct(ctx, "post-evaluated", "india", countstore.PeriodTotal)
	require.NoError(t, err)
	assert.Equal(1, evaluated)

	// the same post a cycle later is rejected without another submission
	out2, err := eng.ProcessPost(ctx, testPost())
	require.NoError(t, err)
	assert.False(out2.Replied)
	assert.Equal(RejectAlreadyProcessed, out2.RejectReason)
	assert.Len(eng.Submitter.(*StubSubmitter).Calls, 1)
}

func TestProcessPostGateOrder(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()

	require.NoError(t, eng.Seen.MarkSeen(ctx, "g5"))

	// every post trips several checks at once; the recorded reason must be
	// the earliest one in the fixed order
	fixtures := []struct {
		name   string
		post   *reddit.Post
		reject string
	}{
		{
			name:   "locked post is unavailable before anything else",
			post:   &reddit.Post{ID: "g1", Title: "Need advice about drugs in Mumbai", Author: "x", Subreddit: "india", Score: -10, Locked: true},
			reject: RejectPostUnavailable,
		},
		{
			name:   "low score wins over blacklist",
			post:   &reddit.Post{ID: "g2", Title: "Need advice about drugs in Mumbai", Author: "x", Subreddit: "india", Score: -10},
			reject: RejectLowQuality,
		},
		{
			name:   "blacklist wins over a priority-3 keyword match",
			post:   &reddit.Post{ID: "g3", Title: "Need advice about drugs in Mumbai", Author: "x", Subreddit: "india", Score: 5},
			reject: RejectBlacklisted,
		},
		{
			name:   "no keyword match",
			post:   &reddit.Post{ID: "g4", Title: "The weather is nice today", Body: "just a quiet afternoon", Author: "x", Subreddit: "india", Score: 5},
			reject: RejectNoKeywordMatch,
		},
		{
			name:   "already processed wins over everything",
			post:   &reddit.Post{ID: "g5", Title: "Need advice about drugs in Mumbai", Author: "x", Subreddit: "india", Score: -10, Locked: true},
			reject: RejectAlreadyProcessed,
		},
	}

	for _, fix := range fixtures {
		out, err := eng.ProcessPost(ctx, fix.post)
		require.NoError(t, err, fix.name)
		assert.False(out.Replied, fix.name)
		assert.Equal(fix.reject, out.RejectReason, fix.name)
	}

	// gate rejects leave the processed set alone so posts get another look
	// next cycle
	for _, id := range []string{"g1", "g2", "g3", "g4"} {
		seen, err := eng.Seen.IsSeen(ctx, id)
		require.NoError(t, err)
		assert.False(seen, id)
	}
	assert.Empty(eng.Submitter.(*StubSubmitter).Calls)
}

func TestProcessPostQuotaDenied(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()

	now := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, eng.Ledger.Commit(ctx, now.Add(time.Duration(i)*time.Second)))
	}

	out, err := eng.ProcessPost(ctx, testPost())
	require.NoError(t, err)
	assert.False(out.Replied)
	assert.Equal(ledger.ReasonQuotaExceeded, out.RejectReason)

	// denied posts stay eligible for the next cycle
	seen, err := eng.Seen.IsSeen(ctx, "p1")
	require.NoError(t, err)
	assert.False(seen)
	assert.Empty(eng.Submitter.(*StubSubmitter).Calls)
}

func TestProcessPostCooldownDenied(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()

	require.NoError(t, eng.Ledger.Commit(ctx, time.Now()))

	out, err := eng.ProcessPost(ctx, testPost())
	require.NoError(t, err)
	assert.Equal(ledger.ReasonCooldownActive, out.RejectReason)

	seen, err := eng.Seen.IsSeen(ctx, "p1")
	require.NoError(t, err)
	assert.False(seen)
}

func TestProcessPostRetryableSubmitFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()
	eng.Submitter = &StubSubmitter{Err: &reddit.SubmitError{Reason: reddit.SubmitRateLimited, StatusCode: 429}}

	out, err := eng.ProcessPost(ctx, testPost())
	require.Error(t, err)
	assert.Nil(out)

	var submitErr *reddit.SubmitError
	assert.ErrorAs(err, &submitErr)

	// nothing persisted: the post will be retried on a later cycle
	seen, err := eng.Seen.IsSeen(ctx, "p1")
	require.NoError(t, err)
	assert.False(seen)

	st, err := eng.Ledger.Store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(st.ReplyTimes)
	assert.True(st.LastReply.IsZero())
}

func TestProcessPostTerminalSubmitFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()
	eng.Submitter = &StubSubmitter{Err: &reddit.SubmitError{Reason: reddit.SubmitThreadLocked}}

	out, err := eng.ProcessPost(ctx, testPost())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.False(out.Replied)
	assert.Equal(reddit.SubmitThreadLocked, out.RejectReason)

	// marked processed so it is never attempted again, but no quota consumed
	seen, err := eng.Seen.IsSeen(ctx, "p1")
	require.NoError(t, err)
	assert.True(seen)

	st, err := eng.Ledger.Store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(st.ReplyTimes)
}

func TestProcessPostGenerationExhausted(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := EngineTestFixture()
	eng.Composer = compose.NewComposer([]compose.Provider{flakyProvider{text: "meh"}}, time.Second)

	out, err := eng.ProcessPost(ctx, testPost())
	require.Error(t, err)
	assert.Nil(out)

	var chainErr *compose.ChainError
	assert.ErrorAs(err, &chainErr)

	seen, err := eng.Seen.IsSeen(ctx, "p1")
	require.NoError(t, err)
	assert.False(seen)

	st, err := eng.Ledger.Store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(st.ReplyTimes)
	assert.Empty(eng.Submitter.(*StubSubmitter).Calls)
}

func TestProcessPostRecordsInteractions(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	events, err := eventlog.NewEventLog(db)
	require.NoError(t, err)

	eng := EngineTestFixture()
	eng.Events = events

	_, err = eng.ProcessPost(ctx, testPost())
	require.NoError(t, err)

	rejected := testPost()
	rejected.ID = "p2"
	rejected.Name = "t3_p2"
	rejected.Title = "The weather is nice today"
	rejected.Body = "just a quiet afternoon"
	_, err = eng.ProcessPost(ctx, rejected)
	require.NoError(t, err)

	rows, err := events.Recent(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(eventlog.ActionRejected, rows[0].Action)
	assert.Equal("p2", rows[0].PostID)
	assert.Equal(RejectNoKeywordMatch, rows[0].RejectReason)

	assert.Equal(eventlog.ActionReplyPosted, rows[1].Action)
	assert.Equal("p1", rows[1].PostID)
	assert.Equal("canned", rows[1].Provider)
	assert.Equal("mumbai", rows[1].Pattern)
	assert.NotEmpty(rows[1].ReplyText)
}

package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testEventLog(t *testing.T) *EventLog {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	log, err := NewEventLog(db)
	require.NoError(t, err)
	return log
}

func TestEventLogRecordAndQuery(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	log := testEventLog(t)

	require.NoError(t, log.Record(ctx, &Interaction{
		Action:       ActionRejected,
		PostID:       "t3_aaa",
		Subreddit:    "india",
		PostTitle:    "first post",
		RejectReason: "no-keyword-match",
	}))
	require.NoError(t, log.Record(ctx, &Interaction{
		Action:    ActionReplyPosted,
		PostID:    "t3_bbb",
		Subreddit: "india",
		PostTitle: "second post",
		Pattern:   "mumbai",
		Category:  "india_specific",
		Priority:  3,
		Provider:  "openai",
		ReplyText: "Mumbai local trains are the fastest way across town.",
		LatencyMs: 1200,
	}))

	rows, err := log.Recent(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// newest first
	assert.Equal("t3_bbb", rows[0].PostID)
	assert.Equal(ActionReplyPosted, rows[0].Action)
	assert.Equal("mumbai", rows[0].Pattern)
	assert.Equal("t3_aaa", rows[1].PostID)

	posted, err := log.Recent(ctx, 10, ActionReplyPosted)
	require.NoError(t, err)
	require.Len(t, posted, 1)
	assert.Equal("t3_bbb", posted[0].PostID)

	count, err := log.CountSince(ctx, ActionReplyPosted, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(int64(1), count)
}

func TestEventLogTrim(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	log := testEventLog(t)

	old := &Interaction{
		CreatedAt: time.Now().Add(-60 * 24 * time.Hour),
		Action:    ActionRejected,
		PostID:    "t3_old",
	}
	require.NoError(t, log.Record(ctx, old))
	require.NoError(t, log.Record(ctx, &Interaction{
		Action: ActionReplyPosted,
		PostID: "t3_new",
	}))

	removed, err := log.TrimBefore(ctx, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(int64(1), removed)

	rows, err := log.Recent(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal("t3_new", rows[0].PostID)
}

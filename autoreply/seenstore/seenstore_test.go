package seenstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemSeenStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	ss := NewMemSeenStore()

	seen, err := ss.IsSeen(ctx, "t3_abc123")
	require.NoError(t, err)
	assert.False(seen)

	require.NoError(t, ss.MarkSeen(ctx, "t3_abc123"))
	seen, err = ss.IsSeen(ctx, "t3_abc123")
	require.NoError(t, err)
	assert.True(seen)

	seen, err = ss.IsSeen(ctx, "t3_other")
	require.NoError(t, err)
	assert.False(seen)
}

func TestMarkSeenIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	ss := NewMemSeenStore()

	require.NoError(t, ss.MarkSeen(ctx, "t3_abc123"))
	require.NoError(t, ss.MarkSeen(ctx, "t3_abc123"))
	assert.Equal(1, ss.Size())
}

func TestRedisSeenStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	ss, err := NewRedisSeenStore("redis://localhost:6379/0")
	require.NoError(t, err)

	seen, err := ss.IsSeen(ctx, "t3_livetest")
	require.NoError(t, err)
	assert.False(seen)

	require.NoError(t, ss.MarkSeen(ctx, "t3_livetest"))
	require.NoError(t, ss.MarkSeen(ctx, "t3_livetest"))
	seen, err = ss.IsSeen(ctx, "t3_livetest")
	require.NoError(t, err)
	assert.True(seen)
}

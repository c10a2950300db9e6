package cachestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemCacheStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, time.Minute)

	v, err := cs.Get(ctx, "subreddit", "india")
	assert.NoError(err)
	assert.Empty(v)

	assert.NoError(cs.Set(ctx, "subreddit", "india", `{"subscribers": 123}`))
	v, err = cs.Get(ctx, "subreddit", "india")
	assert.NoError(err)
	assert.Equal(`{"subscribers": 123}`, v)

	// namespaces do not collide
	v, err = cs.Get(ctx, "stats", "india")
	assert.NoError(err)
	assert.Empty(v)

	assert.NoError(cs.Purge(ctx, "subreddit", "india"))
	v, err = cs.Get(ctx, "subreddit", "india")
	assert.NoError(err)
	assert.Empty(v)
}

func TestMemCacheStoreExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, 10*time.Millisecond)
	assert.NoError(cs.Set(ctx, "stats", "daily", "42"))
	time.Sleep(50 * time.Millisecond)

	v, err := cs.Get(ctx, "stats", "daily")
	assert.NoError(err)
	assert.Empty(v)
}

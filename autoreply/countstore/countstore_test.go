package countstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemCountStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	c, err := cs.GetCount(ctx, "reply-sent", "r/india", PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)

	assert.NoError(cs.Increment(ctx, "reply-sent", "r/india"))
	assert.NoError(cs.Increment(ctx, "reply-sent", "r/india"))

	for _, period := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		c, err = cs.GetCount(ctx, "reply-sent", "r/india", period)
		assert.NoError(err)
		assert.Equal(2, c)
	}

	// distinct counts dedupe by member
	assert.NoError(cs.IncrementDistinct(ctx, "post-evaluated", "r/india", "t3_one"))
	assert.NoError(cs.IncrementDistinct(ctx, "post-evaluated", "r/india", "t3_one"))
	assert.NoError(cs.IncrementDistinct(ctx, "post-evaluated", "r/india", "t3_two"))

	c, err = cs.GetCountDistinct(ctx, "post-evaluated", "r/india", PeriodDay)
	assert.NoError(err)
	assert.Equal(2, c)
}

func TestMemCountStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				assert.NoError(cs.Increment(ctx, "reply-sent", "r/india"))
				assert.NoError(cs.IncrementDistinct(ctx, "post-evaluated", "r/india", "t3_same"))
				_, err := cs.GetCount(ctx, "reply-sent", "r/india", PeriodTotal)
				assert.NoError(err)
			}
		}()
	}
	wg.Wait()

	c, err := cs.GetCount(ctx, "reply-sent", "r/india", PeriodTotal)
	assert.NoError(err)
	assert.Equal(100, c)

	c, err = cs.GetCountDistinct(ctx, "post-evaluated", "r/india", PeriodTotal)
	assert.NoError(err)
	assert.Equal(1, c)
}

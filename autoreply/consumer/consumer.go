// Package consumer drives the polling loop: each cycle lists new posts from
// the configured subreddits, drops stale or hopeless candidates up front,
// and fans the rest out to a bounded worker pool running the engine.
package consumer

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/perch-social/myna/autoreply/cachestore"
	"github.com/perch-social/myna/autoreply/engine"
	"github.com/perch-social/myna/autoreply/eventlog"
	"github.com/perch-social/myna/autoreply/ledger"
	"github.com/perch-social/myna/reddit"
)

const rejectionCacheName = "rejected-post"

// Fetcher lists candidate posts. Satisfied by *reddit.Client.
type Fetcher interface {
	FetchNewPosts(ctx context.Context, subreddit string, limit int) ([]*reddit.Post, error)
}

// Consumer owns the poll cycle. Cache and Events are optional; everything
// else must be set before Run.
type Consumer struct {
	Logger  *slog.Logger
	Engine  *engine.Engine
	Fetcher Fetcher
	Cache   cachestore.CacheStore
	Events  *eventlog.EventLog

	Subreddits   []string
	PollInterval time.Duration
	FetchLimit   int
	MaxPostAge   time.Duration
	Concurrency  int

	// audit rows older than this are trimmed once a day; zero disables
	EventRetention time.Duration

	lastTrim time.Time
}

func (c *Consumer) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *Consumer) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Hour
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = 25
	}
	if c.MaxPostAge <= 0 {
		c.MaxPostAge = 24 * time.Hour
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
}

// Run polls until the context is cancelled. The first cycle starts
// immediately rather than waiting out a full interval.
func (c *Consumer) Run(ctx context.Context) error {
	c.applyDefaults()
	c.logger().Info("consumer starting",
		"subreddits", c.Subreddits,
		"interval", c.PollInterval,
		"concurrency", c.Concurrency)

	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()
	for {
		c.RunCycle(ctx)
		select {
		case <-ctx.Done():
			c.logger().Info("consumer stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// RunCycle performs one pass over every configured subreddit.
func (c *Consumer) RunCycle(ctx context.Context) {
	c.applyDefaults()
	start := time.Now()
	cycleCount.Inc()

	var candidates []*reddit.Post
	for _, sub := range c.Subreddits {
		if ctx.Err() != nil {
			return
		}
		posts, err := c.Fetcher.FetchNewPosts(ctx, sub, c.FetchLimit)
		if err != nil {
			c.logger().Error("listing subreddit failed", "subreddit", sub, "err", err)
			fetchErrorCount.Inc()
			continue
		}
		candidates = append(candidates, c.filterPosts(ctx, posts)...)
	}

	if len(candidates) > 0 {
		c.processBatch(ctx, candidates)
	}
	c.trimEvents(ctx)

	cycleDuration.Observe(time.Since(start).Seconds())
	c.logger().Info("check cycle finished",
		"candidates", len(candidates),
		"duration", time.Since(start).Round(time.Millisecond))
}

// filterPosts drops posts no engine run could act on: too old, author gone,
// or rejected so recently the cached verdict is still fresh.
func (c *Consumer) filterPosts(ctx context.Context, posts []*reddit.Post) []*reddit.Post {
	now := time.Now()
	var keep []*reddit.Post
	for _, post := range posts {
		if now.Sub(post.CreatedAt) > c.MaxPostAge {
			skippedPostCount.WithLabelValues("too-old").Inc()
			continue
		}
		if post.Deleted() {
			skippedPostCount.WithLabelValues("deleted").Inc()
			continue
		}
		if c.Cache != nil {
			if hit, err := c.Cache.Get(ctx, rejectionCacheName, post.ID); err == nil && hit != "" {
				skippedPostCount.WithLabelValues("recently-rejected").Inc()
				continue
			}
		}
		keep = append(keep, post)
	}
	return keep
}

func (c *Consumer) processBatch(ctx context.Context, posts []*reddit.Post) {
	postChan := make(chan *reddit.Post, len(posts))
	eg := new(errgroup.Group)
	for i := 0; i < c.Concurrency; i++ {
		eg.Go(func() error {
			for post := range postChan {
				c.processOne(ctx, post)
			}
			return nil
		})
	}
	for _, post := range posts {
		postChan <- post
	}
	close(postChan)
	// workers log their own failures and never return an error
	_ = eg.Wait()
}

func (c *Consumer) processOne(ctx context.Context, post *reddit.Post) {
	out, err := c.Engine.ProcessPost(ctx, post)
	if err != nil {
		c.logger().Error("processing post failed", "post", post.ID, "err", err)
		processErrorCount.Inc()
		return
	}

	switch out.RejectReason {
	case "", engine.RejectAlreadyProcessed:
		return
	case ledger.ReasonQuotaExceeded, ledger.ReasonCooldownActive:
		// temporal denial, the post stays a live candidate for next cycle
		return
	}

	// content-based rejection: cache it so following cycles skip the gate
	// work until the entry expires
	if c.Cache != nil {
		if err := c.Cache.Set(ctx, rejectionCacheName, post.ID, out.RejectReason); err != nil {
			c.logger().Warn("caching rejection failed", "post", post.ID, "err", err)
		}
	}
}

func (c *Consumer) trimEvents(ctx context.Context) {
	if c.Events == nil || c.EventRetention <= 0 {
		return
	}
	if time.Since(c.lastTrim) < 24*time.Hour {
		return
	}
	c.lastTrim = time.Now()
	removed, err := c.Events.TrimBefore(ctx, time.Now().Add(-c.EventRetention))
	if err != nil {
		c.logger().Error("trimming old interactions failed", "err", err)
		return
	}
	if removed > 0 {
		c.logger().Info("trimmed old interactions", "removed", removed)
	}
}

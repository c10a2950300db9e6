package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/perch-social/myna/autoreply/eventlog"
	"github.com/perch-social/myna/autoreply/keyword"
	"github.com/perch-social/myna/reddit"
)

const (
	RejectAlreadyProcessed = "already-processed"
	RejectPostUnavailable  = "post-unavailable"
	RejectLowQuality       = "low-quality-post"
	RejectBlacklisted      = "blacklisted"
	RejectNoKeywordMatch   = "no-keyword-match"
)

type gateResult struct {
	reject  string
	pattern string
	verdict keyword.Verdict
}

// gatePost runs the pre-generation checks in their fixed order. Ordering is
// part of the contract: the recorded reason is always the first check that
// failed, and the blacklist is consulted before any keyword scoring.
func (eng *Engine) gatePost(ctx context.Context, post *reddit.Post) (gateResult, error) {
	seen, err := eng.Seen.IsSeen(ctx, post.ID)
	if err != nil {
		return gateResult{}, fmt.Errorf("checking processed set: %w", err)
	}
	if seen {
		return gateResult{reject: RejectAlreadyProcessed}, nil
	}
	if post.Unavailable() {
		return gateResult{reject: RejectPostUnavailable}, nil
	}
	if post.Score < eng.MinPostScore {
		return gateResult{reject: RejectLowQuality}, nil
	}
	if pattern, hit := eng.Rules.Blacklisted(post.Title, post.Body); hit {
		return gateResult{reject: RejectBlacklisted, pattern: pattern}, nil
	}
	verdict := eng.Rules.Evaluate(post.Title, post.Body)
	if !verdict.Matched {
		return gateResult{reject: RejectNoKeywordMatch}, nil
	}
	return gateResult{verdict: verdict}, nil
}

func (eng *Engine) rejectPost(ctx context.Context, logger *slog.Logger, post *reddit.Post, gate gateResult) *Outcome {
	rejectCount.WithLabelValues(gate.reject).Inc()
	out := &Outcome{PostID: post.ID, Subreddit: post.Subreddit, RejectReason: gate.reject}

	if gate.reject == RejectAlreadyProcessed {
		// steady state for most of every listing; not worth an audit row
		logger.Debug("post already processed")
		return out
	}

	logger.Info("post rejected", "reason", gate.reject)
	if err := eng.Counts.Increment(ctx, "reject", gate.reject); err != nil {
		logger.Warn("incrementing reject counter failed", "err", err)
	}
	if eng.Events != nil {
		row := &eventlog.Interaction{
			Action:       eventlog.ActionRejected,
			PostID:       post.ID,
			Subreddit:    post.Subreddit,
			PostTitle:    post.Title,
			Pattern:      gate.pattern,
			RejectReason: gate.reject,
		}
		if err := eng.Events.Record(ctx, row); err != nil {
			logger.Warn("recording interaction failed", "err", err)
		}
	}
	return out
}

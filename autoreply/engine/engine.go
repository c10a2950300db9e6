// Package engine ties the keyword rules, cooldown ledger, stores, and reply
// generation together: one ProcessPost call takes a fetched post all the way
// to a posted reply or a classified rejection.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/perch-social/myna/autoreply/compose"
	"github.com/perch-social/myna/autoreply/countstore"
	"github.com/perch-social/myna/autoreply/eventlog"
	"github.com/perch-social/myna/autoreply/keyword"
	"github.com/perch-social/myna/autoreply/ledger"
	"github.com/perch-social/myna/autoreply/seenstore"
	"github.com/perch-social/myna/reddit"
)

// DefaultMinPostScore keeps the bot out of heavily downvoted threads.
const DefaultMinPostScore = -5

// Engine processes candidate posts. Events and Notifier are optional;
// everything else must be set.
type Engine struct {
	Logger    *slog.Logger
	Rules     *keyword.RuleSet
	Ledger    *ledger.Ledger
	Seen      seenstore.SeenStore
	Counts    countstore.CountStore
	Composer  *compose.Composer
	Submitter Submitter
	Events    *eventlog.EventLog
	Notifier  Notifier

	// posts scoring strictly below this are rejected as low quality
	MinPostScore int
}

// Submitter posts a finished reply and returns the new comment id.
// Satisfied by *reddit.Client.
type Submitter interface {
	SubmitReply(ctx context.Context, postFullname, text string) (string, error)
}

// Notifier announces posted replies out-of-band. Satisfied by *SlackNotifier.
type Notifier interface {
	SendReply(ctx context.Context, post *reddit.Post, outcome *Outcome) error
}

// Outcome is what happened to one post. Replied and RejectReason are
// mutually exclusive; a nil Outcome with an error means processing could not
// finish and the post stays eligible for the next cycle.
type Outcome struct {
	PostID       string
	Subreddit    string
	Replied      bool
	RejectReason string
	Verdict      keyword.Verdict
	Provider     string
	CommentID    string
	ReplyText    string
	Attempts     []compose.Attempt
}

func (eng *Engine) logger() *slog.Logger {
	if eng.Logger == nil {
		return slog.Default()
	}
	return eng.Logger
}

// ProcessPost runs the full decision sequence for one post: gate checks,
// rate-limit reservation, reply generation, submission, then persistence.
// State is only written on the far side of a successful submit, with one
// exception: a terminal submit failure marks the post processed so it is
// never attempted again.
func (eng *Engine) ProcessPost(ctx context.Context, post *reddit.Post) (outcome *Outcome, err error) {
	// recover panics from rule evaluation and provider calls, like an HTTP
	// server would
	defer func() {
		if r := recover(); r != nil {
			eng.logger().Error("post processing panic", "err", r, "post", post.ID)
			err = fmt.Errorf("post processing panic: %v", r)
		}
	}()

	start := time.Now()
	logger := eng.logger().With("post", post.ID, "subreddit", post.Subreddit)

	if err := eng.Counts.IncrementDistinct(ctx, "post-evaluated", post.Subreddit, post.ID); err != nil {
		logger.Warn("incrementing evaluation counter failed", "err", err)
	}

	gate, err := eng.gatePost(ctx, post)
	if err != nil {
		return nil, err
	}
	if gate.reject != "" {
		return eng.rejectPost(ctx, logger, post, gate), nil
	}

	dec, err := eng.Ledger.TryReserve(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("reserving reply slot: %w", err)
	}
	if !dec.Granted {
		logger.Info("reply slot denied", "reason", dec.Reason)
		rejectCount.WithLabelValues(dec.Reason).Inc()
		return &Outcome{
			PostID:       post.ID,
			Subreddit:    post.Subreddit,
			RejectReason: dec.Reason,
			Verdict:      gate.verdict,
		}, nil
	}

	res, err := eng.Composer.Generate(ctx, compose.Request{
		Title:    post.Title,
		Body:     post.Body,
		Keywords: []string{gate.verdict.Pattern},
		Category: gate.verdict.Category,
	})
	if err != nil {
		eng.Ledger.Rollback()
		var chainErr *compose.ChainError
		if errors.As(err, &chainErr) {
			replyFailedCount.WithLabelValues("generation").Inc()
			eng.recordFailure(ctx, logger, post, gate.verdict, "", err.Error())
		}
		return nil, fmt.Errorf("generating reply for %s: %w", post.ID, err)
	}

	commentID, err := eng.Submitter.SubmitReply(ctx, post.Fullname(), res.Text)
	if err != nil {
		eng.Ledger.Rollback()
		var submitErr *reddit.SubmitError
		if errors.As(err, &submitErr) && submitErr.Terminal() {
			// the post will never take this reply; stop considering it
			if merr := eng.Seen.MarkSeen(ctx, post.ID); merr != nil {
				logger.Error("marking post processed failed", "err", merr)
			}
			replyFailedCount.WithLabelValues("submit-terminal").Inc()
			eng.recordFailure(ctx, logger, post, gate.verdict, res.Provider, err.Error())
			logger.Warn("reply rejected permanently", "reason", submitErr.Reason)
			return &Outcome{
				PostID:       post.ID,
				Subreddit:    post.Subreddit,
				RejectReason: submitErr.Reason,
				Verdict:      gate.verdict,
				Provider:     res.Provider,
				Attempts:     res.Attempts,
			}, nil
		}
		replyFailedCount.WithLabelValues("submit").Inc()
		eng.recordFailure(ctx, logger, post, gate.verdict, res.Provider, err.Error())
		return nil, fmt.Errorf("submitting reply to %s: %w", post.ID, err)
	}

	now := time.Now()
	if err := eng.Ledger.Commit(ctx, now); err != nil {
		// the reply is already public; losing the ledger write must be loud
		if errors.Is(err, ledger.ErrQuotaExceeded) {
			logger.Error("reply exceeded hourly quota at commit", "err", err)
		} else {
			logger.Error("recording reply in cooldown ledger failed", "err", err)
		}
	}
	if err := eng.Seen.MarkSeen(ctx, post.ID); err != nil {
		logger.Error("marking post processed failed", "err", err)
	}
	if err := eng.Counts.Increment(ctx, "reply-sent", post.Subreddit); err != nil {
		logger.Warn("incrementing reply counter failed", "err", err)
	}

	outcome = &Outcome{
		PostID:    post.ID,
		Subreddit: post.Subreddit,
		Replied:   true,
		Verdict:   gate.verdict,
		Provider:  res.Provider,
		CommentID: commentID,
		ReplyText: res.Text,
		Attempts:  res.Attempts,
	}
	eng.recordReply(ctx, logger, post, outcome, time.Since(start))
	replyPostedCount.WithLabelValues(post.Subreddit).Inc()
	processDuration.Observe(time.Since(start).Seconds())
	logger.Info("reply posted",
		"provider", res.Provider,
		"comment", commentID,
		"category", gate.verdict.Category,
		"pattern", gate.verdict.Pattern)
	return outcome, nil
}

func (eng *Engine) recordReply(ctx context.Context, logger *slog.Logger, post *reddit.Post, out *Outcome, latency time.Duration) {
	if eng.Events != nil {
		row := &eventlog.Interaction{
			Action:    eventlog.ActionReplyPosted,
			PostID:    post.ID,
			Subreddit: post.Subreddit,
			PostTitle: post.Title,
			Pattern:   out.Verdict.Pattern,
			Category:  out.Verdict.Category,
			Priority:  out.Verdict.Priority,
			Provider:  out.Provider,
			ReplyText: out.ReplyText,
			LatencyMs: latency.Milliseconds(),
		}
		if err := eng.Events.Record(ctx, row); err != nil {
			logger.Warn("recording interaction failed", "err", err)
		}
	}
	if eng.Notifier != nil {
		if err := eng.Notifier.SendReply(ctx, post, out); err != nil {
			logger.Warn("sending notification failed", "err", err)
		}
	}
}

func (eng *Engine) recordFailure(ctx context.Context, logger *slog.Logger, post *reddit.Post, verdict keyword.Verdict, provider, errMsg string) {
	if eng.Events == nil {
		return
	}
	row := &eventlog.Interaction{
		Action:    eventlog.ActionReplyFailed,
		PostID:    post.ID,
		Subreddit: post.Subreddit,
		PostTitle: post.Title,
		Pattern:   verdict.Pattern,
		Category:  verdict.Category,
		Priority:  verdict.Priority,
		Provider:  provider,
		Error:     errMsg,
	}
	if err := eng.Events.Record(ctx, row); err != nil {
		logger.Warn("recording interaction failed", "err", err)
	}
}

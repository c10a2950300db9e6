// Package ledger enforces reply rate limits: an hourly quota over a sliding
// window plus a minimum cooldown between consecutive replies. State is
// persisted so limits survive restarts; reservations are provisional and
// only Commit mutates durable state.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Window is the trailing period the hourly quota is measured over.
const Window = time.Hour

// Denial reasons returned by TryReserve.
const (
	ReasonQuotaExceeded  = "hourly-quota-exceeded"
	ReasonCooldownActive = "cooldown-active"
)

// ErrQuotaExceeded is returned by Commit when appending would break the
// hourly window invariant. It means a reply already went out that the
// ledger is refusing to account; callers should log it loudly.
var ErrQuotaExceeded = errors.New("hourly reply quota exceeded at commit")

// Decision is the outcome of a reservation attempt. A denial is an expected
// control-flow outcome, not an error.
type Decision struct {
	Granted bool
	Reason  string
}

// Ledger is the sole arbiter of "may we reply now". TryReserve grants a
// provisional slot without touching durable state; Commit is the single
// serialization point and must only be called after the reply was actually
// submitted.
type Ledger struct {
	Store             StateStore
	MaxRepliesPerHour int
	MinCooldown       time.Duration
}

func NewLedger(store StateStore, maxPerHour int, minCooldown time.Duration) *Ledger {
	if maxPerHour <= 0 {
		maxPerHour = 3
	}
	if minCooldown <= 0 {
		minCooldown = 10 * time.Minute
	}
	return &Ledger{
		Store:             store,
		MaxRepliesPerHour: maxPerHour,
		MinCooldown:       minCooldown,
	}
}

// TryReserve checks whether a reply may be sent at `now`. Quota is checked
// before cooldown. The grant is provisional: nothing is persisted until
// Commit.
func (l *Ledger) TryReserve(ctx context.Context, now time.Time) (Decision, error) {
	st, err := l.Store.Get(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("reading cooldown state: %w", err)
	}
	st = st.Pruned(now, Window)
	if len(st.ReplyTimes) >= l.MaxRepliesPerHour {
		return Decision{Reason: ReasonQuotaExceeded}, nil
	}
	if !st.LastReply.IsZero() && now.Sub(st.LastReply) < l.MinCooldown {
		return Decision{Reason: ReasonCooldownActive}, nil
	}
	return Decision{Granted: true}, nil
}

// Commit records a sent reply at `now` in a single atomic read-modify-write
// against the store. The quota is re-checked inside the transaction so two
// workers holding provisional reservations cannot both push the window past
// MaxRepliesPerHour; the loser gets ErrQuotaExceeded.
func (l *Ledger) Commit(ctx context.Context, now time.Time) error {
	err := l.Store.Update(ctx, func(st State) (State, error) {
		st = st.Pruned(now, Window)
		if len(st.ReplyTimes) >= l.MaxRepliesPerHour {
			return st, ErrQuotaExceeded
		}
		st.ReplyTimes = append(st.ReplyTimes, now)
		st.LastReply = now
		return st, nil
	})
	if err != nil {
		return fmt.Errorf("committing cooldown state: %w", err)
	}
	return nil
}

// Rollback releases a provisional reservation. TryReserve made no durable
// change, so there is nothing to undo; the method exists so callers never
// assume a reservation survives a failed send.
func (l *Ledger) Rollback() {}

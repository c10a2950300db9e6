package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/perch-social/myna/autoreply/compose"
	"github.com/perch-social/myna/autoreply/countstore"
	"github.com/perch-social/myna/autoreply/keyword"
	"github.com/perch-social/myna/autoreply/ledger"
	"github.com/perch-social/myna/autoreply/seenstore"
)

// StubSubmitter accepts every reply and records the calls. Setting Err makes
// every call fail with it instead. Intended for tests, exported so other
// packages can wire a harmless engine.
type StubSubmitter struct {
	Err   error
	Calls []string
}

func (s *StubSubmitter) SubmitReply(ctx context.Context, postFullname, text string) (string, error) {
	s.Calls = append(s.Calls, postFullname)
	if s.Err != nil {
		return "", s.Err
	}
	return "stub-comment", nil
}

// EngineTestFixture returns an engine wired entirely to in-memory stores,
// the default keyword rules, and a deterministic canned provider.
func EngineTestFixture() Engine {
	return Engine{
		Logger:       slog.Default(),
		Rules:        keyword.DefaultRules(),
		Ledger:       ledger.NewLedger(ledger.NewMemStateStore(), 3, 10*time.Minute),
		Seen:         seenstore.NewMemSeenStore(),
		Counts:       countstore.NewMemCountStore(),
		Composer:     compose.NewComposer([]compose.Provider{compose.NewCannedProvider()}, time.Second),
		Submitter:    &StubSubmitter{},
		MinPostScore: DefaultMinPostScore,
	}
}

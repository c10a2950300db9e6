// Package compose generates reply text for accepted posts by walking an
// ordered chain of LLM providers. Each call gets its own timeout and the
// raw output must clear a quality gate; any failure advances the chain to
// the next provider, never retrying the same one.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Request is the post context a reply is generated for.
type Request struct {
	Title    string
	Body     string
	Keywords []string
	Category string
}

// Attempt records one provider invocation, successful or not. Attempts are
// ephemeral: they ride along on the result or error for audit logging and
// are never persisted by this package.
type Attempt struct {
	Provider      string
	Prompt        string
	Text          string
	Latency       time.Duration
	Succeeded     bool
	FailureReason string
}

// Result is a successfully generated, quality-checked reply.
type Result struct {
	Text     string
	Provider string
	Attempts []Attempt
}

// ChainError reports that every provider in the chain failed. Attempts
// holds one entry per provider.
type ChainError struct {
	Attempts []Attempt
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("all %d generation providers failed", len(e.Attempts))
}

// Composer owns the provider chain and the quality gate. The chain order is
// configuration; there is no dynamic provider registration.
type Composer struct {
	Providers   []Provider
	CallTimeout time.Duration
	Quality     QualityGate
	Logger      *slog.Logger
}

func NewComposer(providers []Provider, callTimeout time.Duration) *Composer {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &Composer{
		Providers:   providers,
		CallTimeout: callTimeout,
		Quality:     DefaultQualityGate(),
		Logger:      slog.Default().With("component", "compose"),
	}
}

// Generate walks the provider chain strictly in order and returns the first
// output that clears the quality gate. A timeout, transport error, or
// quality rejection records a failed attempt and moves on. When the chain
// is exhausted the returned error is a *ChainError carrying every attempt.
func (c *Composer) Generate(ctx context.Context, req Request) (*Result, error) {
	if len(c.Providers) == 0 {
		return nil, fmt.Errorf("no generation providers configured")
	}
	prompt := BuildPrompt(req)

	attempts := make([]Attempt, 0, len(c.Providers))
	for _, p := range c.Providers {
		attempt := c.invoke(ctx, p, prompt, req.Category)
		attempts = append(attempts, attempt)
		if attempt.Succeeded {
			return &Result{
				Text:     attempt.Text,
				Provider: p.Name(),
				Attempts: attempts,
			}, nil
		}
		c.Logger.Warn("generation attempt failed",
			"provider", p.Name(),
			"reason", attempt.FailureReason,
			"latency", attempt.Latency.Round(time.Millisecond))
	}
	chainExhaustedCount.Inc()
	return nil, &ChainError{Attempts: attempts}
}

func (c *Composer) invoke(ctx context.Context, p Provider, prompt, category string) Attempt {
	attempt := Attempt{Provider: p.Name(), Prompt: prompt}

	cctx, cancel := context.WithTimeout(ctx, c.CallTimeout)
	defer cancel()

	start := time.Now()
	var text string
	var err error
	if cp, ok := p.(categorical); ok {
		text, err = cp.InvokeCategory(cctx, category)
	} else {
		text, err = p.Invoke(cctx, prompt)
	}
	attempt.Latency = time.Since(start)
	generationDuration.WithLabelValues(p.Name()).Observe(attempt.Latency.Seconds())

	if err != nil {
		attempt.FailureReason = err.Error()
		generationAttemptCount.WithLabelValues(p.Name(), "error").Inc()
		return attempt
	}

	text = strings.TrimSpace(text)
	attempt.Text = text
	if reason := c.Quality.Check(text); reason != "" {
		attempt.FailureReason = reason
		generationAttemptCount.WithLabelValues(p.Name(), "quality-rejected").Inc()
		return attempt
	}

	attempt.Succeeded = true
	generationAttemptCount.WithLabelValues(p.Name(), "ok").Inc()
	return attempt
}

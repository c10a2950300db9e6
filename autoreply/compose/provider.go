package compose

import (
	"context"
	"fmt"
	"strings"
)

// Provider is one generation backend. Implementations must honor context
// cancellation; the composer applies the per-call timeout. There is no
// streaming: output is all-or-nothing per call.
type Provider interface {
	Name() string
	Invoke(ctx context.Context, prompt string) (string, error)
}

// categorical is implemented by providers that select output by response
// category instead of reading the prompt. The composer prefers this path
// when available.
type categorical interface {
	InvokeCategory(ctx context.Context, category string) (string, error)
}

// ProviderConfig selects and configures one backend in the chain.
type ProviderConfig struct {
	Kind   string
	APIKey string
	Model  string
}

// NewProvider builds a single provider from config. An unknown kind is a
// configuration error.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(cfg.Kind) {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIProvider(cfg.APIKey, cfg.Model), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return NewAnthropicProvider(cfg.APIKey, cfg.Model), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return NewGeminiProvider(cfg.APIKey, cfg.Model), nil
	case "canned":
		return NewCannedProvider(), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Kind)
	}
}

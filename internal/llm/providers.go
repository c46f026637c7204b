package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider names a Client backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderFake   Provider = "fake"
)

// ParseProvider validates a configured provider name.
func ParseProvider(raw string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "openai", "openai-compatible", "chat":
		return ProviderOpenAI, nil
	case "gemini", "google":
		return ProviderGemini, nil
	case "fake", "mock":
		return ProviderFake, nil
	default:
		return "", fmt.Errorf("unsupported provider %q (supported: openai, gemini, fake)", raw)
	}
}

// Settings configures NewClient.
type Settings struct {
	Provider Provider
	Model    string
	BaseURL  string
	APIKey   string
	Retries  int
	Backoff  time.Duration
	RPS      float64
	Burst    int
	MemoSize int
}

// CheckCredentials reports what a provider is missing before any request
// is made.
func (s Settings) CheckCredentials() error {
	switch s.Provider {
	case ProviderGemini:
		if strings.TrimSpace(s.APIKey) == "" {
			return fmt.Errorf("gemini provider needs api_key (or GEMINI_API_KEY)")
		}
	case ProviderOpenAI, "":
		if strings.TrimSpace(s.Model) == "" {
			return fmt.Errorf("openai provider needs model (or MODEL)")
		}
	}
	return nil
}

// NewClient builds the backend for s wrapped in memoization, rate limiting
// and retries, outermost first.
func NewClient(ctx context.Context, s Settings) (Client, error) {
	if err := s.CheckCredentials(); err != nil {
		return nil, err
	}

	var base Client
	switch s.Provider {
	case ProviderFake:
		base = NewFakeClient()
	case ProviderGemini:
		g, err := NewGeminiClient(ctx, s.APIKey, s.Model)
		if err != nil {
			return nil, err
		}
		base = g
	default:
		c, err := NewChatClient(ChatConfig{BaseURL: s.BaseURL, APIKey: s.APIKey, Model: s.Model})
		if err != nil {
			return nil, err
		}
		base = c
	}

	return Chain(base,
		Memoize(s.MemoSize),
		RateLimit(s.RPS, s.Burst),
		Retry(s.Retries, s.Backoff),
	), nil
}

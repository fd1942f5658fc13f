package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Complete sends a system and user prompt and returns the model's text reply.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Config holds LLM provider settings.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string // overrides the provider endpoint, mainly for tests and proxies
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int // requests per minute
	Temperature float64
	MaxTokens   int
}

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 4096
	requestTimeout     = 90 * time.Second

	defaultAnthropicModel = "claude-sonnet-4-5"
	defaultOpenAIModel    = "gpt-4o-mini"
)

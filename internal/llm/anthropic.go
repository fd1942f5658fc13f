package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicClient implements the Client interface for the Anthropic Messages API.
type anthropicClient struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
}

// newAnthropicClient creates a new Anthropic API client.
func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are handled by the analyzer so they share its backoff and logging.
		option.WithMaxRetries(0),
		option.WithRequestTimeout(requestTimeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicClient{
		client:      anthropic.NewClient(opts...),
		model:       model,
		temperature: temperature,
		maxTokens:   int64(maxTokens),
	}, nil
}

// Complete sends a message to Anthropic and concatenates the text blocks of the reply.
func (c *anthropicClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classifyAnthropicError(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no text content in Anthropic response")
	}
	return text.String(), nil
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("anthropic request failed: %w", err)
	}

	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return &common.RetryableError{Err: fmt.Errorf("anthropic: %w", common.ErrRateLimit), Retryable: true}
	case apiErr.StatusCode >= 500:
		return &common.RetryableError{Err: fmt.Errorf("anthropic API error (status %d): %w", apiErr.StatusCode, err), Retryable: true}
	default:
		return fmt.Errorf("anthropic API error (status %d): %w", apiErr.StatusCode, err)
	}
}

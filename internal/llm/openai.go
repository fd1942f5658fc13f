package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/Veraticus/workitem-scout/internal/common"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// openAIClient talks to any OpenAI-compatible chat completions endpoint.
type openAIClient struct {
	http        *resty.Client
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	c := &openAIClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
	if c.baseURL == "" {
		c.baseURL = defaultOpenAIBaseURL
	}
	if c.model == "" {
		c.model = defaultOpenAIModel
	}
	if c.temperature == 0 {
		c.temperature = defaultTemperature
	}
	if c.maxTokens == 0 {
		c.maxTokens = defaultMaxTokens
	}

	// Retries are owned by the analyzer so they share its rate limiter.
	c.http = resty.New().
		SetBaseURL(c.baseURL).
		SetAuthToken(cfg.APIKey).
		SetTimeout(requestTimeout).
		SetHeader("Content-Type", "application/json")

	return c, nil
}

func (c *openAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: prompt},
			},
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		}).
		Post("/chat/completions")
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &common.RetryableError{Err: fmt.Errorf("openai request failed: %w", err), Retryable: true}
	}

	status := resp.StatusCode()
	switch {
	case status == http.StatusTooManyRequests:
		return "", &common.RetryableError{Err: fmt.Errorf("openai: %w", common.ErrRateLimit), Retryable: true}
	case status >= http.StatusInternalServerError:
		return "", &common.RetryableError{
			Err:       fmt.Errorf("openai: status %d: %s", status, resp.String()),
			Retryable: true,
		}
	case status != http.StatusOK:
		return "", fmt.Errorf("openai: status %d: %s", status, resp.String())
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("failed to decode openai response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

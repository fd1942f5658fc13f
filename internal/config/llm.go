package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/Veraticus/workitem-scout/internal/llm"
	"github.com/spf13/viper"
)

// LoadLLMConfig builds the relationship-analysis client configuration.
func LoadLLMConfig(v *viper.Viper) (llm.Config, error) {
	provider := strings.ToLower(v.GetString("llm.provider"))
	if provider == "" {
		provider = "anthropic" // default provider
	}

	cfg := llm.Config{
		Provider:    provider,
		Model:       v.GetString("llm.model"),
		BaseURL:     v.GetString("llm.base_url"),
		Temperature: v.GetFloat64("llm.temperature"),
		MaxTokens:   v.GetInt("llm.max_tokens"),
		MaxRetries:  v.GetInt("llm.max_retries"),
		RetryDelay:  v.GetDuration("llm.retry_delay"),
		RateLimit:   v.GetInt("llm.rate_limit"),
		CacheTTL:    v.GetDuration("llm.cache_ttl"),
	}

	// Set defaults if not specified
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 60 // requests per minute
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	// Get API key based on provider, checking viper first
	switch provider {
	case "openai":
		cfg.APIKey = v.GetString("llm.openai_api_key")
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.APIKey == "" {
			return llm.Config{}, fmt.Errorf("%w: OpenAI API key not found in config or OPENAI_API_KEY environment variable", common.ErrMissingConfig)
		}
	case "anthropic":
		cfg.APIKey = v.GetString("llm.anthropic_api_key")
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.APIKey == "" {
			return llm.Config{}, fmt.Errorf("%w: anthropic API key not found in config or ANTHROPIC_API_KEY environment variable", common.ErrMissingConfig)
		}
	default:
		return llm.Config{}, fmt.Errorf("%w: unsupported LLM provider: %s", common.ErrInvalidConfig, provider)
	}

	return cfg, nil
}

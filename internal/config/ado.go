package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/workitem-scout/internal/ado"
	"github.com/Veraticus/workitem-scout/internal/common"
	"github.com/spf13/viper"
)

// LoadADOConfig loads Azure DevOps connection settings.
// It follows this precedence:
// 1. Viper configuration (from config file or SCOUT_ env vars)
// 2. Direct environment variables (AZURE_DEVOPS_*)
// 3. Default values
func LoadADOConfig(v *viper.Viper) (ado.Config, error) {
	cfg := ado.Config{
		OrganizationURL: v.GetString("ado.organization_url"),
		Project:         v.GetString("ado.project"),
		PAT:             v.GetString("ado.pat"),
		Timeout:         v.GetDuration("ado.timeout"),
		RetryDelay:      v.GetDuration("ado.retry_delay"),
		MaxRetries:      v.GetInt("ado.max_retries"),
		RateLimit:       v.GetFloat64("ado.rate_limit"),
	}

	// Override with direct environment variables if not set
	if cfg.OrganizationURL == "" {
		cfg.OrganizationURL = os.Getenv("AZURE_DEVOPS_ORG_URL")
	}
	if cfg.Project == "" {
		cfg.Project = os.Getenv("AZURE_DEVOPS_PROJECT")
	}
	if cfg.PAT == "" {
		cfg.PAT = os.Getenv("AZURE_DEVOPS_PAT")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	if err := cfg.Validate(); err != nil {
		return ado.Config{}, fmt.Errorf("%w: %w", common.ErrMissingConfig, err)
	}

	return cfg, nil
}

// Package ado provides a client for the Azure DevOps work item tracking REST API.
package ado

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds Azure DevOps connection settings.
type Config struct {
	OrganizationURL string // e.g. https://dev.azure.com/contoso
	Project         string
	PAT             string
	Timeout         time.Duration
	RetryDelay      time.Duration
	MaxRetries      int
	RateLimit       float64 // requests per second; zero disables pacing
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.OrganizationURL == "" {
		return fmt.Errorf("azure devops organization URL is required")
	}
	u, err := url.Parse(c.OrganizationURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid azure devops organization URL %q", c.OrganizationURL)
	}
	if strings.TrimSpace(c.Project) == "" {
		return fmt.Errorf("azure devops project is required")
	}
	if c.PAT == "" {
		return fmt.Errorf("azure devops personal access token is required")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("azure devops rate limit must not be negative")
	}
	return nil
}

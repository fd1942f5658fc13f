package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/workitem-scout/internal/service"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidRun   = errors.New("invalid search run")
	ErrInvalidLimit = errors.New("limit must be positive")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSearchRun checks the fields every stored run must carry.
// An empty ID is allowed; SaveSearchRun assigns one.
func validateSearchRun(run *service.SearchRun) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if run.SourceID <= 0 {
		return fmt.Errorf("%w: source id must be positive", ErrInvalidRun)
	}
	if strings.TrimSpace(run.Project) == "" {
		return fmt.Errorf("%w: missing project", ErrInvalidRun)
	}
	if run.Scope == "" || run.Mode == "" {
		return fmt.Errorf("%w: missing scope or mode", ErrInvalidRun)
	}
	if run.Duration < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidRun)
	}
	return nil
}

// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Source errors.
	ErrNotFound          = errors.New("not found")
	ErrSourceUnavailable = errors.New("work item source unavailable")
	ErrResultSetTooLarge = errors.New("result set too large")

	// Routing signals. These never reach the user; callers switch strategy on them.
	ErrNoMeaningfulTitle = errors.New("title has no meaningful keywords")
	ErrNoVerifiedTeams   = errors.New("no verified teams")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrResultSetTooLarge) ||
		errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, ErrRateLimit) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}

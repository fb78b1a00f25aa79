package atlassian

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/custodia-labs/workspace-spider/internal/core/domain"
)

// Outcome classifies the result of one HTTP call. The retry wrapper
// switches on the classification instead of inspecting raw errors.
type Outcome int

const (
	// OutcomeSuccess is a usable response.
	OutcomeSuccess Outcome = iota

	// OutcomeTransient is a retryable failure: rate limit, server
	// error, or connection trouble.
	OutcomeTransient

	// OutcomeNotFound is a permanent remote absence (404/410).
	OutcomeNotFound

	// OutcomeFatal is a non-retryable failure: rejected credentials or
	// a malformed request. Fatal outcomes abort the scan.
	OutcomeFatal
)

// APIError represents an Atlassian API error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("atlassian: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap maps the status code onto the domain sentinel the engine
// reasons about, so errors.Is works across the connector boundary.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == 404 || e.StatusCode == 410:
		return domain.ErrNotFound
	case e.StatusCode == 401 || e.StatusCode == 403:
		return domain.ErrAuthFailed
	case e.StatusCode == 429:
		return domain.ErrRateLimited
	case e.StatusCode == 400:
		return domain.ErrInvalidInput
	}
	return nil
}

// RateLimitError represents a 429 response carrying the retry hint.
type RateLimitError struct {
	RetryAfter time.Duration
	URL        string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("atlassian: rate limit exceeded, retry after %s", e.RetryAfter)
}

// Unwrap makes the error match domain.ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// Classify maps an error from one HTTP call onto an outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return OutcomeFatal
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return OutcomeTransient
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 404 || apiErr.StatusCode == 410:
			return OutcomeNotFound
		case apiErr.StatusCode == 429:
			return OutcomeTransient
		case apiErr.StatusCode >= 500:
			return OutcomeTransient
		default:
			// 401/403 and remaining 4xx: retrying cannot help.
			return OutcomeFatal
		}
	}

	// Connection resets, refusals, DNS trouble and timeouts are worth
	// retrying; anything else unrecognised is not.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return OutcomeTransient
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return OutcomeTransient
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return OutcomeTransient
	}
	return OutcomeFatal
}

// IsNotFound checks if the error indicates a permanent remote absence.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// IsAuthFailure checks if the error indicates rejected credentials.
func IsAuthFailure(err error) bool {
	return errors.Is(err, domain.ErrAuthFailed)
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, domain.ErrRateLimited)
}

// IsTransient checks if the error is worth retrying.
func IsTransient(err error) bool {
	return Classify(err) == OutcomeTransient
}

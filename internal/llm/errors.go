package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// FailureReason categorizes why a provider request failed, driving retry
// decisions.
type FailureReason string

const (
	ReasonRateLimit      FailureReason = "rate_limit"
	ReasonServerError    FailureReason = "server_error"
	ReasonTimeout        FailureReason = "timeout"
	ReasonAuth           FailureReason = "auth"
	ReasonInvalidRequest FailureReason = "invalid_request"
	ReasonContentFilter  FailureReason = "content_filter"
	ReasonUnknown        FailureReason = "unknown"
)

// IsRetryable reports whether a retry may succeed for this reason.
func (r FailureReason) IsRetryable() bool {
	switch r {
	case ReasonRateLimit, ReasonServerError, ReasonTimeout:
		return true
	default:
		return false
	}
}

// ProviderError is a structured provider failure.
type ProviderError struct {
	Reason   FailureReason
	Provider string
	Model    string
	Cause    error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Reason, e.Provider)
	if e.Model != "" {
		msg += " model=" + e.Model
	}
	if e.Cause != nil {
		msg += " " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// WrapError classifies err into a ProviderError. Already-wrapped errors
// pass through unchanged.
func WrapError(provider, model string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{
		Reason:   classify(err),
		Provider: provider,
		Model:    model,
		Cause:    err,
	}
}

// IsRetryable reports whether err represents a transient failure worth
// retrying with backoff.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Reason.IsRetryable()
	}
	return classify(err).IsRetryable()
}

// classify maps raw provider errors to a failure reason. Providers do not
// expose stable typed errors for every case, so this falls back to message
// inspection the way the upstream SDK examples do.
func classify(err error) FailureReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "429"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "resource exhausted"),
		strings.Contains(msg, "quota"):
		return ReasonRateLimit
	case strings.Contains(msg, "500"),
		strings.Contains(msg, "502"),
		strings.Contains(msg, "503"),
		strings.Contains(msg, "504"),
		strings.Contains(msg, "internal server error"),
		strings.Contains(msg, "bad gateway"),
		strings.Contains(msg, "service unavailable"),
		strings.Contains(msg, "gateway timeout"),
		strings.Contains(msg, "overloaded"):
		return ReasonServerError
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"):
		return ReasonTimeout
	case strings.Contains(msg, "401"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "unauthenticated"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "invalid api key"):
		return ReasonAuth
	case strings.Contains(msg, "400"),
		strings.Contains(msg, "invalid argument"):
		return ReasonInvalidRequest
	case strings.Contains(msg, "safety"),
		strings.Contains(msg, "blocked"):
		return ReasonContentFilter
	default:
		return ReasonUnknown
	}
}

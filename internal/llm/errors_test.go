package llm

import (
	"context"
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want FailureReason
	}{
		{"googleapi: Error 429: resource exhausted", ReasonRateLimit},
		{"rpc error: code = Unavailable desc = service unavailable", ReasonServerError},
		{"Post \"https://...\": connection refused", ReasonTimeout},
		{"googleapi: Error 401: unauthenticated", ReasonAuth},
		{"googleapi: Error 400: invalid argument", ReasonInvalidRequest},
		{"response blocked by safety settings", ReasonContentFilter},
		{"something odd", ReasonUnknown},
	}
	for _, tt := range tests {
		if got := classify(errors.New(tt.msg)); got != tt.want {
			t.Errorf("classify(%q) = %s, want %s", tt.msg, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(errors.New("rate limit exceeded")) {
		t.Error("rate limit should be retryable")
	}
	if IsRetryable(errors.New("invalid api key")) {
		t.Error("auth failure should not be retryable")
	}
	if IsRetryable(context.Canceled) {
		t.Error("cancellation should not be retryable")
	}
	pe := &ProviderError{Reason: ReasonServerError, Provider: "gemini"}
	if !IsRetryable(pe) {
		t.Error("ProviderError with server_error should be retryable")
	}
}

func TestWrapErrorPassThrough(t *testing.T) {
	orig := &ProviderError{Reason: ReasonTimeout, Provider: "gemini"}
	if got := WrapError("gemini", "m", orig); got != orig {
		t.Errorf("expected pass-through, got %v", got)
	}
}

package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"config", NewConfigError("CODERABBIT_API_KEY not configured"), http.StatusInternalServerError},
		{"timeout", NewTimeoutError("Request to CodeRabbit timed out", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"unavailable", NewUnavailableError("Failed to connect to CodeRabbit", nil), http.StatusServiceUnavailable},
		{"upstream", NewUpstreamError("CodeRabbit", http.StatusForbidden, nil), http.StatusForbidden},
		{"validation", NewValidationError("bad date", nil), http.StatusBadRequest},
		{"not found", NewResourceNotFoundError("post", 7), http.StatusNotFound},
		{"rate limit", NewRateLimitError("daily post limit reached"), http.StatusTooManyRequests},
		{"wrapped", fmt.Errorf("loading: %w", NewNotFoundError("report not found", nil)), http.StatusNotFound},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "post not found", Message(NewResourceNotFoundError("post", 3)))
	assert.Equal(t, "CodeRabbit API error: 500", Message(NewUpstreamError("CodeRabbit", 500, nil)))
	assert.Equal(t, "boom", Message(fmt.Errorf("boom")))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("missing", nil)))
	assert.True(t, IsValidationError(NewValidationError("bad", nil)))
	assert.False(t, IsNotFound(fmt.Errorf("missing")))
	assert.True(t, IsRateLimit(NewRateLimitError("slow down")))
}

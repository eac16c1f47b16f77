package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/commitwise/commitwise/internal/pkg/errors"
)

// promptTooLargeHints are fragments backends use when a prompt exceeds the context window.
var promptTooLargeHints = []string{
	"context length",
	"context_length_exceeded",
	"maximum context",
	"prompt is too long",
	"too many tokens",
	"request too large",
}

func isPromptTooLarge(message string) bool {
	message = strings.ToLower(message)
	for _, hint := range promptTooLargeHints {
		if strings.Contains(message, hint) {
			return true
		}
	}
	return false
}

// mapStatus maps an HTTP failure reported by a backend onto the error taxonomy.
func mapStatus(provider string, status int, message string, retryAfter time.Duration, cause error) error {
	switch {
	case status == http.StatusUnauthorized:
		appErr := apperrors.NewAuthenticationError(provider)
		appErr.Cause = cause
		return appErr
	case status == http.StatusForbidden:
		appErr := apperrors.NewPermissionError(provider)
		appErr.Cause = cause
		return appErr
	case status == http.StatusTooManyRequests:
		appErr := apperrors.NewRateLimitError(provider, retryAfter)
		appErr.Cause = cause
		return appErr
	case status == http.StatusRequestEntityTooLarge, isPromptTooLarge(message):
		return apperrors.NewPromptTooLargeError(provider, cause).WithStatus(status)
	case status >= http.StatusInternalServerError:
		return apperrors.NewServerError(provider, status, cause)
	default:
		return apperrors.NewAIProviderError(provider, cause).WithStatus(status)
	}
}

// mapTransportError classifies failures that never produced an HTTP response.
func mapTransportError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apperrors.NewTimeoutError(err)
		}
		return apperrors.NewNetworkError(provider, err)
	}

	msg := err.Error()
	for _, hint := range []string{"connection refused", "no such host", "connection reset", "network is unreachable"} {
		if strings.Contains(msg, hint) {
			return apperrors.NewNetworkError(provider, err)
		}
	}
	return apperrors.NewAIProviderError(provider, err)
}

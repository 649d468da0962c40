package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Waterproof82/smart-connect-assistant/internal/domain"
)

// mapAPIError translates a go-openai error into the domain error taxonomy so
// the orchestrator can choose retry vs. abort:
// 401/403 → ErrAuthFailure, 429 → ErrRateLimited, everything else (5xx,
// network, malformed response) → ErrUpstreamUnavailable.
func mapAPIError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrCancelled, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: API error %d: %s: %w",
			op, apiErr.HTTPStatusCode, apiErr.Message, sentinelForStatus(apiErr.HTTPStatusCode))
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%s: request error %d: %w",
			op, reqErr.HTTPStatusCode, sentinelForStatus(reqErr.HTTPStatusCode))
	}

	return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstreamUnavailable, err)
}

func sentinelForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrAuthFailure
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	default:
		return domain.ErrUpstreamUnavailable
	}
}

// errorType labels an error for metrics.
func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrAuthFailure):
		return "auth"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrCancelled):
		return "cancelled"
	default:
		return "unavailable"
	}
}

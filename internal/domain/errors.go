package domain

import "errors"

var (
	// ErrInvalidInput signals an empty or malformed query, rejected before any upstream call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAuthFailure signals a bad or missing credential for an upstream service.
	ErrAuthFailure = errors.New("upstream auth failure")
	// ErrUpstreamUnavailable signals a network failure or 5xx from the embedding,
	// store, or generation service.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrRateLimited signals a 429 from an upstream. Retried at most once with a
	// longer backoff than ErrUpstreamUnavailable.
	ErrRateLimited = errors.New("rate limited")
	// ErrRetrievalUnavailable signals that embedding or store retries are exhausted.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrCancelled signals a caller-initiated cancellation or timeout.
	ErrCancelled = errors.New("request cancelled")
)

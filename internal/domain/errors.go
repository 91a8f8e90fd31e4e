package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrNoResult is returned when an upstream source has no matching item
	ErrNoResult = errors.New("no matching item found")

	// ErrUpstreamHTTP is matched by every *UpstreamHTTPError
	ErrUpstreamHTTP = errors.New("upstream API request failed")

	// ErrExtraction is returned when AI output carries no parseable JSON object
	ErrExtraction = errors.New("no valid JSON object found")

	// ErrMissingCredential is returned when the AI API key is not configured
	ErrMissingCredential = errors.New("GEMINI_API_KEY is not configured")

	// ErrLowConfidence is returned when the match confidence is below the threshold
	ErrLowConfidence = errors.New("could not find exact product match")

	// ErrAISearchFailed wraps any failure of the AI product search fallback
	ErrAISearchFailed = errors.New("AI search failed to find the product")

	// ErrNotFound is returned by the product store when no row matches
	ErrNotFound = errors.New("product not found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)

// UpstreamHTTPError is a non-2xx response from the UPC database or the AI endpoint
type UpstreamHTTPError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamHTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Service, e.StatusCode, e.Body)
}

// Is makes errors.Is(err, ErrUpstreamHTTP) true for any UpstreamHTTPError
func (e *UpstreamHTTPError) Is(target error) bool {
	return target == ErrUpstreamHTTP
}

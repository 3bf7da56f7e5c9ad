// Package admin provides a client for the Shopify Admin GraphQL API
// with automatic retry, rate limiting, and error classification.
package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, admin.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("admin: bad request")
	ErrUnauthorized = errors.New("admin: unauthorized")
	ErrForbidden    = errors.New("admin: forbidden")
	ErrNotFound     = errors.New("admin: not found")
	ErrThrottled    = errors.New("admin: throttled")
	ErrServerError  = errors.New("admin: server error")
)

// ErrGraphQL indicates the HTTP exchange succeeded but the GraphQL layer
// returned one or more errors in the response envelope.
var ErrGraphQL = errors.New("admin: graphql error")

// APIError wraps a sentinel error with HTTP status code, request ID,
// and the API error message body for debugging.
type APIError struct {
	StatusCode int
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("admin: HTTP %d (request-id: %s): %s", e.StatusCode, e.RequestID, e.Message)
	}

	return fmt.Sprintf("admin: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// GraphQLError is a single error entry from the GraphQL response envelope.
type GraphQLError struct {
	Message string `json:"message"`
}

// GraphQLErrors aggregates envelope-level errors from one response.
// It wraps ErrGraphQL so errors.Is(err, admin.ErrGraphQL) works.
type GraphQLErrors struct {
	Errors []GraphQLError
}

func (e *GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}

	return "admin: graphql errors: " + strings.Join(msgs, "; ")
}

func (e *GraphQLErrors) Unwrap() error {
	return ErrGraphQL
}

// UserError is a mutation-level validation error returned inside the data
// payload rather than the error envelope. Shopify reports invalid input
// (bad tag, unknown ID) this way while the request itself succeeds.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

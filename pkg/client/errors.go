package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors returned by the client.
var (
	// ErrAppErrors marks a 2xx response whose envelope carries
	// application-level errors. The server understood and rejected the
	// request, so retrying cannot help.
	ErrAppErrors = errors.New("api returned application errors")

	// ErrWaitInterrupted is returned when the context is cancelled
	// while waiting out an exhausted rate limit window.
	ErrWaitInterrupted = errors.New("rate limit wait interrupted")
)

// retryableStatuses is the fixed set of HTTP status codes worth another
// attempt when an error carries no explicit retryable flag. 520-524 are
// CDN-layer failures surfaced by the upstream edge.
var retryableStatuses = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
	520:                            true,
	521:                            true,
	522:                            true,
	523:                            true,
	524:                            true,
}

// APIError is a classified failure from the API call path. Retryable
// decides how the retry executor treats it; StatusCode is zero for
// failures without an HTTP response (transport errors, open breaker).
type APIError struct {
	StatusCode int
	Retryable  bool
	Message    string
	Err        error
}

// NewAPIError creates a classified error.
func NewAPIError(statusCode int, retryable bool, message string, err error) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Retryable:  retryable,
		Message:    message,
		Err:        err,
	}
}

// NewRetryableError creates an error the retry executor will retry.
func NewRetryableError(statusCode int, message string, err error) *APIError {
	return NewAPIError(statusCode, true, message, err)
}

// NewPermanentError creates an error that aborts the retry loop.
func NewPermanentError(statusCode int, message string, err error) *APIError {
	return NewAPIError(statusCode, false, message, err)
}

// Error implements the error interface.
func (e *APIError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "retryable"
	}
	msg := fmt.Sprintf("api %s error", kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code carried by the error.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// classify maps a non-2xx status code onto the error taxonomy: 429 is
// retryable, other 4xx are permanent, 5xx and anything unclassified are
// retryable.
func classify(statusCode int) *APIError {
	message := http.StatusText(statusCode)
	if message == "" {
		message = fmt.Sprintf("unexpected status %d", statusCode)
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewRetryableError(statusCode, message, nil)
	case statusCode >= 400 && statusCode < 500:
		return NewPermanentError(statusCode, message, nil)
	default:
		return NewRetryableError(statusCode, message, nil)
	}
}

// isRetryable classifies an arbitrary error for the retry executor. An
// explicit flag on an APIError is honored exactly; otherwise an exposed
// HTTP status is checked against the fixed retryable set; anything else
// aborts retrying.
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}

	var statusErr interface{ HTTPStatus() int }
	if errors.As(err, &statusErr) {
		return retryableStatuses[statusErr.HTTPStatus()]
	}

	return false
}

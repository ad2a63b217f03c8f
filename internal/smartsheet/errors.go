package smartsheet

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the upstream object does not exist (HTTP 404)
type ErrNotFound struct {
	Kind string // sheet, row, column, discussion, comment, attachment
	ID   int64
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// ErrRateLimited is returned when retries for HTTP 429 are exhausted
type ErrRateLimited struct {
	RetryAfter int // seconds
}

func (e ErrRateLimited) Error() string {
	return fmt.Sprintf("rate limited by Smartsheet (retry after %ds)", e.RetryAfter)
}

// ErrUnauthorized is returned for HTTP 401/403 responses
var ErrUnauthorized = errors.New("smartsheet rejected the access token")

// APIError is the Smartsheet error body for any other non-2xx status
type APIError struct {
	StatusCode int    `json:"-"`
	ErrorCode  int    `json:"errorCode"`
	Message    string `json:"message"`
	RefID      string `json:"refId,omitempty"`
}

func (e *APIError) Error() string {
	if e.ErrorCode != 0 {
		return fmt.Sprintf("smartsheet error %d (status %d): %s", e.ErrorCode, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("smartsheet request failed with status %d: %s", e.StatusCode, e.Message)
}

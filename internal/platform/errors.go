package platform

import (
	"errors"
	"fmt"
)

// ErrWebhookNotFound is returned when no webhook resource exists under the
// requested name.
var ErrWebhookNotFound = errors.New("webhook not found")

// ConnectivityError means the platform could not be reached at all. It is
// fatal for a run: without the alert list there is nothing to reconcile.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("monitoring platform unreachable: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// APIError carries the remote error text of a failed API call.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform API error (status %d): %s", e.StatusCode, e.Message)
}

package client

import (
	"fmt"
	"net/http"

	"github.com/ashfame/gutenberg-collaborative-editing/api"
)

// TransportError wraps network failures and unexpected statuses. The poll
// and broadcast loops log it and carry on; it is never shown to the user
// as anything stronger than a non-blocking notice.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return fmt.Sprintf("transport error: unexpected status %d", e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// statusError maps an HTTP status onto the error taxonomy. Input and
// authorization failures are terminal for the request that caused them;
// everything unexpected is a retryable transport error.
func statusError(status int) error {
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusBadRequest:
		return api.ErrInvalidInput
	case http.StatusUnauthorized, http.StatusForbidden:
		return api.ErrNotAuthorized
	case http.StatusNotFound:
		return api.ErrNotFound
	case http.StatusConflict:
		return api.ErrLockHeld
	default:
		return &TransportError{Status: status}
	}
}

package api

import "errors"

// Error taxonomy. Input and authorization failures are rejected
// synchronously and never retried; anything else on the wire is a
// transport error the polling loops ride out.
var (
	// ErrInvalidInput marks a missing document id or malformed payload.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks an unknown document.
	ErrNotFound = errors.New("document not found")

	// ErrNotAuthorized marks a caller without permission on the document.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrLockRequired marks a content push attempted without holding the
	// single-writer lock. The client surfaces it as a read-only mode
	// change, not as a transient failure.
	ErrLockRequired = errors.New("write lock required")

	// ErrLockHeld marks a lock acquisition attempt while another user
	// holds the lock.
	ErrLockHeld = errors.New("lock held by another user")
)

package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks requests rejected before any I/O.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound marks missing references or images that could not be fetched.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateRequest marks a request whose idempotency key is already claimed.
	ErrDuplicateRequest = errors.New("duplicate request")
)

// DuplicateError carries the transaction id that owns the claim. It is
// empty while the earlier request is still in flight.
type DuplicateError struct {
	Key           string
	TransactionID string
}

func (e *DuplicateError) Error() string {
	if e.TransactionID == "" {
		return "duplicate request: an identical verification is in progress"
	}
	return fmt.Sprintf("duplicate request: already verified as %s", e.TransactionID)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicateRequest
}

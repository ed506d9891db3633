package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced user or post does not exist.
	ErrNotFound = errors.New("feed: not found")

	// ErrConflict is returned on uniqueness violations (duplicate username).
	ErrConflict = errors.New("feed: conflict")

	// ErrInvalidInput is returned for structurally invalid requests.
	ErrInvalidInput = errors.New("feed: invalid input")

	// ErrStorageInconsistency marks a partial multi-write failure. The state
	// is recoverable but must stay visible to an operator, never silently
	// hidden.
	ErrStorageInconsistency = errors.New("feed: storage inconsistency")
)

// InconsistencyError reports a post that was created but left without its
// author stamp because the second write of the two-phase creation failed.
type InconsistencyError struct {
	PostID string
	Err    error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%v: post %s created without author stamp: %v", ErrStorageInconsistency, e.PostID, e.Err)
}

func (e *InconsistencyError) Unwrap() error { return ErrStorageInconsistency }

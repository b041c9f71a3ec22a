package padstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an unknown pad.
	ErrNotFound = errors.New("pad not found")
	// ErrRevisionUnavailable reports a revision that cannot be rebuilt.
	ErrRevisionUnavailable = errors.New("revision unavailable")
)

// NotFoundError names the pad that was not found.
type NotFoundError struct {
	PadID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pad %q not found", e.PadID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// RevisionError describes a revision that cannot be served. Err holds the
// underlying cause, if any.
type RevisionError struct {
	PadID string
	Rev   int
	Head  int
	Err   error
}

func (e *RevisionError) Error() string {
	msg := fmt.Sprintf("pad %q revision %d unavailable (head %d)", e.PadID, e.Rev, e.Head)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RevisionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRevisionUnavailable}
	}
	return []error{ErrRevisionUnavailable, e.Err}
}

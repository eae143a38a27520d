package chat

import "fmt"

// ValidationError reports malformed or missing input. It is always
// surfaced to the caller and never logged as a system fault; no side
// effects have been performed when it is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// ErrMissingQuestion is returned when the inbound payload has no question.
var ErrMissingQuestion = &ValidationError{Msg: "Missing 'question' in request body"}

// RemoteModelError wraps a failed or timed-out model call. History is
// left unmodified when it is returned.
type RemoteModelError struct {
	Err error
}

func (e *RemoteModelError) Error() string {
	return fmt.Sprintf("model call failed: %v", e.Err)
}

func (e *RemoteModelError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failed snapshot save or load. It never blocks
// normal operation; in-memory state remains authoritative.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// AuthError reports invalid credentials or a missing session on a
// protected operation without revealing which input was wrong.
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string {
	return e.Msg
}

package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidPayload marks input that cannot be acted on (missing drag fields, malformed bodies).
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrInvalidState marks an editor operation that is not allowed in the current form state.
	ErrInvalidState = errors.New("invalid state")
	// ErrBackend marks a failed or non-2xx call to the backend collaborator.
	ErrBackend = errors.New("backend error")
)

package service

import "errors"

// Operation rejections. Nothing here is fatal to the process; handlers map
// these to an error event on the originating connection (or an HTTP status).
var (
	// ErrValidation marks a missing or malformed field in the request.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an absent message or conversation.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized marks an actor lacking rights for pin/edit/delete.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidReference marks a thread reply whose parent does not exist
	// or belongs to a different conversation.
	ErrInvalidReference = errors.New("invalid parent reference")
)

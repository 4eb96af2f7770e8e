package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrAlreadyExists indicates a uniqueness violation on insert.
	ErrAlreadyExists = errors.New("entity already exists")
	// ErrInvalidOperation indicates an unknown operation type or a
	// malformed envelope.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrBadRange indicates from_pos/to_pos fall outside the current
	// document content.
	ErrBadRange = errors.New("operation range out of bounds")
	// ErrRevisionConflict indicates a revision collision between the
	// serializer and the stored document state.
	ErrRevisionConflict = errors.New("revision conflict")
	// ErrAuthFailure indicates an unauthenticated or unauthorized request.
	ErrAuthFailure = errors.New("authentication failure")
)

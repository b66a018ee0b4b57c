package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors, which adapters wrap and
// return unchanged so callers can retry the whole operation.
var (
	// ErrNotFound indicates a referenced chat, message, document or version does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates an attempt to create an entity whose unique key is already taken.
	ErrConflict = errors.New("conflict")

	// ErrOutOfOrder indicates a document version timestamp is not strictly
	// after the latest stored version. Callers re-derive a timestamp and retry.
	ErrOutOfOrder = errors.New("out of order")

	// ErrUnauthorized indicates the acting identity does not own the target.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")
)

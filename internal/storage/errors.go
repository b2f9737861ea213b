package storage

import "errors"

var (
	// ErrNotFound is returned when a conversation does not exist.
	ErrNotFound = errors.New("conversation not found")
	// ErrInvalidArgument is returned for empty names, senders or contents.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict is returned if a generated identifier is already taken.
	ErrConflict = errors.New("identifier conflict")
)

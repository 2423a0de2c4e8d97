package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrClosed indicates an operation on a store that has been closed,
	// for example while a restore has the storage quiesced.
	ErrClosed = errors.New("store is closed")
)

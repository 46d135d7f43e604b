package storage

import "errors"

var (
	// ErrIndexUnavailable wraps every failure talking to the vector index.
	ErrIndexUnavailable  = errors.New("vector index unavailable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

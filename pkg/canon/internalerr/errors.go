package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrEmbedding         = errors.New("embedding provider failure")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrInconsistent      = errors.New("internal consistency violation")
	ErrLocked            = errors.New("another run holds the lock")
)

package vectordb

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is matched by every *DimensionMismatchError.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrNoCollection is returned when an operation runs before EnsureCollection.
	ErrNoCollection = errors.New("collection not initialised")
	// ErrInvalidSearch is returned for search options that violate K <= FetchK.
	ErrInvalidSearch = errors.New("invalid search options")
	// ErrUnsupportedMetric is returned for metrics a backend cannot serve.
	ErrUnsupportedMetric = errors.New("unsupported distance metric")
)

// DimensionMismatchError reports a vector or collection whose dimension
// differs from what the collection was created with.
type DimensionMismatchError struct {
	Collection string
	Want       int
	Got        int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("collection %q has dimension %d, got %d", e.Collection, e.Want, e.Got)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// IndexWriteError wraps a backend failure while writing or deleting records.
type IndexWriteError struct {
	Op  string
	Err error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("index %s: %v", e.Op, e.Err)
}

func (e *IndexWriteError) Unwrap() error { return e.Err }

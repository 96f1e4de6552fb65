package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuestion is returned when a question is blank.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrUnsupportedModel is returned for a model outside the provider's supported set.
	ErrUnsupportedModel = errors.New("unsupported model")
)

// SynthesisError wraps any failure while answering a question. Op is the
// step that failed: validate, retrieve or generate.
type SynthesisError struct {
	Op  string
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis %s: %v", e.Op, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

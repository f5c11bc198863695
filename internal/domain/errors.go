package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures for run reports.
type ErrorKind string

const (
	KindTransientExhausted        ErrorKind = "transient-failure-exhausted"
	KindPermanentFetch            ErrorKind = "permanent-fetch-failure"
	KindExtractionEmpty           ErrorKind = "extraction-empty"
	KindClassificationUnavailable ErrorKind = "classification-unavailable"
	KindStorage                   ErrorKind = "storage-failure"
	KindRunTimeout                ErrorKind = "run-timeout"
	KindUnknown                   ErrorKind = "unknown"
)

var (
	// ErrEmptyContent is wrapped by extraction-empty errors.
	ErrEmptyContent = errors.New("empty content")
	// ErrNotFound is returned by lookups that find nothing.
	ErrNotFound = errors.New("not found")
)

// PipelineError tags an error with its taxonomy kind and the failing operation.
type PipelineError struct {
	Kind ErrorKind
	Op   string
	Err  error
	// Hash is set by extraction errors so change detection can still record
	// what was seen.
	Hash string
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewError builds a PipelineError.
func NewError(kind ErrorKind, op string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the taxonomy kind carried by err, mapping context deadline
// and cancellation to run-timeout.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindRunTimeout
	}
	if errors.Is(err, ErrEmptyContent) {
		return KindExtractionEmpty
	}
	return KindUnknown
}

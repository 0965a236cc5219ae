package sink

import (
	"fmt"

	"github.com/Rana718/datagen/internal/types"
)

type TableNotFoundError struct {
	Sink  string
	Table string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %q not found in %s", e.Table, e.Sink)
}

// TypeMismatchError is returned when appended data does not match the stored
// column definitions. Nothing is written when it occurs.
type TypeMismatchError struct {
	Table  string
	Column string
	Stored types.SemanticType
	Got    types.SemanticType
	Reason string
}

func (e *TypeMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot append to %q: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("cannot append to %q: column %q is stored as %s but got %s", e.Table, e.Column, e.Stored, e.Got)
}

// SinkUnavailableError means the backing store could not be reached.
type SinkUnavailableError struct {
	Sink string
	Err  error
}

func (e *SinkUnavailableError) Error() string {
	return fmt.Sprintf("%s is unavailable: %v", e.Sink, e.Err)
}

func (e *SinkUnavailableError) Unwrap() error { return e.Err }

// SinkError wraps any other storage failure with the operation that hit it.
type SinkError struct {
	Sink  string
	Op    string
	Table string
	Err   error
}

func (e *SinkError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %s failed: %v", e.Sink, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s %q failed: %v", e.Sink, e.Op, e.Table, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

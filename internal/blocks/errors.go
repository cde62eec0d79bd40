package blocks

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrInvalidSample = errors.New("blocks: invalid sample")
	ErrBlockNotFound = errors.New("blocks: block not found")
	ErrTransientRead = errors.New("blocks: transient read failure")
)

// ReadError wraps a failed chain read with the block it was addressed to.
// Kind is ErrBlockNotFound or ErrTransientRead.
type ReadError struct {
	Ref  BlockRef
	Kind error
	Err  error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("read block %s: %v", e.Ref, e.Kind)
	}
	return fmt.Sprintf("read block %s: %v: %v", e.Ref, e.Kind, e.Err)
}

// Unwrap returns the underlying reader error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel this read failure is classified as.
func (e *ReadError) Is(target error) bool {
	return target == e.Kind
}

// NotFound builds a ReadError for a block the reader does not have.
func NotFound(ref BlockRef) *ReadError {
	return &ReadError{Ref: ref, Kind: ErrBlockNotFound}
}

// Transient builds a ReadError for a network or RPC failure. Callers may retry.
func Transient(ref BlockRef, err error) *ReadError {
	return &ReadError{Ref: ref, Kind: ErrTransientRead, Err: err}
}

// classifyReadError makes sure every error leaving the classifier is typed.
// Errors already carrying a classification pass through unchanged.
func classifyReadError(ref BlockRef, err error) error {
	if errors.Is(err, ErrBlockNotFound) || errors.Is(err, ErrTransientRead) {
		return err
	}
	return Transient(ref, err)
}

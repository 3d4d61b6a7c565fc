// Package errs defines the error taxonomy shared by the pipeline stages.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindAcquisition covers unreachable or unsupported sources. Retryable.
	KindAcquisition Kind = iota
	// KindDecode covers corrupt or unsupported containers.
	KindDecode
	// KindExtraction covers unreadable frames or too few usable descriptors.
	KindExtraction
	// KindIndex covers vector store insert/query failures. Retryable.
	KindIndex
	// KindTimeout covers per-item deadline expiry. Retryable on a later run.
	KindTimeout
	// KindCheckpoint covers checkpoint persistence failures. Fatal for a run.
	KindCheckpoint
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindAcquisition:
		return "AcquisitionError"
	case KindDecode:
		return "DecodeError"
	case KindExtraction:
		return "ExtractionError"
	case KindIndex:
		return "IndexError"
	case KindTimeout:
		return "TimeoutError"
	case KindCheckpoint:
		return "CheckpointError"
	default:
		return "UnknownError"
	}
}

// Retryable reports whether a later run may succeed without intervention.
func (k Kind) Retryable() bool {
	switch k {
	case KindAcquisition, KindIndex, KindTimeout:
		return true
	default:
		return false
	}
}

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf extracts the taxonomy kind from any error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Package apierr defines the error taxonomy shared by every control
// operation and streaming surface.
package apierr

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind is one of the error kinds a control operation can fail with. It is a
// closed set, not an open string, so callers can switch on it exhaustively.
type Kind string

const (
	InvalidArgument   Kind = "InvalidArgument"
	NotFound          Kind = "NotFound"
	AlreadyExists     Kind = "AlreadyExists"
	AddressConflict   Kind = "AddressConflict"
	Privilege         Kind = "Privilege"
	KernelError       Kind = "KernelError"
	ResourceExhausted Kind = "ResourceExhausted"
	Timeout           Kind = "Timeout"
	Internal          Kind = "Internal"
)

// Error is the wire shape for every failed control operation: {kind, message}.
type Error struct {
	Kind          Kind   `json:"kind"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func (e *Error) Error() string {
	if e.CorrelationID != "" {
		return fmt.Sprintf("%s: %s (id=%s)", e.Kind, e.Message, e.CorrelationID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an Error of the given kind. Internal errors get a correlation
// id so they can be cross-referenced against server logs.
func New(kind Kind, format string, args ...any) *Error {
	e := &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
	if kind == Internal {
		e.CorrelationID = uuid.NewString()
	}
	return e
}

// As extracts an *Error from err, wrapping it as Internal if err is not
// already one of ours.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return New(Internal, "%s", err.Error())
}

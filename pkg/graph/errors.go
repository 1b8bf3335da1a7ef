package graph

import (
	"errors"
	"fmt"
)

// Kind classifies store errors.
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindConnectionRejected Kind = "CONNECTION_REJECTED"
	KindLoadRejected       Kind = "LOAD_REJECTED"
)

// Sentinels for errors.Is.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConnectionRejected = &Error{Kind: KindConnectionRejected}
	ErrLoadRejected       = &Error{Kind: KindLoadRejected}
)

// Error is the error type returned by store operations. Every kind is
// recoverable: the store is left at its last valid state.
type Error struct {
	Kind   Kind   `json:"kind"`
	ID     string `json:"id,omitempty"`
	Field  string `json:"field,omitempty"`
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += fmt.Sprintf(" [%s]", e.Field)
	}
	if e.ID != "" {
		msg += fmt.Sprintf(" (%s)", e.ID)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is matches on Kind so callers can use the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func notFound(what, id string) *Error {
	return &Error{Kind: KindNotFound, ID: id, Reason: what + " not found"}
}

func rejectConnection(id, reason string) *Error {
	return &Error{Kind: KindConnectionRejected, ID: id, Reason: reason}
}

// LoadRejected builds a load error for the entity at index within field
// ("nodes" or "connections").
func LoadRejected(field string, index int, id, reason string) *Error {
	return &Error{Kind: KindLoadRejected, Field: field, Index: index, ID: id, Reason: reason}
}

// IsNotFound reports whether err is a NotFound error. Double deletes and
// updates of removed entities surface this and are treated as no-ops.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

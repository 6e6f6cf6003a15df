// Package taggraph is the in-process interface to the tag and object graph.
//
// Every Engine operation returns a Result. Errors and panics raised inside the
// engine are converted to a failed Result and never reach the caller.
package taggraph

import (
	domainerrors "github.com/kaziapp/taggraph/internal/errors"
)

// Kind classifies a failed Result.
type Kind string

// Failure kinds.
const (
	KindNotFound    Kind = Kind(domainerrors.CodeNotFound)
	KindConflict    Kind = Kind(domainerrors.CodeConflict)
	KindValidation  Kind = Kind(domainerrors.CodeValidation)
	KindPersistence Kind = Kind(domainerrors.CodePersistence)
	// KindInternal marks an unexpected failure such as a recovered panic.
	KindInternal Kind = Kind(domainerrors.CodeInternal)
)

// Result is the outcome of an Engine operation. Data is the zero value when
// Success is false.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
}

// Empty is the payload of operations that return nothing on success.
type Empty struct{}

func ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func fail[T any](err error) Result[T] {
	return Result[T]{
		Error: domainerrors.MessageOf(err),
		Kind:  Kind(domainerrors.CodeOf(err)),
	}
}

// Err returns the failure as an error, or nil on success.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	return &Error{Kind: r.Kind, Message: r.Error}
}

// Error is a failed Result converted back into an error value.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

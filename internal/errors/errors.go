// Package errors defines the coded errors surfaced to callers and the
// generation-tier failure kinds that the decision engine absorbs.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code identifies a caller-visible failure class.
type Code string

const (
	ErrInvalidRequest Code = "INVALID_REQUEST" // 400
	ErrNotFound       Code = "NOT_FOUND"       // 404
	ErrInvalidState   Code = "INVALID_STATE"   // 409
	ErrConflict       Code = "CONFLICT"        // 409
	ErrInternal       Code = "INTERNAL"        // 500
)

// Error is a structured error with a code, an HTTP-ish status and details.
type Error struct {
	Code    Code
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest reports malformed input: bad enum values, out-of-range numbers, missing fields.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound reports a referenced record that does not exist.
func NewNotFound(kind, id string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewInvalidState reports an operation that the record's current state forbids,
// e.g. accepting an adjustment that was already resolved.
func NewInvalidState(msg string) *Error {
	return &Error{
		Code:    ErrInvalidState,
		Status:  409,
		Message: msg,
	}
}

// NewConflict reports a uniqueness conflict.
func NewConflict(msg string) *Error {
	return &Error{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewInternal wraps an unexpected failure, typically a store outage.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is reports whether err (or anything it wraps) is an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// StatusOf returns the status carried by a coded error, or 500.
func StatusOf(err error) int {
	var e *Error
	if stderrors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return 500
}

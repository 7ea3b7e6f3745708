// Package api
// Author: momentics <momentics@gmail.com>
//
// Status codes and structured errors shared by the ring engine and its wrappers.

package api

import (
	"errors"
	"fmt"
)

// Status is the closed set of results returned by every ring operation.
type Status uint8

const (
	StatusOK Status = iota
	StatusFail
	StatusInvalidParams
	StatusFull
	StatusEmpty
	StatusNotInitialized
	StatusAlreadyInitialized
	StatusUnknownError Status = 0xFF
)

var statusNames = map[Status]string{
	StatusOK:                 "ok",
	StatusFail:               "fail",
	StatusInvalidParams:      "invalid params",
	StatusFull:               "full",
	StatusEmpty:              "empty",
	StatusNotInitialized:     "not initialized",
	StatusAlreadyInitialized: "already initialized",
	StatusUnknownError:       "unknown error",
}

// String returns a stable lower-case name for the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Retryable reports whether the status is a routine capacity condition.
func (s Status) Retryable() bool {
	return s == StatusFull || s == StatusEmpty
}

// Err converts the status into an error; StatusOK yields nil.
func (s Status) Err() error {
	if s == StatusOK {
		return nil
	}
	return NewError(s, "ring: "+s.String())
}

// Sentinel errors, comparable with errors.Is against any *Error of the same code.
var (
	ErrFail               = NewError(StatusFail, "ring: fail")
	ErrInvalidParams      = NewError(StatusInvalidParams, "ring: invalid params")
	ErrFull               = NewError(StatusFull, "ring: full")
	ErrEmpty              = NewError(StatusEmpty, "ring: empty")
	ErrNotInitialized     = NewError(StatusNotInitialized, "ring: not initialized")
	ErrAlreadyInitialized = NewError(StatusAlreadyInitialized, "ring: already initialized")
	ErrUnknown            = NewError(StatusUnknownError, "ring: unknown error")
)

// Error represents a structured error with code and context.
type Error struct {
	Code    Status
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new structured error.
func NewError(code Status, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithContext returns a copy of the error with key set to value.
// Sentinels are never mutated.
func (e *Error) WithContext(key string, value any) *Error {
	ctx := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &Error{Code: e.Code, Message: e.Message, Context: ctx}
}

// StatusOf maps an error back to its status. Foreign errors map to
// StatusUnknownError.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return StatusUnknownError
}

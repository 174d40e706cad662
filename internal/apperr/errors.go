// Package apperr carries the stable error kinds shared by the store, the
// workflow engine and the HTTP gateway.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	CodeValidation          Code = "validation_error"
	CodeUnauthenticated     Code = "unauthenticated"
	CodeNotAuthorized       Code = "not_authorized"
	CodeNotFound            Code = "not_found"
	CodeUserNotFound        Code = "user_not_found"
	CodeProjectNotFound     Code = "project_not_found"
	CodeApplicationNotFound Code = "application_not_found"
	CodeInvalidTransition   Code = "invalid_state_transition"
	CodeProjectNotOpen      Code = "project_not_open"
	CodeDuplicateBid        Code = "duplicate_bid"
	CodeAlreadyResolved     Code = "application_already_resolved"
	CodeConflict            Code = "conflict"
	CodeRateLimited         Code = "rate_limited"
	CodeStoreUnavailable    Code = "store_unavailable"
	CodeInternal            Code = "internal"
)

// specializations of a broader kind
var families = map[Code]Code{
	CodeUserNotFound:        CodeNotFound,
	CodeProjectNotFound:     CodeNotFound,
	CodeApplicationNotFound: CodeNotFound,
	CodeProjectNotOpen:      CodeInvalidTransition,
}

// Kind returns the family a code belongs to, or the code itself.
func (c Code) Kind() Code {
	if k, ok := families[c]; ok {
		return k
	}
	return c
}

// FieldErrors collects per-field validation messages.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Err returns a validation AppError, or nil when nothing was collected.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return &AppError{Code: CodeValidation, Message: "validation error", Fields: e}
}

// AppError is a structured error that carries a code, message and optional cause.
type AppError struct {
	Code    Code
	Message string
	Err     error
	Fields  FieldErrors
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New creates a new AppError with code and message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf is New with a format string.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with code and message.
func Wrap(err error, code Code, message string) *AppError {
	if err == nil {
		return New(code, message)
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost AppError in the chain, or
// CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries code, either exactly or as its kind.
func IsCode(err error, code Code) bool {
	var ae *AppError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Code == code || ae.Code.Kind() == code
}

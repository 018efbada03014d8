package services

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthenticated
	KindUnverified
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindUnverified:
		return "unverified"
	default:
		return "unexpected"
	}
}

// Error is the classified failure returned by every service. Fields is only
// populated for validation failures and maps request field names to
// messages.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation      = &Error{Kind: KindValidation, Message: "Validation failed"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "Resource not found"}
	ErrConflict        = &Error{Kind: KindConflict, Message: "Conflict"}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: "Unauthenticated"}
	ErrUnverified      = &Error{Kind: KindUnverified, Message: "Please verify your email address before logging in"}
)

func NewValidationError(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

// FieldError is a validation failure on a single field.
func FieldError(field, message string) *Error {
	return NewValidationError(map[string][]string{field: {message}})
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func Unexpected(message string, err error) *Error {
	return &Error{Kind: KindUnexpected, Message: message, Err: err}
}

// KindOf classifies err; anything that is not an *Error is unexpected.
func KindOf(err error) ErrorKind {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Kind
	}
	return KindUnexpected
}

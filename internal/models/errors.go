package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for the HTTP boundary.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindAuth
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	default:
		return "internal"
	}
}

// Client-facing messages. The auth messages are deliberately generic and
// shared between distinct causes.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgInvalidToken       = "Invalid or expired token"
	MsgEmailTaken         = "Email already registered"
	MsgUsernameTaken      = "Username already taken"
	MsgDuplicateUser      = "Email or username already taken"
	MsgInvalidBody        = "Invalid request body"
	MsgInternal           = "Internal server error"
)

// AppError is an error carrying its kind and a message safe to show clients.
// Err holds the underlying cause for server-side logging only.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError reports malformed, user-correctable input.
func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

// NewConflictError reports a uniqueness violation.
func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

// NewAuthError reports bad credentials or a bad token.
func NewAuthError(message string) *AppError {
	return &AppError{Kind: KindAuth, Message: message}
}

// NewInternalError wraps a storage, hashing or signing failure.
func NewInternalError(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: MsgInternal, Err: err}
}

// KindOf classifies err. Anything that is not an AppError is internal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// AsAppError returns err as an AppError, wrapping unknown errors as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(err)
}

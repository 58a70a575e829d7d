// Package apperr defines the typed application error used across every
// service layer (auth, storage, sandbox, httpapi) so the HTTP layer can
// map a failure to a status code without string-sniffing.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an AppError for status-code mapping and logging.
type Kind string

const (
	KindBadRequest Kind = "bad_request"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindSandbox    Kind = "sandbox"
	KindValidation Kind = "validation"
	KindDatabase   Kind = "database"
	KindInternal   Kind = "internal"
)

// AppError wraps a Kind, a human-readable message, and an optional
// underlying cause kept for logging but never serialized to clients.
type AppError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *AppError {
	return &AppError{Kind: kind, Message: message, Cause: cause}
}

func BadRequest(format string, args ...any) *AppError {
	return New(KindBadRequest, fmt.Sprintf(format, args...))
}

func Auth(format string, args ...any) *AppError {
	return New(KindAuth, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *AppError {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Sandbox(cause error, format string, args ...any) *AppError {
	return Wrap(KindSandbox, fmt.Sprintf(format, args...), cause)
}

func Validation(format string, args ...any) *AppError {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func Database(cause error, format string, args ...any) *AppError {
	return Wrap(KindDatabase, fmt.Sprintf(format, args...), cause)
}

func Internal(cause error, format string, args ...any) *AppError {
	return Wrap(KindInternal, fmt.Sprintf(format, args...), cause)
}

// As extracts an *AppError from err, if any wraps one.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

package store

import (
	"errors"
	"fmt"

	"playlister/logger"
)

// Error kinds. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrValidation   = errors.New("validation")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal")
)

// Error is a store failure carrying a message that is safe to show the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...interface{}) *Error {
	return newError(ErrValidation, format, args...)
}

func forbiddenError(format string, args ...interface{}) *Error {
	return newError(ErrForbidden, format, args...)
}

func notFoundError(format string, args ...interface{}) *Error {
	return newError(ErrNotFound, format, args...)
}

func conflictError(format string, args ...interface{}) *Error {
	return newError(ErrConflict, format, args...)
}

// internalError logs the cause and hides it from the caller.
func internalError(op string, err error) *Error {
	logger.Error("store operation failed", logger.String("op", op), logger.ErrorField(err))
	return &Error{Kind: ErrInternal, Message: "Internal server error"}
}

// Message extracts the caller-facing message of err.
func Message(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "Internal server error"
}

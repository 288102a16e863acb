package apperror

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/workforce-engine/internal/pkg/validator"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	KindValidation          Kind = "VALIDATION_ERROR"
	KindNotFound            Kind = "NOT_FOUND"
	KindInvalidState        Kind = "INVALID_STATE"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindDuplicateCheckIn    Kind = "DUPLICATE_CHECK_IN"
	KindNoOpenCheckIn       Kind = "NO_OPEN_CHECK_IN"
	KindImmutableRecord     Kind = "IMMUTABLE_RECORD"
	KindServer              Kind = "SERVER_ERROR"
)

// Error is a domain error carrying a kind and a human readable message.
// Sentinels are compared by identity, so keep them as package level vars.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether the caller may retry the same operation.
func (e *Error) Retryable() bool {
	return e.Kind == KindServer
}

// Collaborator wraps a persistence or delivery failure as a retryable server error.
func Collaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: KindServer, Message: op, cause: err}
}

// KindOf returns the kind of err, or KindServer for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return KindValidation
	}
	return KindServer
}

// IsRetryable reports whether err is a retryable collaborator failure.
func IsRetryable(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Retryable()
	}
	return false
}

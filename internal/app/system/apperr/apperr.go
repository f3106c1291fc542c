// Package apperr classifies failures so handlers can map them to stable
// HTTP statuses without inspecting error strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure classification surfaced to callers.
type Kind int

const (
	// KindInternal is any unexpected store or blob failure.
	KindInternal Kind = iota
	// KindNotFound covers resources that are absent or soft-deleted.
	KindNotFound
	// KindExpired means the resource's expiry has passed.
	KindExpired
	// KindUnauthorized covers missing/incorrect passwords, bad or expired
	// tokens, and emails outside the allow-list.
	KindUnauthorized
	// KindForbidden means the credential is valid but for a different
	// resource root, or ownership does not match on a mutation.
	KindForbidden
	// KindValidation covers malformed input: empty titles, unsupported
	// extensions, oversized uploads, depth-limit violations.
	KindValidation
	// KindStorageIntegrity means a blob was missing or size-mismatched
	// after upload. Never retried automatically.
	KindStorageIntegrity
)

// Error carries a classification and a short human-readable message.
// Stack traces and internal details never ride on the message.
type Error struct {
	Kind    Kind
	Message string
	wrapped error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

// HTTPStatus maps the classification to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindExpired:
		return http.StatusGone
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// New builds a classified error with a fixed message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a classification and user-facing message to an underlying
// error while keeping the cause reachable through errors.Unwrap.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, wrapped: err}
}

func NotFound(message string) *Error         { return New(KindNotFound, message) }
func Expired(message string) *Error          { return New(KindExpired, message) }
func Unauthorized(message string) *Error     { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error        { return New(KindForbidden, message) }
func Validation(message string) *Error       { return New(KindValidation, message) }
func StorageIntegrity(message string) *Error { return New(KindStorageIntegrity, message) }
func Internal(err error) *Error {
	return Wrap(KindInternal, "internal error", err)
}

// KindOf extracts the classification from err, defaulting to KindInternal
// for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is lets errors.Is match on classification: two *Errors are equal when
// their Kinds match, so sentinel-style checks work without shared values.
func (e *Error) Is(target error) bool {
	var ae *Error
	if !errors.As(target, &ae) {
		return false
	}
	return e.Kind == ae.Kind
}

// StatusOf maps any error to an HTTP status via its classification.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// MessageOf returns the user-facing message for err. Unclassified errors
// collapse to a generic message so internals never leak.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal error"
}

// Package apperror defines the error kinds the application reports to
// clients. Services return them as ordinary error values; the HTTP layer
// maps each Kind to a status code exactly once (see utils/response).
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindBeanValidation
	KindConstraintViolation
	KindIllegalArgument
	KindTypeMismatch
	KindMalformedBody
	KindMethodNotAllowed
)

var kindNames = map[Kind]string{
	KindInternal:            "INTERNAL_ERROR",
	KindNotFound:            "RESOURCE_NOT_FOUND",
	KindValidation:          "VALIDATION_ERROR",
	KindBeanValidation:      "VALIDATION_ERROR",
	KindConstraintViolation: "CONSTRAINT_VIOLATION",
	KindIllegalArgument:     "ILLEGAL_ARGUMENT",
	KindTypeMismatch:        "TYPE_MISMATCH",
	KindMalformedBody:       "MALFORMED_JSON",
	KindMethodNotAllowed:    "METHOD_NOT_ALLOWED",
}

// String returns the log label of the kind, e.g. "RESOURCE_NOT_FOUND".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindInternal]
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field         string `json:"field"`
	RejectedValue any    `json:"rejected_value"`
	Message       string `json:"message"`
}

// Error is the application error type.
type Error struct {
	Kind    Kind
	Message string

	// Field and RejectedValue are set by business validation errors that
	// concern a single input field.
	Field         string
	RejectedValue any

	// FieldErrors is set by payload and constraint validation.
	FieldErrors []FieldError

	// Err is the underlying cause, if any. It is never shown to clients.
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.FieldErrors) > 0 {
		details := make([]string, 0, len(e.FieldErrors))
		for _, fe := range e.FieldErrors {
			details = append(details, fe.Message)
		}
		msg = fmt.Sprintf("%s (%s)", msg, strings.Join(details, ", "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports a missing resource, e.g. NotFound("Pessoa", 42).
func NotFound(resource string, id int64) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found with ID: %d", resource, id),
	}
}

// NoRoute reports a request path the API does not serve.
func NoRoute(method, path string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("no endpoint %s %s", method, path),
	}
}

// MethodNotAllowed reports a known path requested with an unsupported
// method.
func MethodNotAllowed(method, path string) *Error {
	return &Error{
		Kind:    KindMethodNotAllowed,
		Message: fmt.Sprintf("method %s is not supported for %s", method, path),
	}
}

// Validation reports a broken business rule that is not tied to a field.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// FieldValidation reports a broken business rule on a single field.
func FieldValidation(field string, rejected any, message string) *Error {
	return &Error{
		Kind:          KindValidation,
		Message:       message,
		Field:         field,
		RejectedValue: rejected,
	}
}

// BeanValidation reports payload fields that failed their declared rules.
func BeanValidation(fieldErrors []FieldError) *Error {
	return &Error{
		Kind:        KindBeanValidation,
		Message:     "validation failed for the supplied fields",
		FieldErrors: fieldErrors,
	}
}

// ConstraintViolation reports storage constraints rejected by the database.
func ConstraintViolation(cause error, violations ...FieldError) *Error {
	return &Error{
		Kind:        KindConstraintViolation,
		Message:     "validation error",
		FieldErrors: violations,
		Err:         cause,
	}
}

// IllegalArgument reports an argument that is well-formed but unusable.
func IllegalArgument(message string) *Error {
	return &Error{Kind: KindIllegalArgument, Message: message}
}

// TypeMismatch reports a path or query parameter that could not be
// converted to the expected type.
func TypeMismatch(param, value, expectedType string, cause error) *Error {
	return &Error{
		Kind: KindTypeMismatch,
		Message: fmt.Sprintf("parameter '%s' with value '%s' could not be converted to type %s",
			param, value, expectedType),
		Err: cause,
	}
}

// MalformedBody reports a request body that could not be decoded.
func MalformedBody(cause error) *Error {
	return &Error{
		Kind:    KindMalformedBody,
		Message: "request contains invalid or malformed JSON",
		Err:     cause,
	}
}

// As returns the *Error in err's chain, if there is one.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Package apperror defines the error kinds returned by the service layer and
// their translation to HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	// Internal is a backing-store or otherwise unexpected failure.
	Internal Kind = iota
	// Validation means the payload broke one or more field rules.
	Validation
	// Conflict means a unique field (email, username) is already used.
	Conflict
	// Unauthorized means the bearer token is missing or invalid.
	Unauthorized
	// Forbidden means the caller is authenticated but does not own the resource.
	Forbidden
	// NotFound means no record matches the identifier (or identifier/owner pair).
	NotFound
	// BadRequest is a domain-level rejection reported with a plain message.
	BadRequest
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case BadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// Violation describes a single rejected field.
type Violation struct {
	Value    any    `json:"value"`
	Msg      string `json:"msg"`
	Param    string `json:"param"`
	Location string `json:"location"`
}

// Error is the tagged error carried from services to the HTTP boundary.
type Error struct {
	Kind       Kind
	Message    string
	Violations []Violation
	Err        error
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

// StatusCode maps the error kind to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case Validation, Conflict, BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NewValidation wraps field violations. Conflicts found alongside field
// violations are reported in the same list.
func NewValidation(violations []Violation) *Error {
	return &Error{Kind: Validation, Message: "validation failed", Violations: violations}
}

func NewConflict(violations []Violation) *Error {
	return &Error{Kind: Conflict, Message: "unique value already used", Violations: violations}
}

func NewUnauthorized(message string) *Error {
	return New(Unauthorized, message, nil)
}

func NewForbidden(message string) *Error {
	return New(Forbidden, message, nil)
}

func NewNotFound(message string) *Error {
	return New(NotFound, message, nil)
}

func NewBadRequest(message string) *Error {
	return New(BadRequest, message, nil)
}

func NewInternal(err error) *Error {
	return New(Internal, "internal server error", err)
}

// From extracts an *Error from err's chain.
func From(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsConflict reports whether err carries a Conflict error.
func IsConflict(err error) bool {
	appErr, ok := From(err)
	return ok && appErr.Kind == Conflict
}

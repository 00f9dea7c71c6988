package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique constraint was violated by the store.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrConflict indicates a compare-and-set write lost against a concurrent writer.
	ErrConflict = errors.New("concurrent modification")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DuplicateError reports which unique key a store write collided with. It
// matches ErrDuplicate under errors.Is.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string { return "duplicate entry: " + e.Field }

// Is makes errors.Is(err, ErrDuplicate) hold.
func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// DuplicateField returns the colliding key of a duplicate error, or "".
func DuplicateField(err error) string {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.Field
	}
	return ""
}

// Kind classifies errors surfaced to clients.
type Kind int

const (
	// KindUnknown marks errors that carry no classification.
	KindUnknown Kind = iota
	// KindValidation marks malformed or missing input fields.
	KindValidation
	// KindBadRequest marks business-rule violations.
	KindBadRequest
	// KindNotAuthorized marks missing credentials or insufficient permissions.
	KindNotAuthorized
	// KindNotFound marks references to entities that do not exist.
	KindNotFound
	// KindSystem marks operational system faults.
	KindSystem
	// KindCritical marks faults that leave the process in an undefined state.
	KindCritical
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBadRequest:
		return "bad_request"
	case KindNotAuthorized:
		return "not_authorized"
	case KindNotFound:
		return "not_found"
	case KindSystem:
		return "system"
	case KindCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// FieldError is a single serialisable error entry.
type FieldError struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Error is the classified error carried through gates, services and handlers.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Operational reports whether the process may keep serving after this error.
func (e *Error) Operational() bool {
	return e.Kind != KindCritical
}

// Entries returns the client-facing error list.
func (e *Error) Entries() []FieldError {
	if len(e.Fields) > 0 {
		return e.Fields
	}
	return []FieldError{{Message: e.Message}}
}

// Validation builds a ValidationError from field entries.
func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "Invalid parameters", Fields: fields}
}

// BadRequest builds a business-rule violation.
func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// BadRequestField builds a business-rule violation tied to an input field.
func BadRequestField(field, message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message, Fields: []FieldError{{Message: message, Field: field}}}
}

// NotAuthorized builds a 401-class error.
func NotAuthorized(message string) *Error {
	return &Error{Kind: KindNotAuthorized, Message: message}
}

// NotFound builds a 404-class error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// System wraps an operational system fault.
func System(message string, err error) *Error {
	return &Error{Kind: KindSystem, Message: message, Err: err}
}

// Critical wraps a non-operational fault.
func Critical(message string, err error) *Error {
	return &Error{Kind: KindCritical, Message: message, Err: err}
}

// KindOf returns the classification of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

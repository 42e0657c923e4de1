// Package apperr is the error taxonomy shared by services and handlers.
// Services return *Error values; handlers map Kind to an HTTP status.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindPermissionDenied
	KindNotFound
	KindDuplicateReview
	KindConflict
	KindIntegrity
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindDuplicateReview:
		return "duplicate_review"
	case KindConflict:
		return "conflict"
	case KindIntegrity:
		return "integrity"
	case KindExternal:
		return "external"
	default:
		return "internal"
	}
}

// Error carries a Kind, a stable machine code and a client-safe message.
// Fields maps JSON field names to messages for validation failures.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind so errors.Is(err, apperr.NotFound("")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Validation(field, msg string) *Error {
	e := &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "Invalid data."}
	if field != "" {
		e.Fields = map[string]string{field: msg}
	} else {
		e.Message = msg
	}
	return e
}

func ValidationFields(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "Invalid data.", Fields: fields}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: msg}
}

func PermissionDenied(msg string) *Error {
	if msg == "" {
		msg = "You do not have permission to perform this action."
	}
	return &Error{Kind: KindPermissionDenied, Code: "PERMISSION_DENIED", Message: msg}
}

func NotFound(msg string) *Error {
	if msg == "" {
		msg = "Resource not found."
	}
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: msg}
}

func DuplicateReview(msg string) *Error {
	return &Error{Kind: KindDuplicateReview, Code: "DUPLICATE_REVIEW", Message: msg}
}

func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func Integrity(code, msg string) *Error {
	return &Error{Kind: KindIntegrity, Code: code, Message: msg}
}

func External(msg string, err error) *Error {
	return &Error{Kind: KindExternal, Code: "UPSTREAM_ERROR", Message: msg, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "An internal error occurred.", Err: err}
}

// WithCode returns a copy of e with a different machine code.
func (e *Error) WithCode(code string) *Error {
	c := *e
	c.Code = code
	return &c
}

// Package apperror defines the domain error taxonomy shared by all services.
// Every rejected operation reports which invariant blocked it (current vs
// attempted state) so the calling UI can render a precise message instead of
// a generic failure.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies how an error should be handled by the caller.
type Kind string

const (
	// KindValidation — bad input shape or range. Caller's fault, always
	// recoverable by correcting the input.
	KindValidation Kind = "validation"
	// KindStateConflict — the operation is invalid for the entity's current
	// state (closed session, void invoice, over-payment, …).
	KindStateConflict Kind = "state_conflict"
	// KindConcurrency — lost a race for an atomic resource (sequence number,
	// payment update). Safe to retry the whole operation from scratch.
	KindConcurrency Kind = "concurrency"
	// KindPersistence — storage-layer failure, surfaced as-is. Never retried
	// automatically unless the write was transactional.
	KindPersistence Kind = "persistence"
	// KindNotFound — the referenced entity does not exist for the tenant.
	KindNotFound Kind = "not_found"
)

// Stable error codes, one per invariant.
const (
	CodeInvalidAmount      = "InvalidAmount"
	CodeSessionAlreadyOpen = "SessionAlreadyOpen"
	CodeSessionNotOpen     = "SessionNotOpen"
	CodeSessionClosed      = "SessionClosed"
	CodeInvoiceVoid        = "InvoiceVoid"
	CodeAlreadyVoid        = "AlreadyVoid"
	CodeOverPayment        = "OverPayment"
	CodeGatewayRejected    = "GatewayRejected"
	CodeNotFound           = "NotFound"
	CodeConflict           = "Conflict"
	CodeStorage            = "Storage"
)

// Error is the canonical domain error. Code is stable across releases;
// Message carries the human-readable invariant explanation.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a KindValidation error.
func Validation(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// StateConflict builds a KindStateConflict error.
func StateConflict(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindStateConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Concurrency builds a KindConcurrency error wrapping the underlying cause.
func Concurrency(message string, err error) *Error {
	return &Error{Kind: KindConcurrency, Code: CodeConflict, Message: message, Err: err}
}

// Persistence wraps a storage failure without swallowing it.
func Persistence(err error) *Error {
	return &Error{Kind: KindPersistence, Code: CodeStorage, Message: "storage failure", Err: err}
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the stable code from err, or "" when err is not an *Error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// KindOf extracts the kind from err, defaulting to KindPersistence for
// unclassified errors so that unknown failures never masquerade as the
// caller's fault.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// IsCode reports whether err carries the given stable code.
func IsCode(err error, code string) bool { return CodeOf(err) == code }

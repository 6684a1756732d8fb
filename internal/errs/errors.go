// Package errs provides the unified error type used across all of sqlstage.
//
// Every subsystem (dialect, introspect, session, drivers, filestore) wraps
// its native errors into *errs.Error before returning them to callers.
// Callers use the Is* predicates to handle errors without importing
// driver-specific packages.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindConnectionFailed, "ping failed", pgErr)
//
//	// In a caller, check the error kind:
//	if errs.IsBatchMismatch(err) {
//	    _ = sess.Rollback(ctx)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
// All backends map their native errors to one of these kinds, giving
// callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no rows, no table, no object
	ErrKindConnectionFailed         // cannot reach the backend
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // SQL or storage operation error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure

	ErrKindUnsupportedDatabase // no dialect adapter for the product name
	ErrKindUnknownTypeMapping  // native column type absent from the mapping table
	ErrKindUnsupportedLiteral  // value cannot be rendered as a SQL literal
	ErrKindBatchMismatch       // affected-row counts disagree with expectations
	ErrKindMissingIdentifier   // operation needs a primary key the type lacks
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindUnsupportedDatabase:
		return "unsupported_database"
	case ErrKindUnknownTypeMapping:
		return "unknown_type_mapping"
	case ErrKindUnsupportedLiteral:
		return "unsupported_literal_type"
	case ErrKindBatchMismatch:
		return "batch_mismatch"
	case ErrKindMissingIdentifier:
		return "missing_identifier"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all sqlstage subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a formatted message.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a backend operation failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsUnsupportedDatabase reports whether no dialect adapter matched the product.
func IsUnsupportedDatabase(err error) bool {
	return KindOf(err) == ErrKindUnsupportedDatabase
}

// IsUnknownTypeMapping reports whether a native column type had no mapping.
func IsUnknownTypeMapping(err error) bool {
	return KindOf(err) == ErrKindUnknownTypeMapping
}

// IsUnsupportedLiteral reports whether a value could not be rendered as a literal.
func IsUnsupportedLiteral(err error) bool {
	return KindOf(err) == ErrKindUnsupportedLiteral
}

// IsBatchMismatch reports whether a flush found unexpected affected-row counts.
func IsBatchMismatch(err error) bool {
	return KindOf(err) == ErrKindBatchMismatch
}

// IsMissingIdentifier reports whether an operation needed an absent primary key.
func IsMissingIdentifier(err error) bool {
	return KindOf(err) == ErrKindMissingIdentifier
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// Package errs provides the unified error type used across modelerd.
//
// Drivers (Postgres, MySQL, MinIO) wrap their native errors into *errs.Error
// before returning them, and the ERD core tags every association it cannot
// resolve with one of the resolution kinds below. Callers branch on the Is*
// predicates instead of importing driver packages.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindTimeout, "list columns timed out", pgErr)
//
//	// In the command, give the one fatal build condition its own status:
//	if errs.IsMetadataSourceUnavailable(err) {
//	    os.Exit(2)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no rows, no object, no bucket
	ErrKindConnectionFailed         // cannot reach the backend
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // SQL or storage operation error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure

	ErrKindUnresolvableForeignKey    // through-association or FK accessor failure
	ErrKindUnresolvableTargetModel   // no model or table found for an association target
	ErrKindMissingJoinTable          // many-to-many join table absent or unreadable
	ErrKindMetadataSourceUnavailable // model metadata cannot be loaded at all
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
	case ErrKindUnresolvableForeignKey:
		return "unresolvable_foreign_key"
	case ErrKindUnresolvableTargetModel:
		return "unresolvable_target_model"
	case ErrKindMissingJoinTable:
		return "missing_join_table"
	case ErrKindMetadataSourceUnavailable:
		return "metadata_source_unavailable"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON diagnostics.
func (k ErrKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error is the single error type returned by all modelerd subsystems.
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

// Newf is New with a format string.
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

// IsUnresolvableForeignKey reports whether an association's foreign key
// could not be derived.
func IsUnresolvableForeignKey(err error) bool {
	return KindOf(err) == ErrKindUnresolvableForeignKey
}

// IsUnresolvableTargetModel reports whether no target model or table was found.
func IsUnresolvableTargetModel(err error) bool {
	return KindOf(err) == ErrKindUnresolvableTargetModel
}

// IsMissingJoinTable reports whether a many-to-many join table is absent.
func IsMissingJoinTable(err error) bool {
	return KindOf(err) == ErrKindMissingJoinTable
}

// IsMetadataSourceUnavailable reports whether the model metadata could not be loaded.
func IsMetadataSourceUnavailable(err error) bool {
	return KindOf(err) == ErrKindMetadataSourceUnavailable
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

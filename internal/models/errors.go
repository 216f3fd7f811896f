package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for store access and entity lookups.
var (
	// ErrNotFound indicates the target document does not exist where the
	// operation requires it to (update, admin mutation on a concrete path).
	ErrNotFound = errors.New("document not found")

	// ErrUnavailable indicates the store client is not initialized or the
	// session has no tenant bound. Surfaced as a value instead of letting
	// a nil handle blow up several layers down.
	ErrUnavailable = errors.New("store not available")

	// ErrPermissionDenied is surfaced verbatim when the store rejects an
	// operation for authorization reasons.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidPath indicates a malformed document path (wrong segment
	// count or an empty segment).
	ErrInvalidPath = errors.New("invalid document path")
)

// Sentinel errors for enum validation.
var (
	ErrInvalidPlan   = errors.New("invalid plan")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidRole   = errors.New("invalid role")
)

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}

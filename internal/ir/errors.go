package ir

import (
	"errors"
	"fmt"
)

// ConstructionError represents a failure detected while constructing a
// store, shape, or call graph. Every error in the capability algebra is a
// construction-time failure: a program either fully resolves its
// capability requirements or is rejected before anything executes. None of
// these errors are recoverable by retry, because retrying does not change
// the static shapes involved.
type ConstructionError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Slot identifies the affected slot, or NoSlot.
	Slot SlotIndex

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes construction errors.
type ErrorCode string

const (
	// CodeSlotCollision indicates two capability kinds registered to the
	// same slot index, or two suppliers for one slot of a store.
	CodeSlotCollision ErrorCode = "SLOT_COLLISION"

	// CodeUnresolvedCapability indicates a required slot with no supplier
	// and no registered default.
	CodeUnresolvedCapability ErrorCode = "UNRESOLVED_CAPABILITY"

	// CodeAccessModeConflict indicates a merge saw the same slot filled
	// from two sources that do not provably denote the same resource.
	CodeAccessModeConflict ErrorCode = "ACCESS_MODE_CONFLICT"

	// CodeCoercionImpossible indicates a coercion that cannot legally reach
	// the target shape: missing slot, mode strengthening, or no payload
	// projection path.
	CodeCoercionImpossible ErrorCode = "COERCION_IMPOSSIBLE"

	// CodeExclusivityViolation indicates a store or handle used while a
	// narrower exclusive view derived from it is still alive.
	CodeExclusivityViolation ErrorCode = "EXCLUSIVITY_VIOLATION"
)

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	if e.Slot != NoSlot {
		return fmt.Sprintf("%s: %s (slot=%d)", e.Code, e.Message, e.Slot)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the error code from an error chain.
// Returns the empty code if err is not a ConstructionError.
func CodeOf(err error) ErrorCode {
	var ce *ConstructionError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsSlotCollision reports whether err is a slot collision.
// Uses errors.As to handle wrapped errors.
func IsSlotCollision(err error) bool {
	return CodeOf(err) == CodeSlotCollision
}

// IsUnresolved reports whether err is an unresolved capability.
func IsUnresolved(err error) bool {
	return CodeOf(err) == CodeUnresolvedCapability
}

// IsAccessModeConflict reports whether err is an access mode conflict.
func IsAccessModeConflict(err error) bool {
	return CodeOf(err) == CodeAccessModeConflict
}

// IsCoercionImpossible reports whether err is a failed coercion.
func IsCoercionImpossible(err error) bool {
	return CodeOf(err) == CodeCoercionImpossible
}

// IsExclusivityViolation reports whether err is an exclusivity violation.
func IsExclusivityViolation(err error) bool {
	return CodeOf(err) == CodeExclusivityViolation
}

// NewSlotCollision creates a ConstructionError for a slot collision.
func NewSlotCollision(slot SlotIndex, message string) *ConstructionError {
	return &ConstructionError{Code: CodeSlotCollision, Message: message, Slot: slot}
}

// NewUnresolved creates a ConstructionError for a missing capability.
func NewUnresolved(slot SlotIndex, message string) *ConstructionError {
	return &ConstructionError{Code: CodeUnresolvedCapability, Message: message, Slot: slot}
}

// NewAccessModeConflict creates a ConstructionError for a merge conflict.
func NewAccessModeConflict(slot SlotIndex, message string) *ConstructionError {
	return &ConstructionError{Code: CodeAccessModeConflict, Message: message, Slot: slot}
}

// NewCoercionImpossible creates a ConstructionError for a failed coercion.
func NewCoercionImpossible(slot SlotIndex, message string) *ConstructionError {
	return &ConstructionError{Code: CodeCoercionImpossible, Message: message, Slot: slot}
}

// NewExclusivityViolation creates a ConstructionError for use of a
// suspended store or handle.
func NewExclusivityViolation(slot SlotIndex, message string) *ConstructionError {
	return &ConstructionError{Code: CodeExclusivityViolation, Message: message, Slot: slot}
}

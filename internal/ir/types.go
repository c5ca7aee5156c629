package ir

import "fmt"

// MaxSlots is the fixed arity of every Store. Capability kinds beyond this
// count cannot be registered; the design commits to a small fixed arity
// rather than an open-ended slot space.
const MaxSlots = 8

// SlotIndex identifies one capability slot within a Store.
// Valid indices are in [0, MaxSlots).
type SlotIndex int

// NoSlot is the sentinel for "no slot involved" in error reporting.
const NoSlot SlotIndex = -1

// Valid reports whether the index is within the fixed arity.
func (s SlotIndex) Valid() bool {
	return s >= 0 && s < MaxSlots
}

// Mode is the access mode of a Handle: Shared or Exclusive.
type Mode uint8

const (
	// ModeShared allows any number of simultaneous views of a resource.
	ModeShared Mode = iota

	// ModeExclusive allows exactly one live view of a resource at a time,
	// program-wide, not just within one Store.
	ModeExclusive
)

// String returns the lowercase mode name used in declarations and output.
func (m Mode) String() string {
	switch m {
	case ModeShared:
		return "shared"
	case ModeExclusive:
		return "exclusive"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode converts a declaration string to a Mode.
// Empty defaults to shared, the weaker of the two modes.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "shared":
		return ModeShared, nil
	case "exclusive":
		return ModeExclusive, nil
	default:
		return ModeShared, fmt.Errorf("invalid mode %q: must be shared or exclusive", s)
	}
}

// JoinMode returns the stronger of two modes. Exclusive dominates Shared:
// a caller needing exclusive access anywhere in a merge must not be handed
// a shared view.
func JoinMode(a, b Mode) Mode {
	if a == ModeExclusive || b == ModeExclusive {
		return ModeExclusive
	}
	return ModeShared
}

// ScopeID is the identity of a validity scope. Two Handles referring to the
// same underlying resource share the same scope identity; scope-identity
// equality is the test for "these two handles denote the same resource".
type ScopeID string

// PayloadType names the payload type carried by a capability. Payload
// compatibility between distinct names is declared explicitly through the
// registry's projection table.
type PayloadType string

// Visibility controls where a capability kind may be required from.
type Visibility string

const (
	// VisibilityPublic kinds may appear in any function's requirements.
	VisibilityPublic Visibility = "public"

	// VisibilityModule kinds are declaration-internal: they may be supplied
	// and consumed, but external declaration surfaces reject them.
	VisibilityModule Visibility = "module"
)

// ValidateVisibility checks a declared visibility string.
// Empty is valid and defaults to public.
func ValidateVisibility(v string) error {
	switch Visibility(v) {
	case VisibilityPublic, VisibilityModule, "":
		return nil
	default:
		return fmt.Errorf("invalid visibility %q: must be public or module", v)
	}
}

// Kind is a declared capability identity. Created once, process-wide, at
// declaration time; immutable after declaration.
type Kind struct {
	Name       string      `json:"name"`
	Slot       SlotIndex   `json:"slot"`
	Payload    PayloadType `json:"payload"`
	Visibility Visibility  `json:"visibility"`
	HasDefault bool        `json:"has_default,omitempty"`
}

// Requirement is one entry of a function's required shape: the slot it
// needs, the access mode, and the payload type it expects to see.
type Requirement struct {
	Slot    SlotIndex   `json:"slot"`
	Mode    Mode        `json:"mode"`
	Payload PayloadType `json:"payload"`
}

// FuncDecl declares a function's capability surface: what it requires
// directly and which functions it calls. Callees are listed in declaration
// order; resolution visits them in exactly that order.
type FuncDecl struct {
	Name     string        `json:"name"`
	Requires []Requirement `json:"requires,omitempty"`
	Calls    []string      `json:"calls,omitempty"`
}

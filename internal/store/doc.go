// Package store implements the capability store and its algebra: a
// fixed-arity container of typed access handles, plus insertion,
// extraction, unification, coercion, and narrowing over it.
//
// Everything here is a construction-time discipline. "Suspension" means
// static unavailability enforced before execution, not cooperative
// yielding: no operation blocks, and every failure (slot collision,
// unresolved capability, access mode conflict, impossible coercion,
// exclusivity violation) is surfaced when a store is built or reshaped,
// never while the program it describes is running.
//
// The aliasing invariant the whole algebra preserves: a resource may be
// referenced by any number of Shared handles, but at most one Exclusive
// handle may be alive per resource at any instant, program-wide.
package store

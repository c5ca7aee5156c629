// Package registry assigns each capability kind a unique slot index at
// declaration time and owns the two declaration-scoped tables the store
// algebra consults during coercion: the payload projection table (which
// payload conversions a coercion may apply) and the default table (which
// kinds may be synthesized when no caller supplies them).
//
// A registry is mutable only during program declaration. Freeze marks the
// end of declaration; every later mutation attempt is rejected. There is
// no removal operation.
package registry

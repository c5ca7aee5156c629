// Package resolver is the call-graph construction layer. Given declared
// functions (name, required capabilities, callees) and a root store of
// supplied capabilities, it resolves the whole graph before anything would
// execute: each function's transitive required shape is computed by
// joining its own requirements with those of its callees, the root store
// is coerced down edge by edge, exclusive handles are narrowed across call
// boundaries and restored afterward, and defaults are synthesized at most
// once per chain.
//
// Every failure the store algebra can detect surfaces here, at
// construction time. A program either fully resolves or is rejected; there
// is no partial or degraded outcome.
package resolver

// Package testutil provides deterministic helpers for tests.
//
// Resolution traces are compared byte for byte by golden tests and by the
// audit verifier, so anything nondeterministic (scope identity minting in
// particular) is replaced here with sequence-based stand-ins.
package testutil

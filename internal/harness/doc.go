// Package harness provides a conformance testing framework for the
// resolver.
//
// Scenarios are YAML files declaring capability kinds, projections,
// function surfaces, and root supplies, plus an expectation: either the
// program resolves, or it fails with a named construction error code.
// The harness builds the program exactly the way the CLI does, resolves
// it with sequential scope identities, and returns the decision trace.
//
// Traces are deterministic, so golden files pin the exact event sequence
// a scenario must produce. A trace change without a matching golden
// update is a behavior change.
package harness

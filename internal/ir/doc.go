// Package ir defines the declaration-time data types shared by every layer
// of the capability store: slot indices, access modes, scope identities,
// capability kinds, requirements, shapes, and the construction-time error
// taxonomy.
//
// The package holds pure data only. The store algebra lives in
// internal/store, slot assignment in internal/registry, and call-graph
// resolution in internal/resolver.
package ir

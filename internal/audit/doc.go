// Package audit provides durable storage for resolution traces. Every
// construction-time decision the resolver makes (coercions, narrowings,
// default syntheses) is appended to a SQLite log, together with the kinds
// that were registered. The log feeds the trace CLI command and the
// determinism check: re-resolving identical declarations must reproduce
// the stored trace exactly.
package audit

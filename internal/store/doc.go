// Package store provides SQLite-backed storage for test runs and the
// failing choice logs they produce, so a bug found in one process can be
// replayed in another.
//
// Tables:
//   - runs: one summary row per engine invocation
//   - traces: failing iterations, keyed by the content-addressed trace id
//   - decisions: the choice log of each trace, one row per decision
//
// Writing the same trace twice is a no-op: the id is derived from the
// program name and the choice log (see ir.TraceID).
//
// All list queries carry an explicit ORDER BY so results are identical
// across invocations.
//
// Every connection runs in WAL mode with foreign keys enforced and a five
// second busy timeout. The schema version lives in PRAGMA user_version and
// Open refuses a database written by a newer build.
package store

// Package engine is the bug-finding testing engine.
//
// The engine runs a Program many times ("iterations"), each under a fresh
// testing scheduler, runtime and set of monitors. A strategy decides every
// interleaving and nondeterministic choice; the decisions are recorded in a
// choice log.
//
// ITERATION VERDICTS:
//
//   - pass: the run reached quiescence with every monitor cold.
//   - fail: a machine or monitor reported a fatal error (unhandled event,
//     assertion, liveness violation, handler failure). The choice log is
//     retained so the iteration can be replayed exactly.
//   - inconclusive: the step bound was hit first.
//
// Configuration errors (unknown machine type, send to a nonexistent
// machine, bad transition target) abort the whole test: they are authoring
// mistakes, not schedule-dependent bugs.
//
// Determinism: given the same program, strategy and seed, Test explores the
// same iterations in the same order, and Replay of a recorded choice log
// reproduces the identical sequence of machine steps.
package engine

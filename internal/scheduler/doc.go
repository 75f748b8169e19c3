// Package scheduler decides which machine advances next.
//
// Two implementations share the Scheduler contract:
//
//   - Production runs machines on a bounded pool of worker goroutines.
//     Machines and wrapped foreign tasks wait in separate FIFO work queues.
//     A machine is dispatched to at most one worker at a time, which keeps
//     handling single-threaded per machine. Nondeterministic choices come
//     from a real random source.
//
//   - Testing runs on the caller's goroutine. At every decision point it
//     asks a Strategy which enabled machine steps next (or which value a
//     nondeterministic choice takes) and appends the answer to a choice log.
//     Feeding that log back through a replay strategy reproduces the same
//     interleaving.
//
// A run ends at quiescence (no machine enabled), on the first fatal error,
// or, in testing mode, when the step bound is hit (StepBoundError).
package scheduler

// Package harness runs YAML test scenarios against the sample programs.
//
// A scenario names a program, its parameters and the engine settings, the
// verdict it expects, and assertions over the step trace. The trace is the
// ordered list of events delivered to machines: for a failing scenario it
// comes from a replay of the first bug, otherwise from the first iteration.
//
// # Scenario Format
//
//	name: election_faulty
//	description: "faulty voters let two candidates win"
//	program: election
//	params: { faulty: "true" }
//	strategy: random
//	iterations: 200
//	seed: 3
//	expect:
//	  verdict: fail
//	  error: SAFETY_VIOLATION
//	assertions:
//	  - type: trace_contains
//	    event: election.leader
//	    machine_type: Cluster
//	  - type: trace_order
//	    events: [election.start, election.request_vote, election.vote]
//	  - type: trace_count
//	    event: election.start
//	    count: 2
//
// # Assertion Types
//
//   - trace_contains: an event of the kind was delivered (optionally to a machine type)
//   - trace_order: the first deliveries of the kinds occur in the given order
//   - trace_count: the kind was delivered exactly count times
//
// # Golden Traces
//
// RunWithGolden snapshots the trace as canonical JSON under
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness

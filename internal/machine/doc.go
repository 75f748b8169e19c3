// Package machine implements the actor: a hierarchical state machine with a
// state stack, a FIFO mailbox and a per-state event→action table.
//
// Behaviour is authored as a Go type implementing Behavior. Its Define
// method declares states on a Definition:
//
//	func (n *node) Define(d *machine.Definition) {
//		d.Start("Init")
//		d.State("Init",
//			machine.OnEntry(n.init),
//			machine.On(EvPing, machine.Do(n.reply)),
//			machine.On(EvDone, machine.Goto("Done")),
//		)
//		d.State("Done")
//	}
//
// A Machine is single-threaded: at most one event is handled at a time and
// the stack is only touched by the goroutine that currently steps it.
// Scheduling (who steps which machine, and when) lives in package scheduler;
// routing and monitor mirroring live in package runtime, reached through
// the Host interface.
package machine

// Package runtime is the dispatcher: the single authority for creating
// machines and routing events between them.
//
// A Runtime is bound to one Scheduler. Machines it creates are registered
// with that scheduler; every send enqueues into the target's mailbox and
// enables it. Before a machine handles an event, the event is mirrored to
// every registered monitor, in delivery order, so monitors observe exactly
// the interleaving the scheduler chose. Creation and halting are mirrored as
// ir.KindCreated and ir.KindHalted events.
//
// Work that is not authored as a machine can still join the schedule by
// wrapping it as a Task; the runtime runs it inside a shell machine that
// polls it once per step.
package runtime

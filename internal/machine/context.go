package machine

import (
	"fmt"
	"log/slog"

	"github.com/fniksic/PSharp/internal/ir"
)

// Host is the machine's view of the runtime: routing, creation, monitor
// mirroring and nondeterministic choice. Monitors run without a Host.
type Host interface {
	// Send enqueues ev in the target's mailbox.
	Send(from, target ir.MachineID, ev ir.Event) error
	// Create creates a machine of the named type.
	Create(from ir.MachineID, typeName string, ev ir.Event) (ir.MachineID, error)
	// Announce delivers ev to monitors only.
	Announce(from ir.MachineID, ev ir.Event) error
	// RandomBool resolves a nondeterministic boolean.
	RandomBool(from ir.MachineID) (bool, error)
	// RandomInt resolves a nondeterministic integer in [0, n).
	RandomInt(from ir.MachineID, n int) (int, error)
	// Deliver is called before m handles ev.
	Deliver(m *Machine, ev ir.Event) error
	// Halted is called once after m halts.
	Halted(m *Machine) error
}

type phase int

const (
	phaseEntry phase = iota
	phaseExit
	phaseDo
	phaseTransition
)

func (p phase) String() string {
	switch p {
	case phaseEntry:
		return "entry"
	case phaseExit:
		return "exit"
	case phaseTransition:
		return "transition"
	}
	return "do"
}

type intent struct {
	kind   ActionKind
	target ir.StateName
}

// Context is passed to every handler. It is only valid for the duration of
// the call.
type Context struct {
	m      *Machine
	state  ir.StateName
	event  ir.Event
	phase  phase
	intent *intent
	raised []ir.Event
	halt   bool
}

// ID returns the machine's id.
func (c *Context) ID() ir.MachineID { return c.m.id }

// State returns the state whose action is running.
func (c *Context) State() ir.StateName { return c.state }

// Event returns the event being handled. For the start state's entry action
// this is the constructor event.
func (c *Context) Event() ir.Event { return c.event }

// Payload returns the payload of the event being handled.
func (c *Context) Payload() any { return c.event.Payload }

// Logger returns the machine's logger.
func (c *Context) Logger() *slog.Logger { return c.m.logger }

// Send sends ev to target.
func (c *Context) Send(target ir.MachineID, ev ir.Event) error {
	if err := c.m.needHost("send"); err != nil {
		return err
	}
	return c.m.host.Send(c.m.id, target, ev)
}

// Create creates a machine of the named type with a constructor event.
func (c *Context) Create(typeName string, ev ir.Event) (ir.MachineID, error) {
	if err := c.m.needHost("create"); err != nil {
		return 0, err
	}
	return c.m.host.Create(c.m.id, typeName, ev)
}

// Announce publishes ev to every monitor without delivering it to a machine.
func (c *Context) Announce(ev ir.Event) error {
	if err := c.m.needHost("announce"); err != nil {
		return err
	}
	return c.m.host.Announce(c.m.id, ev)
}

// RandomBool returns a nondeterministic boolean.
func (c *Context) RandomBool() (bool, error) {
	if err := c.m.needHost("random choice"); err != nil {
		return false, err
	}
	return c.m.host.RandomBool(c.m.id)
}

// RandomInt returns a nondeterministic integer in [0, n).
func (c *Context) RandomInt(n int) (int, error) {
	if err := c.m.needHost("random choice"); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("RandomInt: n must be positive, got %d", n)
	}
	return c.m.host.RandomInt(c.m.id, n)
}

// Goto requests a transition to target once the handler returns.
func (c *Context) Goto(target ir.StateName) { c.setIntent(ActionGoto, target) }

// Push requests that target be pushed once the handler returns.
func (c *Context) Push(target ir.StateName) { c.setIntent(ActionPush, target) }

// Pop requests that the current state be popped once the handler returns.
func (c *Context) Pop() { c.setIntent(ActionPop, "") }

// Raise queues ev to be handled before the next mailbox event.
func (c *Context) Raise(ev ir.Event) { c.raised = append(c.raised, ev) }

// Halt requests that the machine halt once the handler returns.
func (c *Context) Halt() { c.halt = true }

// Assert returns a SAFETY_VIOLATION if cond is false.
func (c *Context) Assert(cond bool, format string, args ...any) error {
	if cond {
		return nil
	}
	return ir.Errorf(ir.ErrCodeSafetyViolation, format, args...)
}

// The last transition requested by a handler wins.
func (c *Context) setIntent(kind ActionKind, target ir.StateName) {
	c.intent = &intent{kind: kind, target: target}
}

package machine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fniksic/PSharp/internal/ir"
)

// Machine is one actor instance.
//
// The mailbox and the halted flag are safe for concurrent use. Everything
// else is owned by whoever is stepping the machine; Step, Enabled and the
// stack accessors must not be called concurrently with each other.
type Machine struct {
	id       ir.MachineID
	typ      *Type
	behavior Behavior
	def      *Definition
	host     Host
	logger   *slog.Logger
	monitor  bool
	onChange []func(from, to ir.StateName)

	mu      sync.Mutex
	mailbox []ir.Event
	halted  bool

	ctor    ir.Event
	started bool
	stack   []*State
	raised  []ir.Event
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the machine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithStateChangeCallback registers fn to be called whenever a state is
// entered. from is empty when the start state is entered.
func WithStateChangeCallback(fn func(from, to ir.StateName)) Option {
	return func(m *Machine) {
		m.onChange = append(m.onChange, fn)
	}
}

// AsMonitor runs the machine in monitor mode: unhandled events are dropped
// and the handlers may not send, create or make random choices.
func AsMonitor() Option {
	return func(m *Machine) {
		m.monitor = true
	}
}

// New instantiates a machine of type t with a single-element state stack.
// The start state's entry action runs on the first Step, after the caller
// has registered the machine with a scheduler.
func New(id ir.MachineID, t *Type, host Host, ctor ir.Event, opts ...Option) (*Machine, error) {
	b, def, err := t.instantiate()
	if err != nil {
		return nil, err
	}
	m := &Machine{
		id:       id,
		typ:      t,
		behavior: b,
		def:      def,
		host:     host,
		logger:   slog.Default(),
		ctor:     ctor,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("machine", id.String(), "type", t.name)
	m.stack = []*State{def.states[def.start]}
	return m, nil
}

// ID returns the machine's id.
func (m *Machine) ID() ir.MachineID { return m.id }

// Type returns the machine's type.
func (m *Machine) Type() *Type { return m.typ }

// Behavior returns the instance's behaviour value.
func (m *Machine) Behavior() Behavior { return m.behavior }

// IsMonitor reports whether the machine runs in monitor mode.
func (m *Machine) IsMonitor() bool { return m.monitor }

// Started reports whether the start state's entry action has run.
func (m *Machine) Started() bool { return m.started }

// CurrentState returns the top of the state stack.
func (m *Machine) CurrentState() ir.StateName {
	if len(m.stack) == 0 {
		return ""
	}
	return m.stack[len(m.stack)-1].Name
}

// Stack returns the state stack, bottom first.
func (m *Machine) Stack() []ir.StateName {
	out := make([]ir.StateName, len(m.stack))
	for i, s := range m.stack {
		out[i] = s.Name
	}
	return out
}

// Halted reports whether the machine has halted.
func (m *Machine) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.halted
}

// Pending returns the number of events in the mailbox.
func (m *Machine) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mailbox)
}

// Enqueue appends ev to the mailbox. It returns false, dropping the event,
// if the machine has halted.
func (m *Machine) Enqueue(ev ir.Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.halted {
		return false
	}
	m.mailbox = append(m.mailbox, ev)
	return true
}

// Enabled reports whether Step would make progress: the machine is alive and
// either has not started or holds an event that is not deferred.
func (m *Machine) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.halted {
		return false
	}
	if !m.started || len(m.raised) > 0 {
		return true
	}
	for _, ev := range m.mailbox {
		if !m.deferred(ev.Kind) {
			return true
		}
	}
	return false
}

// Step runs the start state's entry action if the machine has not started,
// and otherwise handles one event. It reports whether any work was done.
// A returned error is fatal for the run.
func (m *Machine) Step() (progressed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			progressed = true
			err = m.attribute(&ir.RuntimeError{
				Code:    ir.ErrCodeActionFailed,
				Message: "handler panicked",
				Err:     fmt.Errorf("panic: %v", r),
			}, nil)
		}
	}()

	if m.Halted() {
		return false, nil
	}
	if !m.started {
		m.started = true
		m.notify("", m.stack[0].Name)
		return true, m.enter(m.stack[0], m.ctor)
	}

	ev, ok := m.next()
	if !ok {
		return false, nil
	}
	if !m.monitor && m.host != nil {
		if err := m.host.Deliver(m, ev); err != nil {
			return true, err
		}
	}
	return true, m.handle(ev)
}

// Halt runs the exit action of every state on the stack, top to bottom, and
// marks the machine halted. Further Enqueue calls are no-ops.
func (m *Machine) Halt() error {
	if m.Halted() {
		return nil
	}
	return m.halt(ir.Halt())
}

func (m *Machine) next() (ir.Event, bool) {
	if len(m.raised) > 0 {
		ev := m.raised[0]
		m.raised = m.raised[1:]
		return ev, true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ev := range m.mailbox {
		if m.deferred(ev.Kind) {
			continue
		}
		m.mailbox = append(m.mailbox[:i:i], m.mailbox[i+1:]...)
		return ev, true
	}
	return ir.Event{}, false
}

// resolve finds the innermost state on the stack with an action for kind.
// It returns the stack index of that state, or -1.
func (m *Machine) resolve(kind ir.EventKind) (Action, int) {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if a, ok := m.stack[i].Handlers[kind]; ok {
			return a, i
		}
	}
	return Action{}, -1
}

func (m *Machine) deferred(kind ir.EventKind) bool {
	a, i := m.resolve(kind)
	return i >= 0 && a.Kind == ActionDefer
}

func (m *Machine) handle(ev ir.Event) error {
	action, owner := m.resolve(ev.Kind)
	if owner < 0 {
		// Monitors observe halt requests addressed to other machines.
		if m.monitor {
			return nil
		}
		if ev.Kind == ir.KindHalt {
			return m.halt(ev)
		}
		return m.attribute(&ir.RuntimeError{
			Code:    ir.ErrCodeUnhandledEvent,
			Message: "no state on the stack handles the event",
		}, &ev)
	}

	m.logger.Debug("handle", "state", m.CurrentState(), "event", ev.Kind, "action", action.Kind.String())

	switch action.Kind {
	case ActionIgnore:
		return nil
	case ActionDo:
		ctx, err := m.invoke(action.Do, m.stack[len(m.stack)-1], ev, phaseDo)
		if err != nil {
			return err
		}
		return m.apply(ctx)
	case ActionGoto:
		if err := m.unwind(owner+1, ev); err != nil {
			return err
		}
		return m.gotoState(action.Target, action.Do, ev)
	case ActionPush:
		if err := m.unwind(owner+1, ev); err != nil {
			return err
		}
		return m.push(action.Target, ev)
	case ActionPop:
		if err := m.unwind(owner+1, ev); err != nil {
			return err
		}
		return m.pop(ev)
	}
	return m.attribute(ir.Errorf(ir.ErrCodeConfig, "cannot apply %s action", action.Kind), &ev)
}

// unwind exits and pops every state above depth.
func (m *Machine) unwind(depth int, ev ir.Event) error {
	for len(m.stack) > depth {
		if err := m.pop(ev); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) gotoState(target ir.StateName, transition Handler, ev ir.Event) error {
	next, err := m.lookup(target, ev)
	if err != nil {
		return err
	}
	top := m.stack[len(m.stack)-1]
	if _, err := m.invoke(top.OnExit, top, ev, phaseExit); err != nil {
		return err
	}
	if transition != nil {
		ctx, err := m.invoke(transition, top, ev, phaseTransition)
		if err != nil {
			return err
		}
		m.raised = append(m.raised, ctx.raised...)
	}
	m.stack[len(m.stack)-1] = next
	m.notify(top.Name, next.Name)
	return m.enter(next, ev)
}

func (m *Machine) push(target ir.StateName, ev ir.Event) error {
	next, err := m.lookup(target, ev)
	if err != nil {
		return err
	}
	from := m.CurrentState()
	m.stack = append(m.stack, next)
	m.notify(from, next.Name)
	return m.enter(next, ev)
}

func (m *Machine) pop(ev ir.Event) error {
	top := m.stack[len(m.stack)-1]
	if len(m.stack) == 1 {
		return m.attribute(&ir.RuntimeError{
			Code:    ir.ErrCodeInvalidPop,
			Message: "pop on a single-element state stack",
		}, &ev)
	}
	if _, err := m.invoke(top.OnExit, top, ev, phaseExit); err != nil {
		return err
	}
	m.stack = m.stack[:len(m.stack)-1]
	m.notify(top.Name, m.CurrentState())
	return nil
}

func (m *Machine) enter(s *State, ev ir.Event) error {
	ctx, err := m.invoke(s.OnEntry, s, ev, phaseEntry)
	if err != nil {
		return err
	}
	return m.apply(ctx)
}

// apply carries out the intents a handler requested.
func (m *Machine) apply(ctx *Context) error {
	m.raised = append(m.raised, ctx.raised...)
	if ctx.halt {
		return m.halt(ctx.event)
	}
	if ctx.intent == nil {
		return nil
	}
	switch ctx.intent.kind {
	case ActionGoto:
		return m.gotoState(ctx.intent.target, nil, ctx.event)
	case ActionPush:
		return m.push(ctx.intent.target, ctx.event)
	case ActionPop:
		return m.pop(ctx.event)
	}
	return nil
}

func (m *Machine) halt(ev ir.Event) error {
	var first error
	for i := len(m.stack) - 1; i >= 0; i-- {
		s := m.stack[i]
		if _, err := m.invoke(s.OnExit, s, ev, phaseExit); err != nil && first == nil {
			first = err
		}
	}
	m.mu.Lock()
	m.halted = true
	m.mailbox = nil
	m.mu.Unlock()
	m.raised = nil
	m.logger.Debug("halted", "state", m.CurrentState())

	if !m.monitor && m.host != nil {
		if err := m.host.Halted(m); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *Machine) invoke(h Handler, s *State, ev ir.Event, ph phase) (*Context, error) {
	ctx := &Context{m: m, state: s.Name, event: ev, phase: ph}
	if h == nil {
		return ctx, nil
	}
	if err := call(h, ctx); err != nil {
		if _, ok := ir.AsRuntimeError(err); !ok {
			err = &ir.RuntimeError{Code: ir.ErrCodeActionFailed, Message: "handler returned an error", Err: err}
		}
		return ctx, m.attributeIn(err, s.Name, &ev)
	}
	// Exit and transition actions run mid-transition and cannot start another.
	if ph == phaseExit || ph == phaseTransition {
		switch {
		case ctx.intent != nil:
			return ctx, m.attributeIn(ir.Errorf(ir.ErrCodeActionFailed, "%s action requested a %s", ph, ctx.intent.kind), s.Name, &ev)
		case ctx.halt:
			return ctx, m.attributeIn(ir.Errorf(ir.ErrCodeActionFailed, "%s action requested a halt", ph), s.Name, &ev)
		}
	}
	return ctx, nil
}

// call runs h, converting a panic into an ACTION_FAILED error.
func call(h Handler, ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ir.RuntimeError{
				Code:    ir.ErrCodeActionFailed,
				Message: "handler panicked",
				Err:     fmt.Errorf("panic: %v", r),
			}
		}
	}()
	return h(ctx)
}

func (m *Machine) lookup(target ir.StateName, ev ir.Event) (*State, error) {
	s, ok := m.def.states[target]
	if !ok {
		return nil, m.attribute(ir.Errorf(ir.ErrCodeConfig, "transition to undefined state %q", target), &ev)
	}
	return s, nil
}

func (m *Machine) needHost(op string) error {
	if m.monitor || m.host == nil {
		return m.attribute(ir.Errorf(ir.ErrCodeConfig, "%s is not allowed in a monitor", op), nil)
	}
	return nil
}

func (m *Machine) notify(from, to ir.StateName) {
	if from != "" {
		m.logger.Debug("transition", "from", from, "to", to)
	}
	for _, fn := range m.onChange {
		fn(from, to)
	}
}

func (m *Machine) attribute(err error, ev *ir.Event) error {
	return m.attributeIn(err, m.CurrentState(), ev)
}

// attributeIn fills in the machine, state and event of a RuntimeError that
// does not name them yet.
func (m *Machine) attributeIn(err error, state ir.StateName, ev *ir.Event) error {
	re, ok := ir.AsRuntimeError(err)
	if !ok {
		return err
	}
	if re.Machine == 0 && re.Monitor == "" && re.MachineType == "" {
		if m.monitor {
			re.Monitor = m.typ.name
		} else {
			re.Machine = m.id
		}
		re.MachineType = m.typ.name
		re.State = state
		if ev != nil {
			re.Event = ev.Kind
		}
	}
	return err
}

package machine

import (
	"github.com/fniksic/PSharp/internal/ir"
)

// Temperature marks monitor states for liveness checking.
type Temperature int

const (
	Neutral Temperature = iota
	HotState
	ColdState
)

func (t Temperature) String() string {
	switch t {
	case HotState:
		return "hot"
	case ColdState:
		return "cold"
	default:
		return "neutral"
	}
}

// State describes one state of a machine type.
type State struct {
	Name        ir.StateName
	OnEntry     Handler
	OnExit      Handler
	Handlers    map[ir.EventKind]Action
	Temperature Temperature

	duplicates []ir.EventKind
}

// StateOption configures a State.
type StateOption func(*State)

// On binds an action to an event kind.
func On(kind ir.EventKind, action Action) StateOption {
	return func(s *State) {
		if _, exists := s.Handlers[kind]; exists {
			s.duplicates = append(s.duplicates, kind)
			return
		}
		s.Handlers[kind] = action
	}
}

// OnEntry sets the entry action.
func OnEntry(h Handler) StateOption {
	return func(s *State) {
		s.OnEntry = h
	}
}

// OnExit sets the exit action.
func OnExit(h Handler) StateOption {
	return func(s *State) {
		s.OnExit = h
	}
}

// Hot marks a monitor state as not yet having made progress.
func Hot() StateOption {
	return func(s *State) {
		s.Temperature = HotState
	}
}

// Cold marks a monitor state as having made progress.
func Cold() StateOption {
	return func(s *State) {
		s.Temperature = ColdState
	}
}

// Definition collects the states of one machine instance.
type Definition struct {
	states    map[ir.StateName]*State
	order     []ir.StateName
	start     ir.StateName
	redefined []ir.StateName
}

// NewDefinition creates an empty definition.
func NewDefinition() *Definition {
	return &Definition{states: make(map[ir.StateName]*State)}
}

// State declares a state.
func (d *Definition) State(name ir.StateName, opts ...StateOption) *Definition {
	if _, exists := d.states[name]; exists {
		d.redefined = append(d.redefined, name)
		return d
	}
	s := &State{Name: name, Handlers: make(map[ir.EventKind]Action)}
	for _, opt := range opts {
		opt(s)
	}
	d.states[name] = s
	d.order = append(d.order, name)
	return d
}

// Start sets the initial state.
func (d *Definition) Start(name ir.StateName) *Definition {
	d.start = name
	return d
}

// Lookup returns the named state.
func (d *Definition) Lookup(name ir.StateName) (*State, bool) {
	s, ok := d.states[name]
	return s, ok
}

// States returns the state names in declaration order.
func (d *Definition) States() []ir.StateName {
	out := make([]ir.StateName, len(d.order))
	copy(out, d.order)
	return out
}

// Validate checks the definition for authoring mistakes. Every failure is a
// CONFIGURATION_ERROR.
func (d *Definition) Validate() error {
	if d.start == "" {
		return ir.Errorf(ir.ErrCodeConfig, "no start state defined")
	}
	if _, ok := d.states[d.start]; !ok {
		return ir.Errorf(ir.ErrCodeConfig, "start state %q not defined", d.start)
	}
	if len(d.redefined) > 0 {
		return ir.Errorf(ir.ErrCodeConfig, "state %q defined more than once", d.redefined[0])
	}

	for _, name := range d.order {
		s := d.states[name]
		if len(s.duplicates) > 0 {
			return &ir.RuntimeError{
				Code:    ir.ErrCodeConfig,
				Message: "duplicate handler",
				State:   name,
				Event:   s.duplicates[0],
			}
		}
		for kind, a := range s.Handlers {
			switch a.Kind {
			case ActionDo:
				if a.Do == nil {
					return &ir.RuntimeError{Code: ir.ErrCodeConfig, Message: "do action without handler", State: name, Event: kind}
				}
			case ActionGoto, ActionPush:
				if _, ok := d.states[a.Target]; !ok {
					return &ir.RuntimeError{
						Code:    ir.ErrCodeConfig,
						Message: "transition to undefined state " + string(a.Target),
						State:   name,
						Event:   kind,
					}
				}
			case ActionPop, ActionDefer, ActionIgnore:
			default:
				return &ir.RuntimeError{Code: ir.ErrCodeConfig, Message: "unknown action " + a.Kind.String(), State: name, Event: kind}
			}
		}
	}
	return nil
}

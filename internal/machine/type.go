package machine

import (
	"fmt"

	"github.com/fniksic/PSharp/internal/ir"
)

// Behavior is the authored part of a machine: its local variables and the
// states it declares.
type Behavior interface {
	Define(d *Definition)
}

// DefineFunc adapts a function to Behavior.
type DefineFunc func(d *Definition)

// Define implements Behavior.
func (f DefineFunc) Define(d *Definition) { f(d) }

// Factory creates a fresh Behavior per machine instance.
type Factory func() Behavior

// Type is a registered, validated machine type.
type Type struct {
	name        string
	factory     Factory
	start       ir.StateName
	states      []ir.StateName
	temperature map[ir.StateName]Temperature
}

// NewType validates the definition produced by factory once so that typos in
// transition targets fail at registration rather than during a run.
func NewType(name string, factory Factory) (*Type, error) {
	if name == "" {
		return nil, ir.Errorf(ir.ErrCodeConfig, "machine type name is empty")
	}
	if factory == nil {
		return nil, ir.Errorf(ir.ErrCodeConfig, "machine type %q has no factory", name)
	}
	t := &Type{name: name, factory: factory}
	_, def, err := t.instantiate()
	if err != nil {
		return nil, err
	}
	t.start = def.start
	t.states = def.States()
	t.temperature = make(map[ir.StateName]Temperature, len(def.states))
	for n, s := range def.states {
		t.temperature[n] = s.Temperature
	}
	return t, nil
}

// MustType is like NewType but panics on error.
func MustType(name string, factory Factory) *Type {
	t, err := NewType(name, factory)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// Start returns the initial state.
func (t *Type) Start() ir.StateName { return t.start }

// States returns the declared states in declaration order.
func (t *Type) States() []ir.StateName {
	out := make([]ir.StateName, len(t.states))
	copy(out, t.states)
	return out
}

// Temperature returns the liveness mark of a state.
func (t *Type) Temperature(state ir.StateName) Temperature {
	return t.temperature[state]
}

func (t *Type) instantiate() (Behavior, *Definition, error) {
	b := t.factory()
	if b == nil {
		return nil, nil, ir.Errorf(ir.ErrCodeConfig, "machine type %q: factory returned nil", t.name)
	}
	def := NewDefinition()
	b.Define(def)
	if err := def.Validate(); err != nil {
		if re, ok := ir.AsRuntimeError(err); ok {
			re.MachineType = t.name
			return nil, nil, re
		}
		return nil, nil, fmt.Errorf("machine type %q: %w", t.name, err)
	}
	return b, def, nil
}

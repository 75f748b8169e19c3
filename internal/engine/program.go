package engine

import "github.com/fniksic/PSharp/internal/runtime"

// Program is a client of the runtime. Setup registers machine types and
// monitors and creates the bootstrap machine(s); it is called once per
// iteration on a fresh runtime.
type Program interface {
	Name() string
	Setup(rt *runtime.Runtime) error
}

type funcProgram struct {
	name  string
	setup func(rt *runtime.Runtime) error
}

func (p funcProgram) Name() string                    { return p.name }
func (p funcProgram) Setup(rt *runtime.Runtime) error { return p.setup(rt) }

// ProgramFunc adapts a setup function to Program.
func ProgramFunc(name string, setup func(rt *runtime.Runtime) error) Program {
	return funcProgram{name: name, setup: setup}
}

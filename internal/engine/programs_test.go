package engine

import (
	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/machine"
	"github.com/fniksic/PSharp/internal/runtime"
)

const (
	evHello   ir.EventKind = "hello"
	evRequest ir.EventKind = "request"
	evReply   ir.EventKind = "reply"
	evSpin    ir.EventKind = "spin"
)

// raceProgram has a server that wrongly expects client "a" to greet first.
func raceProgram() Program {
	return ProgramFunc("race", func(rt *runtime.Runtime) error {
		if err := rt.RegisterType("Server", func() machine.Behavior {
			first := true
			return machine.DefineFunc(func(d *machine.Definition) {
				d.Start("Serving")
				d.State("Serving", machine.On(evHello, machine.Do(func(c *machine.Context) error {
					if first {
						first = false
						return c.Assert(c.Payload() == "a", "first hello from %v", c.Payload())
					}
					return nil
				})))
			})
		}); err != nil {
			return err
		}
		if err := rt.RegisterType("Client", func() machine.Behavior {
			return machine.DefineFunc(func(d *machine.Definition) {
				d.Start("Init")
				d.State("Init", machine.OnEntry(func(c *machine.Context) error {
					args := c.Payload().([2]any)
					if err := c.Send(args[0].(ir.MachineID), ir.NewEvent(evHello, args[1])); err != nil {
						return err
					}
					c.Halt()
					return nil
				}))
			})
		}); err != nil {
			return err
		}
		server, err := rt.CreateMachine("Server", ir.Event{})
		if err != nil {
			return err
		}
		for _, name := range []string{"a", "b"} {
			if _, err := rt.CreateMachine("Client", ir.NewEvent("init", [2]any{server, name})); err != nil {
				return err
			}
		}
		return nil
	})
}

// responder is a requester/responder pair watched by a liveness monitor.
// When reply is false the responder swallows the request and the monitor
// stays hot. When spin is true the responder keeps itself busy forever.
func responderProgram(reply, spin bool) Program {
	return ProgramFunc("responder", func(rt *runtime.Runtime) error {
		if err := rt.RegisterMonitor("Answered", func() machine.Behavior {
			return machine.DefineFunc(func(d *machine.Definition) {
				d.Start("Idle")
				d.State("Idle", machine.Cold(), machine.On(evRequest, machine.Goto("Waiting")))
				d.State("Waiting", machine.Hot(),
					machine.On(evReply, machine.Goto("Idle")),
					machine.On(evRequest, machine.Ignore()),
				)
			})
		}); err != nil {
			return err
		}
		if err := rt.RegisterType("Responder", func() machine.Behavior {
			return machine.DefineFunc(func(d *machine.Definition) {
				d.Start("Ready")
				d.State("Ready",
					machine.OnEntry(func(c *machine.Context) error {
						if spin {
							c.Raise(ir.NewEvent(evSpin, nil))
						}
						return nil
					}),
					machine.On(evRequest, machine.Do(func(c *machine.Context) error {
						if reply {
							return c.Announce(ir.NewEvent(evReply, nil))
						}
						return nil
					})),
					machine.On(evSpin, machine.Do(func(c *machine.Context) error {
						return c.Send(c.ID(), ir.NewEvent(evSpin, nil))
					})),
				)
			})
		}); err != nil {
			return err
		}
		responder, err := rt.CreateMachine("Responder", ir.Event{})
		if err != nil {
			return err
		}
		if err := rt.Announce(ir.NewEvent(evRequest, nil)); err != nil {
			return err
		}
		return rt.Send(responder, ir.NewEvent(evRequest, nil))
	})
}

// choiceProgram flips two coins and fails only on heads/heads.
func choiceProgram() Program {
	return ProgramFunc("coins", func(rt *runtime.Runtime) error {
		if err := rt.RegisterType("Flipper", func() machine.Behavior {
			return machine.DefineFunc(func(d *machine.Definition) {
				d.Start("Flip")
				d.State("Flip", machine.OnEntry(func(c *machine.Context) error {
					a, err := c.RandomBool()
					if err != nil {
						return err
					}
					b, err := c.RandomBool()
					if err != nil {
						return err
					}
					if err := c.Assert(!(a && b), "heads twice"); err != nil {
						return err
					}
					c.Halt()
					return nil
				}))
			})
		}); err != nil {
			return err
		}
		_, err := rt.CreateMachine("Flipper", ir.Event{})
		return err
	})
}

// Package leader holds the correctness monitors shared by the leader
// election samples.
package leader

import (
	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/machine"
	"github.com/fniksic/PSharp/internal/runtime"
)

// EvElected is announced to monitors when a node decides it is the leader.
const EvElected ir.EventKind = "leader.elected"

// Elected is the payload of EvElected.
type Elected struct {
	Leader ir.MachineID
}

// Monitor type names.
const (
	SingleLeaderElected     = "SingleLeaderElected"
	EventuallyLeaderElected = "EventuallyLeaderElected"
)

// Announce publishes that self was elected.
func Announce(c *machine.Context) error {
	return c.Announce(ir.NewEvent(EvElected, Elected{Leader: c.ID()}))
}

// RegisterMonitors registers both monitors on rt.
func RegisterMonitors(rt *runtime.Runtime) error {
	if err := rt.RegisterMonitor(SingleLeaderElected, func() machine.Behavior { return &single{} }); err != nil {
		return err
	}
	return rt.RegisterMonitor(EventuallyLeaderElected, func() machine.Behavior { return eventually{} })
}

// single fails if two different nodes claim leadership.
type single struct {
	leader ir.MachineID
}

func (s *single) Define(d *machine.Definition) {
	d.Start("Checking")
	d.State("Checking", machine.On(EvElected, machine.Do(func(c *machine.Context) error {
		got := c.Payload().(Elected).Leader
		if s.leader != 0 {
			return c.Assert(s.leader == got, "%s elected while %s is leader", got, s.leader)
		}
		s.leader = got
		return nil
	})))
}

// eventually is hot until some leader is elected.
type eventually struct{}

func (eventually) Define(d *machine.Definition) {
	d.Start("NoLeader")
	d.State("NoLeader", machine.Hot(), machine.On(EvElected, machine.Goto("LeaderElected")))
	d.State("LeaderElected", machine.Cold(), machine.On(EvElected, machine.Ignore()))
}

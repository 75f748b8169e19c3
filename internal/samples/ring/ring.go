// Package ring is leader election on a unidirectional ring: every node
// sends its unique id clockwise; a node forwards ids larger than its own
// and drops smaller ones, so only the largest id travels all the way round
// and its owner becomes leader.
//
// With Faulty set, nodes forward every id, every id eventually returns to
// its owner, and more than one node can claim leadership.
package ring

import (
	"strconv"
	"strings"

	"github.com/fniksic/PSharp/internal/engine"
	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/machine"
	"github.com/fniksic/PSharp/internal/runtime"
	"github.com/fniksic/PSharp/internal/samples/leader"
)

const Name = "ring"

const (
	EvConfig   ir.EventKind = "ring.config"
	EvNeighbor ir.EventKind = "ring.neighbor"
	EvStart    ir.EventKind = "ring.start"
	EvToken    ir.EventKind = "ring.token"
	EvElected  ir.EventKind = "ring.elected"
)

const (
	RingType = "Ring"
	NodeType = "RingNode"
)

// Config lists node ids in ring order.
type Config struct {
	IDs    []int
	Faulty bool
}

func DefaultConfig() Config {
	return Config{IDs: []int{10, 2, 5, 7, 3}}
}

// ParseIDs parses a comma separated id list such as "10,2,5".
func ParseIDs(s string) ([]int, error) {
	var ids []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, ir.Errorf(ir.ErrCodeConfig, "ring: bad id %q", f)
		}
		ids = append(ids, n)
	}
	return ids, nil
}

func (c Config) Validate() error {
	if len(c.IDs) == 0 {
		return ir.Errorf(ir.ErrCodeConfig, "ring: no node ids")
	}
	seen := make(map[int]bool, len(c.IDs))
	for _, id := range c.IDs {
		if seen[id] {
			return ir.Errorf(ir.ErrCodeConfig, "ring: duplicate id %d", id)
		}
		seen[id] = true
	}
	return nil
}

type nodeInit struct {
	UID    int
	Faulty bool
}

// Program returns the ring program for cfg.
func Program(cfg Config) engine.Program {
	return engine.ProgramFunc(Name, func(rt *runtime.Runtime) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := leader.RegisterMonitors(rt); err != nil {
			return err
		}
		if err := rt.RegisterType(RingType, func() machine.Behavior { return machine.DefineFunc(defineRing) }); err != nil {
			return err
		}
		if err := rt.RegisterType(NodeType, func() machine.Behavior { return &node{} }); err != nil {
			return err
		}
		_, err := rt.CreateMachine(RingType, ir.NewEvent(EvConfig, cfg))
		return err
	})
}

// defineRing wires the nodes together, starts them and halts.
func defineRing(d *machine.Definition) {
	d.Start("Setup")
	d.State("Setup", machine.OnEntry(func(c *machine.Context) error {
		cfg := c.Payload().(Config)
		nodes := make([]ir.MachineID, len(cfg.IDs))
		for i, uid := range cfg.IDs {
			id, err := c.Create(NodeType, ir.NewEvent(EvConfig, nodeInit{UID: uid, Faulty: cfg.Faulty}))
			if err != nil {
				return err
			}
			nodes[i] = id
		}
		for i, id := range nodes {
			next := nodes[(i+1)%len(nodes)]
			if err := c.Send(id, ir.NewEvent(EvNeighbor, next)); err != nil {
				return err
			}
		}
		for _, id := range nodes {
			if err := c.Send(id, ir.NewEvent(EvStart, nil)); err != nil {
				return err
			}
		}
		c.Halt()
		return nil
	}))
}

type node struct {
	uid    int
	faulty bool
	next   ir.MachineID
}

func (n *node) Define(d *machine.Definition) {
	d.Start("Init")
	d.State("Init",
		machine.OnEntry(func(c *machine.Context) error {
			in := c.Payload().(nodeInit)
			n.uid, n.faulty = in.UID, in.Faulty
			return nil
		}),
		machine.On(EvNeighbor, machine.GotoDo("Active", func(c *machine.Context) error {
			n.next = c.Payload().(ir.MachineID)
			return nil
		})),
		machine.On(EvStart, machine.Defer()),
		machine.On(EvToken, machine.Defer()),
	)
	d.State("Active",
		machine.On(EvStart, machine.Do(func(c *machine.Context) error {
			return c.Send(n.next, ir.NewEvent(EvToken, n.uid))
		})),
		machine.On(EvToken, machine.Do(n.token)),
		machine.On(EvElected, machine.Do(func(c *machine.Context) error {
			if err := c.Send(n.next, c.Event()); err != nil {
				return err
			}
			c.Halt()
			return nil
		})),
	)
	d.State("Leader",
		machine.OnEntry(func(c *machine.Context) error {
			if err := leader.Announce(c); err != nil {
				return err
			}
			return c.Send(n.next, ir.NewEvent(EvElected, n.uid))
		}),
		machine.On(EvToken, machine.Ignore()),
		machine.On(EvStart, machine.Ignore()),
		machine.On(EvElected, machine.Do(func(c *machine.Context) error {
			c.Halt()
			return nil
		})),
	)
}

func (n *node) token(c *machine.Context) error {
	uid := c.Payload().(int)
	switch {
	case uid == n.uid:
		c.Goto("Leader")
		return nil
	case uid > n.uid || n.faulty:
		return c.Send(n.next, c.Event())
	}
	return nil
}

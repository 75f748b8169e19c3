package election

import (
	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/machine"
)

// Cluster bootstraps the nodes and shuts them down once a leader is known.
type Cluster struct {
	nodes []ir.MachineID
}

func (cl *Cluster) Define(d *machine.Definition) {
	d.Start("Electing")
	d.State("Electing",
		machine.OnEntry(cl.bootstrap),
		machine.On(EvLeader, machine.Do(cl.shutdown)),
	)
}

func (cl *Cluster) bootstrap(c *machine.Context) error {
	cfg := c.Payload().(Config)
	for i := 0; i < cfg.Size; i++ {
		id, err := c.Create(NodeType, ir.NewEvent(EvConfig, cfg))
		if err != nil {
			return err
		}
		cl.nodes = append(cl.nodes, id)
	}

	peers := Peers{Cluster: c.ID(), Nodes: cl.nodes}
	for _, id := range cl.nodes {
		if err := c.Send(id, ir.NewEvent(EvPeers, peers)); err != nil {
			return err
		}
	}

	remaining := append([]ir.MachineID(nil), cl.nodes...)
	for i := 0; i < cfg.Candidates; i++ {
		k, err := c.RandomInt(len(remaining))
		if err != nil {
			return err
		}
		c.Logger().Debug("candidate chosen", "node", remaining[k].String())
		if err := c.Send(remaining[k], ir.NewEvent(EvStartElection, nil)); err != nil {
			return err
		}
		remaining = append(remaining[:k], remaining[k+1:]...)
	}
	return nil
}

func (cl *Cluster) shutdown(c *machine.Context) error {
	for _, id := range cl.nodes {
		if err := c.Send(id, ir.Halt()); err != nil {
			return err
		}
	}
	c.Halt()
	return nil
}

package election

import (
	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/machine"
	"github.com/fniksic/PSharp/internal/samples/leader"
)

// Node is a voter that may also be asked to stand as candidate.
type Node struct {
	cfg      Config
	cluster  ir.MachineID
	peers    []ir.MachineID
	votedFor ir.MachineID
	granted  int
}

func (n *Node) Define(d *machine.Definition) {
	d.Start("Init")
	d.State("Init",
		machine.OnEntry(func(c *machine.Context) error {
			n.cfg = c.Payload().(Config)
			return nil
		}),
		machine.On(EvPeers, machine.GotoDo("Voting", func(c *machine.Context) error {
			p := c.Payload().(Peers)
			n.cluster, n.peers = p.Cluster, p.Nodes
			return nil
		})),
		machine.On(EvStartElection, machine.Defer()),
		machine.On(EvRequestVote, machine.Defer()),
	)
	d.State("Voting",
		machine.On(EvStartElection, machine.Goto("Candidate")),
		machine.On(EvRequestVote, machine.Do(n.answer)),
	)
	d.State("Candidate",
		machine.OnEntry(n.stand),
		machine.On(EvRequestVote, machine.Do(n.answer)),
		machine.On(EvVote, machine.Do(n.count)),
	)
	d.State("Leader",
		machine.OnEntry(func(c *machine.Context) error {
			if err := leader.Announce(c); err != nil {
				return err
			}
			return c.Send(n.cluster, ir.NewEvent(EvLeader, c.ID()))
		}),
		machine.On(EvRequestVote, machine.Do(n.answer)),
		machine.On(EvVote, machine.Ignore()),
	)
}

func (n *Node) stand(c *machine.Context) error {
	if n.votedFor == 0 {
		n.votedFor = c.ID()
	}
	if n.votedFor == c.ID() {
		n.granted = 1
	}
	for _, peer := range n.peers {
		if peer == c.ID() {
			continue
		}
		if err := c.Send(peer, ir.NewEvent(EvRequestVote, RequestVote{Candidate: c.ID()})); err != nil {
			return err
		}
	}
	n.checkQuorum(c)
	return nil
}

func (n *Node) answer(c *machine.Context) error {
	req := c.Payload().(RequestVote)
	grant := n.cfg.Faulty || n.votedFor == 0 || n.votedFor == req.Candidate
	if grant && n.votedFor == 0 {
		n.votedFor = req.Candidate
	}
	return c.Send(req.Candidate, ir.NewEvent(EvVote, Vote{Voter: c.ID(), Granted: grant}))
}

func (n *Node) count(c *machine.Context) error {
	if c.Payload().(Vote).Granted {
		n.granted++
	}
	n.checkQuorum(c)
	return nil
}

// checkQuorum moves to Leader once a strict majority granted its vote.
func (n *Node) checkQuorum(c *machine.Context) {
	if n.granted > n.cfg.Size/2 {
		c.Goto("Leader")
	}
}

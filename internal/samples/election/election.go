// Package election is a quorum leader election: a simplified form of
// ZooKeeper's fast leader election.
//
// A Cluster creates Size nodes, tells every node its peers and then picks
// Candidates distinct nodes (nondeterministically) to start an election.
// A candidate votes for itself and asks every peer for its vote. A voter
// grants its vote to the first candidate that asks and refuses everybody
// else. A candidate holding a strict majority announces itself leader and
// tells the cluster, which then halts every node.
//
// With Faulty set, voters grant every request, so two candidates can both
// reach a majority and the SingleLeaderElected monitor fails. With three
// or more candidates in a small cluster the votes can split so that nobody
// wins, and the EventuallyLeaderElected monitor fails.
package election

import (
	"github.com/fniksic/PSharp/internal/engine"
	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/machine"
	"github.com/fniksic/PSharp/internal/runtime"
	"github.com/fniksic/PSharp/internal/samples/leader"
)

// Name is the program name used in reports and stored traces.
const Name = "election"

// Event kinds.
const (
	EvConfig        ir.EventKind = "election.config"
	EvPeers         ir.EventKind = "election.peers"
	EvStartElection ir.EventKind = "election.start"
	EvRequestVote   ir.EventKind = "election.request_vote"
	EvVote          ir.EventKind = "election.vote"
	EvLeader        ir.EventKind = "election.leader"
)

// Machine type names.
const (
	ClusterType = "Cluster"
	NodeType    = "Node"
)

// Config is the payload of EvConfig.
type Config struct {
	Size       int
	Candidates int
	Faulty     bool
}

// DefaultConfig elects among two candidates in a cluster of five.
func DefaultConfig() Config {
	return Config{Size: 5, Candidates: 2}
}

// Validate rejects clusters that cannot run an election.
func (c Config) Validate() error {
	if c.Size < 1 {
		return ir.Errorf(ir.ErrCodeConfig, "election: size must be at least 1, got %d", c.Size)
	}
	if c.Candidates < 1 || c.Candidates > c.Size {
		return ir.Errorf(ir.ErrCodeConfig, "election: candidates must be in [1, %d], got %d", c.Size, c.Candidates)
	}
	return nil
}

// Peers is the payload of EvPeers.
type Peers struct {
	Cluster ir.MachineID
	Nodes   []ir.MachineID
}

// RequestVote is the payload of EvRequestVote.
type RequestVote struct {
	Candidate ir.MachineID
}

// Vote is the payload of EvVote.
type Vote struct {
	Voter   ir.MachineID
	Granted bool
}

// Program returns the election program for cfg.
func Program(cfg Config) engine.Program {
	return engine.ProgramFunc(Name, func(rt *runtime.Runtime) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := leader.RegisterMonitors(rt); err != nil {
			return err
		}
		if err := rt.RegisterType(ClusterType, func() machine.Behavior { return &Cluster{} }); err != nil {
			return err
		}
		if err := rt.RegisterType(NodeType, func() machine.Behavior { return &Node{} }); err != nil {
			return err
		}
		_, err := rt.CreateMachine(ClusterType, ir.NewEvent(EvConfig, cfg))
		return err
	})
}

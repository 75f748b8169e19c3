package scheduler

import (
	"fmt"
	"math/rand/v2"

	"github.com/fniksic/PSharp/internal/ir"
)

// Strategy resolves the decision points of a testing scheduler.
//
// A strategy lives across iterations of one test so that systematic
// strategies can remember what they already explored.
type Strategy interface {
	// PrepareIteration is called before every iteration. It returns false
	// when there is nothing left to explore.
	PrepareIteration() bool
	// NextMachine picks one of the enabled machines, which are sorted by id.
	NextMachine(enabled []ir.MachineID) (ir.MachineID, error)
	// NextBool resolves a nondeterministic boolean.
	NextBool() (bool, error)
	// NextInt resolves a nondeterministic integer in [0, n).
	NextInt(n int) (int, error)
	// Description names the strategy and its parameters.
	Description() string
}

// Random picks uniformly at random from a seeded source.
type Random struct {
	seed uint64
	rng  *rand.Rand
}

// NewRandomStrategy creates a random strategy. The same seed explores the
// same sequence of iterations.
func NewRandomStrategy(seed int64) *Random {
	s := uint64(seed)
	return &Random{seed: s, rng: rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))}
}

func (r *Random) PrepareIteration() bool { return true }

func (r *Random) NextMachine(enabled []ir.MachineID) (ir.MachineID, error) {
	return enabled[r.rng.IntN(len(enabled))], nil
}

func (r *Random) NextBool() (bool, error) { return r.rng.IntN(2) == 1, nil }

func (r *Random) NextInt(n int) (int, error) { return r.rng.IntN(n), nil }

func (r *Random) Description() string { return fmt.Sprintf("random(seed=%d)", int64(r.seed)) }

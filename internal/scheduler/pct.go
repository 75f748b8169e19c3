package scheduler

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/fniksic/PSharp/internal/ir"
)

// PCT is a probabilistic priority-based strategy.
//
// Each iteration assigns machines random priorities as they appear and picks
// changePoints step numbers in [1, maxSteps]. At every step the enabled
// machine with the highest priority runs; at a change point that machine is
// demoted to the lowest priority.
type PCT struct {
	seed         int64
	rng          *rand.Rand
	changePoints int
	maxSteps     int

	priorities []ir.MachineID // highest first
	changeAt   map[int]bool
	step       int
}

// NewPCTStrategy creates a PCT strategy.
func NewPCTStrategy(seed int64, changePoints, maxSteps int) *PCT {
	s := uint64(seed)
	if maxSteps <= 0 {
		maxSteps = 1000
	}
	return &PCT{
		seed:         seed,
		rng:          rand.New(rand.NewPCG(s, s^0x2545f4914f6cdd1d)),
		changePoints: changePoints,
		maxSteps:     maxSteps,
	}
}

func (p *PCT) PrepareIteration() bool {
	p.priorities = p.priorities[:0]
	p.step = 0
	p.changeAt = make(map[int]bool, p.changePoints)
	for len(p.changeAt) < p.changePoints && len(p.changeAt) < p.maxSteps {
		p.changeAt[1+p.rng.IntN(p.maxSteps)] = true
	}
	return true
}

func (p *PCT) NextMachine(enabled []ir.MachineID) (ir.MachineID, error) {
	for _, id := range enabled {
		if !slices.Contains(p.priorities, id) {
			p.priorities = slices.Insert(p.priorities, p.rng.IntN(len(p.priorities)+1), id)
		}
	}
	p.step++
	if p.changeAt[p.step] {
		if i := p.highest(enabled); i >= 0 {
			id := p.priorities[i]
			p.priorities = append(slices.Delete(p.priorities, i, i+1), id)
		}
	}
	i := p.highest(enabled)
	if i < 0 {
		return 0, fmt.Errorf("pct: no enabled machine among %v", enabled)
	}
	return p.priorities[i], nil
}

func (p *PCT) highest(enabled []ir.MachineID) int {
	for i, id := range p.priorities {
		if _, found := slices.BinarySearch(enabled, id); found {
			return i
		}
	}
	return -1
}

func (p *PCT) NextBool() (bool, error) { return p.rng.IntN(2) == 1, nil }

func (p *PCT) NextInt(n int) (int, error) { return p.rng.IntN(n), nil }

func (p *PCT) Description() string {
	return fmt.Sprintf("pct(seed=%d, depth=%d)", p.seed, p.changePoints)
}

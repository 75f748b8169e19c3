package scheduler

import (
	"fmt"

	"github.com/fniksic/PSharp/internal/ir"
)

type choicePoint struct {
	options int
	chosen  int
}

// DFS explores the decision tree depth first, one leaf per iteration.
//
// Each iteration replays the recorded prefix of choice points and extends it
// with first options. PrepareIteration backtracks to the deepest choice point
// that still has an unexplored option. Choice points with a single option
// are not recorded. Beyond depthBound recorded choice points the first option
// is always taken, so a bounded search terminates.
type DFS struct {
	depthBound int
	stack      []choicePoint
	pos        int
	started    bool
	exhausted  bool
	leaves     int
}

// NewDFSStrategy creates a systematic depth-first strategy. depthBound <= 0
// means unbounded.
func NewDFSStrategy(depthBound int) *DFS {
	return &DFS{depthBound: depthBound}
}

func (d *DFS) PrepareIteration() bool {
	d.pos = 0
	if !d.started {
		d.started = true
		d.leaves++
		return true
	}
	for len(d.stack) > 0 {
		top := &d.stack[len(d.stack)-1]
		if top.chosen+1 < top.options {
			top.chosen++
			d.leaves++
			return true
		}
		d.stack = d.stack[:len(d.stack)-1]
	}
	d.exhausted = true
	return false
}

// Exhausted reports whether every path up to the depth bound was explored.
func (d *DFS) Exhausted() bool { return d.exhausted }

// Explored returns the number of iterations started so far.
func (d *DFS) Explored() int { return d.leaves }

func (d *DFS) choose(n int) (int, error) {
	if n <= 1 {
		return 0, nil
	}
	if d.pos < len(d.stack) {
		cp := d.stack[d.pos]
		if cp.options != n {
			return 0, ir.Errorf(ir.ErrCodeReplayDiverged,
				"choice point %d had %d options, now %d: program is not deterministic under a fixed schedule",
				d.pos, cp.options, n)
		}
		d.pos++
		return cp.chosen, nil
	}
	if d.depthBound > 0 && len(d.stack) >= d.depthBound {
		return 0, nil
	}
	d.stack = append(d.stack, choicePoint{options: n})
	d.pos++
	return 0, nil
}

func (d *DFS) NextMachine(enabled []ir.MachineID) (ir.MachineID, error) {
	i, err := d.choose(len(enabled))
	if err != nil {
		return 0, err
	}
	return enabled[i], nil
}

func (d *DFS) NextBool() (bool, error) {
	i, err := d.choose(2)
	return i == 1, err
}

func (d *DFS) NextInt(n int) (int, error) { return d.choose(n) }

func (d *DFS) Description() string {
	if d.depthBound > 0 {
		return fmt.Sprintf("dfs(depth=%d)", d.depthBound)
	}
	return "dfs"
}

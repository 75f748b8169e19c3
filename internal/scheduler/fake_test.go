package scheduler

import (
	"sync"

	"github.com/fniksic/PSharp/internal/ir"
)

// fakeUnit has a budget of steps; each step may run a callback.
type fakeUnit struct {
	id     ir.MachineID
	mu     sync.Mutex
	budget int
	steps  int
	onStep func(u *fakeUnit) error
}

func newFakeUnit(id ir.MachineID, budget int) *fakeUnit {
	return &fakeUnit{id: id, budget: budget}
}

func (u *fakeUnit) ID() ir.MachineID { return u.id }

func (u *fakeUnit) Enabled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.budget > 0
}

func (u *fakeUnit) Step() (bool, error) {
	u.mu.Lock()
	if u.budget == 0 {
		u.mu.Unlock()
		return false, nil
	}
	u.budget--
	u.steps++
	u.mu.Unlock()
	if u.onStep != nil {
		return true, u.onStep(u)
	}
	return true, nil
}

func (u *fakeUnit) give(n int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.budget += n
}

func (u *fakeUnit) stepCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.steps
}

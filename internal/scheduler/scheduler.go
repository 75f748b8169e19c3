package scheduler

import (
	"context"

	"github.com/fniksic/PSharp/internal/ir"
)

// Unit is a schedulable entity. *machine.Machine satisfies it.
type Unit interface {
	ID() ir.MachineID
	// Enabled reports whether Step would make progress.
	Enabled() bool
	// Step advances the unit by one event and reports whether it did work.
	Step() (bool, error)
}

// Scheduler is the contract shared by the production and testing schedulers.
type Scheduler interface {
	// Register adds a machine. Its start step is enabled immediately.
	Register(u Unit)
	// RegisterTask adds the shell machine of a wrapped foreign task.
	RegisterTask(u Unit)
	// Enable signals that u may have become runnable.
	Enable(id ir.MachineID)
	// NextBool resolves a nondeterministic boolean requested by from.
	NextBool(from ir.MachineID) (bool, error)
	// NextInt resolves a nondeterministic integer in [0, n).
	NextInt(from ir.MachineID, n int) (int, error)
	// Run drives units until quiescence, a fatal error or cancellation.
	Run(ctx context.Context) error
}

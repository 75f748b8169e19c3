package runtime

import (
	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/machine"
)

// KindPoll is the event a task shell sends itself to be polled again.
const KindPoll ir.EventKind = "psharp.poll"

// TaskTypeName is the machine type name of task shells.
const TaskTypeName = "psharp.Task"

// Task is a unit of foreign work. Poll is called once per scheduling step
// until it reports done; it should do a bounded amount of work per call.
type Task interface {
	Poll(ctx *machine.Context) (done bool, err error)
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx *machine.Context) (bool, error)

// Poll implements Task.
func (f TaskFunc) Poll(ctx *machine.Context) (bool, error) { return f(ctx) }

type shell struct {
	task Task
}

func (s *shell) Define(d *machine.Definition) {
	d.Start("Running")
	d.State("Running",
		machine.OnEntry(s.poll),
		machine.On(KindPoll, machine.Do(s.poll)),
	)
}

func (s *shell) poll(c *machine.Context) error {
	done, err := s.task.Poll(c)
	if err != nil {
		return err
	}
	if done {
		c.Halt()
		return nil
	}
	return c.Send(c.ID(), ir.NewEvent(KindPoll, nil))
}

// WrapTask runs task inside a shell machine so it is scheduled like any
// other machine. The shell halts once the task is done.
func (r *Runtime) WrapTask(task Task) (ir.MachineID, error) {
	if task == nil {
		return 0, ir.Errorf(ir.ErrCodeConfig, "WrapTask: nil task")
	}
	t, err := machine.NewType(TaskTypeName, func() machine.Behavior { return &shell{task: task} })
	if err != nil {
		return 0, err
	}
	return r.create(TaskTypeName, ir.Event{}, t, true)
}

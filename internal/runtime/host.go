package runtime

import (
	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/machine"
)

// host is the machine.Host a Runtime hands to its machines.
type host struct {
	r *Runtime
}

var _ machine.Host = host{}

func (h host) Send(from, target ir.MachineID, ev ir.Event) error {
	return h.r.route(from, target, ev)
}

func (h host) Create(from ir.MachineID, typeName string, ev ir.Event) (ir.MachineID, error) {
	return h.r.CreateMachine(typeName, ev)
}

func (h host) Announce(from ir.MachineID, ev ir.Event) error {
	return h.r.observe(ev)
}

func (h host) RandomBool(from ir.MachineID) (bool, error) {
	return h.r.sched.NextBool(from)
}

func (h host) RandomInt(from ir.MachineID, n int) (int, error) {
	return h.r.sched.NextInt(from, n)
}

// Deliver traces the delivery and mirrors ev to monitors before m handles it.
func (h host) Deliver(m *machine.Machine, ev ir.Event) error {
	r := h.r
	r.monMu.Lock()
	defer r.monMu.Unlock()
	r.seq++
	if r.tracer != nil {
		r.tracer(ir.TraceStep{
			Seq:     r.seq,
			Machine: m.ID(),
			Type:    m.Type().Name(),
			State:   m.CurrentState(),
			Event:   ev.Kind,
		})
	}
	return r.observeLocked(ev)
}

// Halted mirrors the halt notification to monitors.
func (h host) Halted(m *machine.Machine) error {
	h.r.logger.Debug("machine halted", "machine", m.ID().String(), "type", m.Type().Name())
	return h.r.observe(ir.NewEvent(ir.KindHalted, ir.Lifecycle{Machine: m.ID(), Type: m.Type().Name()}))
}

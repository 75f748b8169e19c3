package runtime

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/machine"
	"github.com/fniksic/PSharp/internal/metrics"
	"github.com/fniksic/PSharp/internal/monitor"
	"github.com/fniksic/PSharp/internal/scheduler"
)

// Tracer receives one step per delivered event, in delivery order.
type Tracer func(step ir.TraceStep)

// Runtime creates machines and routes events.
type Runtime struct {
	sched       scheduler.Scheduler
	logger      *slog.Logger
	tracer      Tracer
	monitorOpts []monitor.Option
	metrics     bool

	mu       sync.RWMutex
	types    map[string]*machine.Type
	machines map[ir.MachineID]*machine.Machine
	created  bool
	nextID   atomic.Uint64

	// monMu serializes monitor observation and tracing across workers.
	monMu    sync.Mutex
	monitors []*monitor.Monitor
	seq      int64
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger handed to machines and monitors.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithTracer sets the step tracer.
func WithTracer(t Tracer) Option {
	return func(r *Runtime) {
		r.tracer = t
	}
}

// WithMonitorOptions passes options to every registered monitor.
func WithMonitorOptions(opts ...monitor.Option) Option {
	return func(r *Runtime) {
		r.monitorOpts = append(r.monitorOpts, opts...)
	}
}

// WithMetrics records creations and sends in the Prometheus collectors.
func WithMetrics() Option {
	return func(r *Runtime) {
		r.metrics = true
	}
}

// New creates a runtime bound to sched.
func New(sched scheduler.Scheduler, opts ...Option) *Runtime {
	r := &Runtime{
		sched:    sched,
		logger:   slog.Default(),
		types:    make(map[string]*machine.Type),
		machines: make(map[ir.MachineID]*machine.Machine),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterType validates and registers a machine type.
func (r *Runtime) RegisterType(name string, factory machine.Factory) error {
	t, err := machine.NewType(name, factory)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[name]; exists {
		return ir.Errorf(ir.ErrCodeConfig, "machine type %q registered twice", name)
	}
	r.types[name] = t
	return nil
}

// RegisterMonitor creates a monitor. Monitors must be registered before the
// first machine is created so that they observe the whole run.
func (r *Runtime) RegisterMonitor(name string, factory machine.Factory) error {
	r.mu.RLock()
	created := r.created
	r.mu.RUnlock()
	if created {
		return ir.Errorf(ir.ErrCodeConfig, "monitor %q registered after machines were created", name)
	}

	t, err := machine.NewType(name, factory)
	if err != nil {
		return err
	}
	opts := append([]monitor.Option{monitor.WithLogger(r.logger)}, r.monitorOpts...)
	mo, err := monitor.New(t, opts...)
	if err != nil {
		return err
	}

	r.monMu.Lock()
	defer r.monMu.Unlock()
	for _, existing := range r.monitors {
		if existing.Name() == name {
			return ir.Errorf(ir.ErrCodeConfig, "monitor %q registered twice", name)
		}
	}
	r.monitors = append(r.monitors, mo)
	return nil
}

// Monitors returns the registered monitors in registration order.
func (r *Runtime) Monitors() []*monitor.Monitor {
	r.monMu.Lock()
	defer r.monMu.Unlock()
	return slices.Clone(r.monitors)
}

// CreateMachine creates a machine of a registered type. Its start state's
// entry action runs, with ev as payload, when the scheduler first steps it.
func (r *Runtime) CreateMachine(typeName string, ev ir.Event) (ir.MachineID, error) {
	r.mu.RLock()
	t, ok := r.types[typeName]
	r.mu.RUnlock()
	if !ok {
		return 0, ir.Errorf(ir.ErrCodeConfig, "unknown machine type %q", typeName)
	}
	return r.create(typeName, ev, t, false)
}

// Machine returns a created machine.
func (r *Runtime) Machine(id ir.MachineID) (*machine.Machine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.machines[id]
	return m, ok
}

// Machines returns the ids of every created machine, sorted.
func (r *Runtime) Machines() []ir.MachineID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ir.MachineID, 0, len(r.machines))
	for id := range r.machines {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Send routes ev to target from outside any machine.
func (r *Runtime) Send(target ir.MachineID, ev ir.Event) error {
	return r.route(0, target, ev)
}

// Announce publishes ev to monitors only.
func (r *Runtime) Announce(ev ir.Event) error {
	return r.observe(ev)
}

func (r *Runtime) create(typeName string, ev ir.Event, t *machine.Type, task bool) (ir.MachineID, error) {
	id := ir.MachineID(r.nextID.Add(1))
	m, err := machine.New(id, t, host{r: r}, ev, machine.WithLogger(r.logger))
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.machines[id] = m
	r.created = true
	r.mu.Unlock()

	r.logger.Debug("machine created", "machine", id.String(), "type", typeName)
	if r.metrics {
		metrics.RecordCreate(typeName)
	}
	if err := r.observe(ir.NewEvent(ir.KindCreated, ir.Lifecycle{Machine: id, Type: typeName})); err != nil {
		return id, err
	}

	if task {
		r.sched.RegisterTask(m)
	} else {
		r.sched.Register(m)
	}
	return id, nil
}

func (r *Runtime) route(from, target ir.MachineID, ev ir.Event) error {
	m, ok := r.Machine(target)
	if !ok {
		return &ir.RuntimeError{
			Code:    ir.ErrCodeConfig,
			Message: "send to nonexistent machine " + target.String(),
			Event:   ev.Kind,
		}
	}
	delivered := m.Enqueue(ev)
	if r.metrics {
		metrics.RecordSend(m.Type().Name(), delivered)
	}
	if !delivered {
		r.logger.Debug("dropped event for halted machine", "from", from.String(), "target", target.String(), "event", ev.Kind)
		return nil
	}
	r.sched.Enable(target)
	return nil
}

// observe mirrors ev to every monitor.
func (r *Runtime) observe(ev ir.Event) error {
	r.monMu.Lock()
	defer r.monMu.Unlock()
	return r.observeLocked(ev)
}

func (r *Runtime) observeLocked(ev ir.Event) error {
	for _, mo := range r.monitors {
		if err := mo.Observe(ev); err != nil {
			return err
		}
	}
	return nil
}

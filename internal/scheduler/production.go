package scheduler

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/fniksic/PSharp/internal/ir"
	"github.com/fniksic/PSharp/internal/metrics"
)

// stepsPerDispatch bounds how long one worker keeps a machine before
// requeueing it behind others.
const stepsPerDispatch = 64

const (
	queueMachines = "machines"
	queueTasks    = "tasks"
)

// Production runs units on a pool of worker goroutines.
type Production struct {
	workers int
	logger  *slog.Logger

	mu        sync.Mutex
	units     map[ir.MachineID]Unit
	tasks     map[ir.MachineID]bool
	scheduled map[ir.MachineID]bool // queued or running
	pending   int
	err       error

	machineQ *workQueue
	taskQ    *workQueue
	done     chan struct{}
	doneOnce sync.Once

	rngMu sync.Mutex
	rng   *rand.Rand
}

// ProductionOption configures a Production scheduler.
type ProductionOption func(*Production)

// WithWorkers sets the pool size (default: GOMAXPROCS).
func WithWorkers(n int) ProductionOption {
	return func(p *Production) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithProductionLogger sets the logger.
func WithProductionLogger(logger *slog.Logger) ProductionOption {
	return func(p *Production) {
		p.logger = logger
	}
}

// WithSeed seeds the source of nondeterministic choices.
func WithSeed(seed int64) ProductionOption {
	return func(p *Production) {
		s := uint64(seed)
		p.rng = rand.New(rand.NewPCG(s, s))
	}
}

// NewProduction creates a production scheduler.
func NewProduction(opts ...ProductionOption) *Production {
	p := &Production{
		workers:   runtime.GOMAXPROCS(0),
		logger:    slog.Default(),
		units:     make(map[ir.MachineID]Unit),
		tasks:     make(map[ir.MachineID]bool),
		scheduled: make(map[ir.MachineID]bool),
		machineQ:  newWorkQueue(queueMachines),
		taskQ:     newWorkQueue(queueTasks),
		done:      make(chan struct{}),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register adds a machine and queues its start step.
func (p *Production) Register(u Unit) {
	p.mu.Lock()
	p.units[u.ID()] = u
	p.mu.Unlock()
	p.Enable(u.ID())
}

// RegisterTask adds a task shell; it is dispatched from the task queue.
func (p *Production) RegisterTask(u Unit) {
	p.mu.Lock()
	p.units[u.ID()] = u
	p.tasks[u.ID()] = true
	p.mu.Unlock()
	p.Enable(u.ID())
}

// Enable queues the unit unless it is already queued or running. A running
// unit is re-checked by its worker when the dispatch ends.
func (p *Production) Enable(id ir.MachineID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.units[id]
	if !ok || p.scheduled[id] || p.err != nil {
		return
	}
	p.scheduled[id] = true
	p.pending++
	p.queueFor(id).Enqueue(u)
}

// NextBool draws from the random source.
func (p *Production) NextBool(ir.MachineID) (bool, error) {
	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	return p.rng.IntN(2) == 1, nil
}

// NextInt draws from the random source.
func (p *Production) NextInt(_ ir.MachineID, n int) (int, error) {
	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	return p.rng.IntN(n), nil
}

// Run starts the workers and blocks until no unit is queued or running, a
// unit returns an error, or ctx is done.
func (p *Production) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.pending == 0 {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	p.logger.Info("production scheduler starting", "workers", p.workers)
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
		p.finish()
	case <-p.done:
	}
	wg.Wait()
	p.machineQ.Close()
	p.taskQ.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	return err
}

func (p *Production) worker(ctx context.Context) {
	for {
		for {
			u, queue, ok := p.dequeue()
			if !ok {
				break
			}
			p.dispatch(u, queue)
			select {
			case <-p.done:
				return
			default:
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-p.machineQ.Wait():
		case <-p.taskQ.Wait():
		}
	}
}

// dequeue prefers machines; tasks are taken when no machine is waiting.
func (p *Production) dequeue() (Unit, string, bool) {
	if u, ok := p.machineQ.TryDequeue(); ok {
		metrics.SetQueueDepth(queueMachines, p.machineQ.Len())
		return u, queueMachines, true
	}
	if u, ok := p.taskQ.TryDequeue(); ok {
		metrics.SetQueueDepth(queueTasks, p.taskQ.Len())
		return u, queueTasks, true
	}
	return nil, "", false
}

func (p *Production) dispatch(u Unit, queue string) {
	start := time.Now()
	var stepErr error
	for i := 0; i < stepsPerDispatch; i++ {
		progressed, err := u.Step()
		if err != nil {
			stepErr = err
			break
		}
		if !progressed {
			break
		}
		metrics.RecordStep("production")
	}
	metrics.RecordDispatch(queue, time.Since(start))

	p.mu.Lock()
	defer p.mu.Unlock()
	if stepErr != nil {
		if p.err == nil {
			p.err = stepErr
			p.logger.Error("unit failed", "machine", u.ID().String(), "error", stepErr)
		}
		p.finishLocked()
		return
	}
	if p.err == nil && u.Enabled() {
		p.queueFor(u.ID()).Enqueue(u)
		return
	}
	p.scheduled[u.ID()] = false
	p.pending--
	if p.pending == 0 {
		p.finishLocked()
	}
}

func (p *Production) queueFor(id ir.MachineID) *workQueue {
	if p.tasks[id] {
		return p.taskQ
	}
	return p.machineQ
}

func (p *Production) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

func (p *Production) finishLocked() {
	p.doneOnce.Do(func() { close(p.done) })
}

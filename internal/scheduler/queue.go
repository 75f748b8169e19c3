package scheduler

import "sync"

// workQueue is a thread-safe FIFO of units waiting for a worker.
//
// The queue uses a channel for signaling so workers can wait on it together
// with context cancellation.
type workQueue struct {
	name   string
	mu     sync.Mutex
	units  []Unit
	closed bool
	signal chan struct{} // buffered, size 1
}

func newWorkQueue(name string) *workQueue {
	return &workQueue{
		name:   name,
		units:  make([]Unit, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds u to the back of the queue. Returns false if closed.
func (q *workQueue) Enqueue(u Unit) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.units = append(q.units, u)
	q.notify()
	return true
}

// TryDequeue removes the front unit without blocking.
func (q *workQueue) TryDequeue() (Unit, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.units) == 0 {
		return nil, false
	}
	u := q.units[0]
	q.units[0] = nil
	if len(q.units) == 1 {
		q.units = q.units[:0]
	} else {
		q.units = q.units[1:]
		// Wake another worker for the rest.
		q.notify()
	}
	return u, true
}

// Wait returns a channel that signals when units may be available.
func (q *workQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.units)
}

// Close stops further enqueues and wakes every waiter.
func (q *workQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// notify must be called with q.mu held.
func (q *workQueue) notify() {
	if q.closed {
		return
	}
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

package dispatch

import (
	"sync"

	"github.com/eapache/queue"
)

// Lane runs its tasks one at a time in submission order. At most one pool
// worker serves a lane at any moment.
type Lane struct {
	pool *Pool

	mu      sync.Mutex
	pending *queue.Queue
	running bool
}

// Submit queues task behind every task previously submitted to this lane.
// Returns false once the pool is closed.
func (l *Lane) Submit(task func()) bool {
	if task == nil {
		return false
	}

	l.mu.Lock()
	l.pending.Add(task)
	if l.running {
		l.mu.Unlock()
		return !l.pool.isClosed()
	}
	l.running = true
	l.mu.Unlock()

	if !l.pool.Submit(l.drain) {
		l.mu.Lock()
		l.running = false
		l.pending = queue.New()
		l.mu.Unlock()
		return false
	}
	return true
}

// Len returns the number of tasks waiting in the lane.
func (l *Lane) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending.Length()
}

// drain runs queued tasks until the lane is empty or the pool closes.
func (l *Lane) drain() {
	for {
		l.mu.Lock()
		if l.pending.Length() == 0 || l.pool.isClosed() {
			l.running = false
			l.pending = queue.New()
			l.mu.Unlock()
			return
		}
		task := l.pending.Remove().(func())
		l.mu.Unlock()

		l.pool.run(task)
	}
}

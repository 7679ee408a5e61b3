package dispatch

import (
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/eapache/queue"
)

// Pool is a fixed set of worker goroutines draining an unbounded FIFO of
// tasks.
type Pool struct {
	logger *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending *queue.Queue
	closed  bool

	wg sync.WaitGroup
}

// NewPool starts workers goroutines. workers < 1 is treated as 1.
func NewPool(workers int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}

	p := &Pool{
		logger:  logger.With("component", "dispatch"),
		pending: queue.New(),
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit queues task. Returns false once the pool is closed.
func (p *Pool) Submit(task func()) bool {
	if task == nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	p.pending.Add(task)
	p.cond.Signal()
	return true
}

// Pending returns the number of queued tasks.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.Length()
}

// Close stops accepting tasks, drops those still queued and waits for the
// workers to finish what they are running. No task starts after Close
// returns.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	dropped := p.pending.Length()
	p.pending = queue.New()
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()

	if dropped > 0 {
		p.logger.Debug("dropped queued callbacks", "count", dropped)
	}
}

// NewLane returns an ordered lane backed by this pool.
func (p *Pool) NewLane() *Lane {
	return &Lane{
		pool:    p,
		pending: queue.New(),
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for p.pending.Length() == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.closed {
			p.mu.Unlock()
			return
		}
		task := p.pending.Remove().(func())
		p.mu.Unlock()

		p.run(task)
	}
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// run executes task, logging and swallowing a panic.
func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("callback panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}

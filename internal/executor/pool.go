package executor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Errors
var (
	ErrStopped        = errors.New("execution context stopped")
	ErrInvalidSize    = errors.New("pool size must be >= 1")
	ErrAlreadyStarted = errors.New("pool already started")
)

// Pool is a fixed set of execution contexts handed out round-robin.
type Pool struct {
	name   string
	logger *slog.Logger
	pin    bool

	contexts atomic.Pointer[[]*Context]
	next     atomic.Uint64

	mu      sync.Mutex
	stopped bool
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPinnedThreads locks every loop goroutine to its own OS thread and, where
// supported, pins that thread to a CPU.
func WithPinnedThreads(pin bool) PoolOption {
	return func(p *Pool) {
		p.pin = pin
	}
}

// NewPool creates an empty pool. Call Start to create its contexts.
func NewPool(name string, opts ...PoolOption) *Pool {
	p := &Pool{
		name:   name,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("pool", name)
	return p
}

// Name returns the pool's name.
func (p *Pool) Name() string {
	return p.name
}

// Start creates n contexts, each with its loop goroutine running.
func (p *Pool) Start(n int) error {
	if n < 1 {
		return fmt.Errorf("%s: %w", p.name, ErrInvalidSize)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.contexts.Load() != nil || p.stopped {
		return fmt.Errorf("%s: %w", p.name, ErrAlreadyStarted)
	}

	contexts := make([]*Context, n)
	for i := range contexts {
		c := newContext(i, p.pin, p.logger.With("ctx", i))
		c.start()
		contexts[i] = c
	}
	p.contexts.Store(&contexts)

	p.logger.Debug("execution contexts started", "count", n, "pinned", p.pin)
	return nil
}

// Next returns the next context in round-robin order, or nil if the pool was
// never started. Safe for concurrent use.
func (p *Pool) Next() *Context {
	ptr := p.contexts.Load()
	if ptr == nil {
		return nil
	}
	contexts := *ptr

	i := p.next.Add(1) - 1
	return contexts[i%uint64(len(contexts))]
}

// Len returns the number of contexts.
func (p *Pool) Len() int {
	ptr := p.contexts.Load()
	if ptr == nil {
		return 0
	}
	return len(*ptr)
}

// Pending returns the number of sessions in flight across all contexts.
func (p *Pool) Pending() int {
	ptr := p.contexts.Load()
	if ptr == nil {
		return 0
	}

	total := 0
	for _, c := range *ptr {
		total += c.Pending()
	}
	return total
}

// Stop tears every context down: release its guard, stop it, then join its
// goroutines. Blocks until all of them have exited. Safe to call twice.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	p.stopped = true

	ptr := p.contexts.Load()
	if ptr == nil {
		return
	}

	for _, c := range *ptr {
		c.ReleaseGuard()
		c.Stop()
		c.Join()
	}

	p.logger.Debug("execution contexts stopped", "count", len(*ptr))
}

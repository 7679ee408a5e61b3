package executor

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"
)

// Operation is the body of a session. ctx is cancelled when the owning
// Context stops; the operation must return promptly after that.
type Operation func(ctx context.Context)

// Context is a single execution context: one loop goroutine that runs posted
// completion tasks in FIFO order, plus the sessions it owns.
//
// While the work guard is held the loop stays alive even with nothing to do.
// After ReleaseGuard the loop exits once its queue is empty and no session is
// in flight. Stop ends the loop without running queued tasks.
type Context struct {
	id     int
	logger *slog.Logger
	pin    bool

	tasks *taskQueue[func()]

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[uuid.UUID]string // session id → name
	guarded  bool
	closed   bool // task queue closed, no new sessions
	stopped  bool

	ops      sync.WaitGroup
	loopDone chan struct{}
}

func newContext(id int, pin bool, logger *slog.Logger) *Context {
	ctx, cancel := context.WithCancel(context.Background())
	return &Context{
		id:       id,
		logger:   logger,
		pin:      pin,
		tasks:    newTaskQueue[func()](64),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[uuid.UUID]string),
		guarded:  true,
		loopDone: make(chan struct{}),
	}
}

// ID returns the context's index within its pool.
func (c *Context) ID() int {
	return c.id
}

// Post queues task to run on the loop goroutine. Returns false once the
// context no longer accepts work.
func (c *Context) Post(task func()) bool {
	return c.tasks.Push(task)
}

// Run registers a session under a fresh id and runs op on a goroutine owned
// by this context. The registration is released exactly once, when op
// returns.
func (c *Context) Run(name string, op Operation) (uuid.UUID, error) {
	c.mu.Lock()
	if c.stopped || c.closed {
		c.mu.Unlock()
		return uuid.Nil, ErrStopped
	}
	id := uuid.New()
	c.sessions[id] = name
	c.ops.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.release(id)
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("session panicked", "session", name, "id", id, "panic", r)
			}
		}()
		op(c.ctx)
	}()

	return id, nil
}

// Pending returns the number of sessions in flight.
func (c *Context) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// ReleaseGuard lets the loop exit once it runs out of work.
func (c *Context) ReleaseGuard() {
	c.mu.Lock()
	c.guarded = false
	c.closeIfIdleLocked()
	c.mu.Unlock()
}

// Stop cancels every session and makes the loop exit without running queued
// tasks.
func (c *Context) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	if n := c.tasks.Discard(); n > 0 {
		c.logger.Debug("discarded queued tasks", "count", n)
	}
	c.tasks.Close()
}

// Join waits for the loop goroutine and every session goroutine to exit.
func (c *Context) Join() {
	<-c.loopDone
	c.ops.Wait()
}

func (c *Context) start() {
	go c.loop()
}

func (c *Context) loop() {
	defer close(c.loopDone)

	if c.pin {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := pinCurrentThread(c.id); err != nil {
			c.logger.Warn("failed to pin execution context", "error", err)
		}
	}

	for {
		task, ok := c.tasks.Pop()
		if !ok {
			return
		}

		c.mu.Lock()
		stopped := c.stopped
		c.mu.Unlock()
		if stopped {
			return
		}

		c.execute(task)
	}
}

func (c *Context) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("task panicked", "panic", r)
		}
	}()
	task()
}

// release removes a finished session from the arena.
func (c *Context) release(id uuid.UUID) {
	c.mu.Lock()
	delete(c.sessions, id)
	c.closeIfIdleLocked()
	c.mu.Unlock()

	c.ops.Done()
}

// closeIfIdleLocked closes the queue when nothing can post to it anymore.
// Must be called with mu held.
func (c *Context) closeIfIdleLocked() {
	if c.guarded || c.closed || len(c.sessions) > 0 {
		return
	}
	c.closed = true
	c.tasks.Close()
}

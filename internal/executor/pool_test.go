package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_StartInvalidSize(t *testing.T) {
	p := NewPool("rest")

	if err := p.Start(0); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("Start(0) error = %v, want %v", err, ErrInvalidSize)
	}
	if p.Next() != nil {
		t.Error("Next() on unstarted pool should return nil")
	}
}

func TestPool_StartTwice(t *testing.T) {
	p := NewPool("rest")
	if err := p.Start(2); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	if err := p.Start(2); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want %v", err, ErrAlreadyStarted)
	}
}

func TestPool_RoundRobin(t *testing.T) {
	const n = 4

	p := NewPool("ws")
	if err := p.Start(n); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	if p.Len() != n {
		t.Fatalf("Len() = %d, want %d", p.Len(), n)
	}

	seen := make(map[*Context]bool)
	first := p.Next()
	seen[first] = true
	for i := 1; i < n; i++ {
		c := p.Next()
		if seen[c] {
			t.Fatalf("Next() #%d repeated context %d before wrapping", i, c.ID())
		}
		seen[c] = true
	}

	if got := p.Next(); got != first {
		t.Errorf("Next() #%d = context %d, want first context %d", n, got.ID(), first.ID())
	}
}

func TestPool_RoundRobinConcurrent(t *testing.T) {
	const n = 3
	const callers = 8
	const perCaller = 300

	p := NewPool("rest")
	if err := p.Start(n); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	var mu sync.Mutex
	counts := make(map[int]int)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make(map[int]int)
			for j := 0; j < perCaller; j++ {
				local[p.Next().ID()]++
			}
			mu.Lock()
			for id, c := range local {
				counts[id] += c
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	want := callers * perCaller / n
	for id := 0; id < n; id++ {
		if counts[id] != want {
			t.Errorf("context %d selected %d times, want %d", id, counts[id], want)
		}
	}
}

func TestContext_PostRunsInOrder(t *testing.T) {
	p := NewPool("rest")
	if err := p.Start(1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	c := p.Next()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})

	for i := 0; i < 100; i++ {
		i := i
		if !c.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 99 {
				close(done)
			}
		}) {
			t.Fatalf("Post #%d rejected", i)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for tasks")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestContext_IdleLoopStaysAlive(t *testing.T) {
	p := NewPool("rest")
	if err := p.Start(1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	c := p.Next()
	time.Sleep(20 * time.Millisecond)

	ran := make(chan struct{})
	if !c.Post(func() { close(ran) }) {
		t.Fatal("Post rejected on idle guarded context")
	}

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("idle context did not run posted task")
	}
}

func TestContext_RunReleasesSession(t *testing.T) {
	p := NewPool("rest")
	if err := p.Start(1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	c := p.Next()
	proceed := make(chan struct{})
	finished := make(chan struct{})

	id, err := c.Run("test", func(ctx context.Context) {
		<-proceed
		c.Post(func() { close(finished) })
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if id.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("Run returned nil session id")
	}
	if c.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", c.Pending())
	}

	close(proceed)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("completion task did not run")
	}

	deadline := time.Now().Add(time.Second)
	for c.Pending() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d after completion, want 0", c.Pending())
	}
}

func TestContext_RunPanicIsContained(t *testing.T) {
	p := NewPool("rest")
	if err := p.Start(1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	c := p.Next()
	if _, err := c.Run("boom", func(ctx context.Context) { panic("boom") }); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for c.Pending() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after panicking session", c.Pending())
	}
}

func TestPool_StopCancelsSessionsAndJoins(t *testing.T) {
	p := NewPool("ws")
	if err := p.Start(2); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var cancelled atomic.Int32
	for i := 0; i < 4; i++ {
		c := p.Next()
		if _, err := c.Run("stream", func(ctx context.Context) {
			<-ctx.Done()
			cancelled.Add(1)
		}); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	}

	if p.Pending() != 4 {
		t.Errorf("Pending() = %d, want 4", p.Pending())
	}

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	if got := cancelled.Load(); got != 4 {
		t.Errorf("cancelled sessions = %d, want 4", got)
	}
	if p.Pending() != 0 {
		t.Errorf("Pending() = %d after Stop, want 0", p.Pending())
	}

	c := p.Next()
	if c.Post(func() {}) {
		t.Error("Post accepted after Stop")
	}
	if _, err := c.Run("late", func(ctx context.Context) {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Run() after Stop error = %v, want %v", err, ErrStopped)
	}

	// Idempotent.
	p.Stop()
}

func TestContext_StopSkipsQueuedTasks(t *testing.T) {
	p := NewPool("rest")
	if err := p.Start(1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	c := p.Next()
	block := make(chan struct{})
	entered := make(chan struct{})
	var lateRan atomic.Bool

	c.Post(func() {
		close(entered)
		<-block
	})
	<-entered
	c.Post(func() { lateRan.Store(true) })

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(block)
	}()
	p.Stop()

	if lateRan.Load() {
		t.Error("queued task ran after Stop")
	}
}

func TestContext_ReleaseGuardDrainsThenExits(t *testing.T) {
	c := newContext(0, false, NewPool("t").logger)
	c.start()

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		c.Post(func() { ran.Add(1) })
	}
	c.ReleaseGuard()

	select {
	case <-c.loopDone:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after guard release")
	}

	if got := ran.Load(); got != 10 {
		t.Errorf("ran = %d, want 10", got)
	}
	if c.Post(func() {}) {
		t.Error("Post accepted after loop exit")
	}
}

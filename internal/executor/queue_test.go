package executor

import (
	"sync"
	"testing"
	"time"
)

func TestTaskQueue_FIFOAcrossGrowth(t *testing.T) {
	q := newTaskQueue[int](2)

	// Interleave pops so the ring wraps before growing.
	q.Push(0)
	q.Push(1)
	if v, _ := q.Pop(); v != 0 {
		t.Fatalf("Pop() = %d, want 0", v)
	}
	for i := 2; i < 50; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) rejected", i)
		}
	}

	for want := 1; want < 50; want++ {
		got, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop() closed early at %d", want)
		}
		if got != want {
			t.Fatalf("Pop() = %d, want %d", got, want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestTaskQueue_CloseDrains(t *testing.T) {
	q := newTaskQueue[string](4)
	q.Push("a")
	q.Close()

	if q.Push("b") {
		t.Error("Push after Close accepted")
	}

	v, ok := q.Pop()
	if !ok || v != "a" {
		t.Errorf("Pop() = %q, %v, want %q, true", v, ok, "a")
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on closed empty queue returned ok")
	}
}

func TestTaskQueue_PopBlocksUntilPush(t *testing.T) {
	q := newTaskQueue[int](1)

	var wg sync.WaitGroup
	wg.Add(1)
	var got int
	go func() {
		defer wg.Done()
		got, _ = q.Pop()
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push(7)
	wg.Wait()

	if got != 7 {
		t.Errorf("Pop() = %d, want 7", got)
	}
}

func TestTaskQueue_Discard(t *testing.T) {
	q := newTaskQueue[int](4)
	for i := 0; i < 5; i++ {
		q.Push(i)
	}

	if n := q.Discard(); n != 5 {
		t.Errorf("Discard() = %d, want 5", n)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}

	q.Push(9)
	if v, _ := q.Pop(); v != 9 {
		t.Errorf("Pop() = %d, want 9", v)
	}
}

// Package executor implements pools of execution contexts.
//
// Each Context owns one loop goroutine (optionally locked to its own OS thread
// and pinned to a CPU) that runs session completion tasks, and an arena of the
// sessions launched on it. A Pool hands out contexts round-robin.
//
// Pinning covers the loop goroutine, and so completion tasks only. Sessions
// started with Run get goroutines of their own, and their network I/O runs on
// whatever thread the scheduler picks.
//
// Two pools are used by the client: one for REST traffic, one for WebSocket
// traffic, so a burst of one kind cannot starve the other.
package executor

// Package dispatch runs user callbacks on a dedicated worker pool so that
// handler code never executes on a goroutine that drives network I/O.
//
// Lanes serialize the callbacks of a single subscription: tasks submitted to
// one Lane run one at a time, in submission order, while different lanes run
// concurrently.
package dispatch

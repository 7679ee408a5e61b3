//go:build !linux

package executor

// pinCurrentThread is a no-op outside Linux; the loop goroutine is still
// locked to its own OS thread.
func pinCurrentThread(id int) error {
	return nil
}

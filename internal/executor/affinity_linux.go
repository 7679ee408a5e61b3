//go:build linux

package executor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// allowedCPUs is the process affinity set at startup, in ascending order.
// Captured before any loop pins its thread, since new OS threads inherit the
// mask of the thread that spawned them.
var allowedCPUs = func() []int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil
	}
	var cpus []int
	for cpu := 0; cpu < len(set)*64; cpu++ {
		if set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpus
}()

// cpuFor returns the CPU a context with the given id is pinned to.
func cpuFor(id int) (int, bool) {
	if len(allowedCPUs) == 0 {
		return 0, false
	}
	return allowedCPUs[id%len(allowedCPUs)], true
}

// pinCurrentThread binds the calling OS thread to one CPU of the process
// affinity set, chosen by id. The caller must hold runtime.LockOSThread.
func pinCurrentThread(id int) error {
	cpu, ok := cpuFor(id)
	if !ok {
		return fmt.Errorf("no cpu affinity set available")
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)

	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("sched_setaffinity cpu %d: %w", cpu, err)
	}
	return nil
}

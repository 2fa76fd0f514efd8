//go:build linux

package prioexec

import (
	"golang.org/x/sys/unix"
)

// pinWorker is called by a pinned worker on its locked OS thread.
var pinWorker = PinToCPU

// PinToCPU restricts the calling OS thread to a single CPU. The caller is
// expected to have locked its goroutine to the thread.
func PinToCPU(cpu int) error {
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpu)
	return unix.SchedSetaffinity(0, &mask)
}

//go:build !windows

package backup

import "syscall"

// isProcessAlive reports whether the lock holder's PID is still running.
// Signal 0 probes without delivering anything: ESRCH means the process is
// gone, EPERM means it exists but belongs to another user (still alive).
func isProcessAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}

//go:build !windows

package process

import "syscall"

// KillProcessGroup kills a process and all its children by sending SIGKILL
// to the process group (negative PID). Non-positive PIDs are ignored so a
// launcher that never started cannot signal the caller's own group.
func KillProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	// Best-effort; launcher.Kill() is the fallback
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

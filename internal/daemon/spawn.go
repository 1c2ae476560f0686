package daemon

import (
	"os"
	"os/exec"
)

// StartDetached re-executes the current binary with args as a background
// process that outlives the caller. It returns the child's pid.
func StartDetached(args ...string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, err
	}

	cmd := exec.Command(executable, args...)
	cmd.SysProcAttr = detachedAttr()

	// No stdin/stdout/stderr - fully detached
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	// The child is not waited on; release its handle.
	return pid, cmd.Process.Release()
}

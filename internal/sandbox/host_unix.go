//go:build !windows
// +build !windows

package sandbox

import (
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"
)

// HostRunner runs commands directly on the host machine without
// container isolation. Output caps and the kill-on-timeout guarantee
// still apply; only the filesystem/namespace isolation is absent.
type HostRunner struct {
	config Config
}

// NewHostRunner creates a host runner with the given config.
func NewHostRunner(config Config) *HostRunner {
	return &HostRunner{config: config}
}

// Run spawns the program with an argument vector in workDir.
// The child gets its own process group so the whole tree is killed on
// timeout, never orphaned.
func (r *HostRunner) Run(ctx context.Context, workDir, program string, args []string, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		if r.config.CmdTimeout > 0 {
			timeout = r.config.CmdTimeout
		} else {
			timeout = defaultCmdTimeout
		}
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command(program, args...)
	cmd.Dir = workDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout := newCapWriter(r.config.stdoutCap())
	stderr := newCapWriter(r.config.stderrCap())
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return Result{}, err
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-cctx.Done():
			// Kill the entire process group (negative PID).
			if cmd.Process != nil {
				syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	res := Result{
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		StdoutTruncated: stdout.Truncated(),
		StderrTruncated: stderr.Truncated(),
	}
	switch {
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
	case errors.Is(cctx.Err(), context.Canceled):
		res.Cancelled = true
	}

	if waitErr != nil {
		res.Code = 1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.Code = exitErr.ExitCode()
			// A non-zero exit (or the timeout kill) is a result, not a
			// transport error.
			return res, nil
		}
		if res.TimedOut || res.Cancelled {
			return res, nil
		}
		return res, waitErr
	}

	return res, nil
}

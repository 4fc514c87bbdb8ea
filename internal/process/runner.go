package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Runner executes a command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// maxStderr bounds how much of a failing command's stderr ends up in errors.
const maxStderr = 512

// ExecRunner runs commands through os/exec.
type ExecRunner struct {
	timeout time.Duration

	// waitDelay is how long Wait waits for output pipes after the process
	// group has been killed.
	waitDelay time.Duration
}

// NewRunner creates a runner that bounds each invocation by timeout.
// A non-positive timeout defaults to 5 seconds.
func NewRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ExecRunner{timeout: timeout, waitDelay: time.Second}
}

// Run executes name with args and returns stdout.
//
// Errors wrap ErrNotInstalled, ErrTimeout or ErrFailed. The child runs in its
// own process group which is killed on timeout or cancellation.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...) //nolint:gosec // binary comes from validated config
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative PID signals the process group created via Setpgid.
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			return err
		}
		return nil
	}
	cmd.WaitDelay = r.waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	switch {
	case err == nil:
		return stdout.Bytes(), nil
	case errors.Is(err, exec.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, name)
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, name, r.timeout)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), fmt.Errorf("%w: %s exit %d: %s",
			ErrFailed, name, exitErr.ExitCode(), trimStderr(stderr.String()))
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrFailed, name, err)
}

func trimStderr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		s = s[:maxStderr] + "..."
	}
	return s
}

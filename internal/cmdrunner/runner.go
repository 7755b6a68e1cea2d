// Package cmdrunner runs external package-manager binaries (choco, winget) and captures
// their output. Callers bound each run with a context deadline.
package cmdrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Output waits for pipes held open by grandchildren after a kill.
const waitDelay = 2 * time.Second

// ErrTimeout is returned when the context deadline expired before the process exited.
var ErrTimeout = errors.New("command timed out")

// Runner executes a program and returns its standard output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Exec runs programs with os/exec.
type Exec struct{}

// Output runs name with args. A non-zero exit becomes an *ExitError carrying the tail of
// stderr; a deadline hit becomes ErrTimeout.
func (Exec) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return out, fmt.Errorf("%s: %w", name, ErrTimeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ExitError{
			Name:     name,
			Code:     exitErr.ExitCode(),
			Stderr:   lastLine(stderr.String()),
			Combined: string(out) + stderr.String(),
		}
	}
	return out, fmt.Errorf("failed to run %s: %w", name, err)
}

// ExitError reports a process that ran and exited non-zero.
type ExitError struct {
	Name     string
	Code     int
	Stderr   string
	Combined string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Name, e.Code)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Name, e.Code, e.Stderr)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// Func adapts a function to the Runner interface.
type Func func(ctx context.Context, name string, args ...string) ([]byte, error)

// Output calls f.
func (f Func) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f(ctx, name, args...)
}

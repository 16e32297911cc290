package gitexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Result captures the outcome of a single git invocation. A non-zero
// exit code is reported here rather than as an error; callers inspect
// ExitCode explicitly.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Ok reports whether the command exited successfully.
func (r Result) Ok() bool {
	return r.ExitCode == 0
}

// Runner executes git commands with a controlled working directory and
// an explicit environment overlay. The overlay is layered on top of the
// inherited environment for each invocation; the ambient process
// environment is never mutated.
type Runner struct {
	overlay []string
}

// NewRunner constructs a Runner with the given environment overlay
// entries (KEY=VALUE).
func NewRunner(overlay ...string) *Runner {
	return &Runner{overlay: overlay}
}

// Run executes `git <args...>` in dir. The returned error is non-nil
// only when the process could not be started at all (for example, the
// git binary is missing) or the context was cancelled; a command that
// ran and exited non-zero returns a Result with the exit code set.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.overlay...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		if ctx.Err() != nil {
			return result, fmt.Errorf("git %v: %w", args, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("git %v: %w", args, err)
	}
	return result, nil
}

// Package shell is the command-execution collaborator of the engine: it
// runs a job's command sequence as one logical unit and captures the exit
// code, combined output and duration.
package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vk/pipegridgo/internal/ctxlog"
)

// Result is the outcome of running a command sequence.
type Result struct {
	// ExitCode is the exit code of the first failing command, or zero when
	// every command succeeded. Negative when the unit was aborted.
	ExitCode int
	// Output is the combined stdout/stderr of all commands run, in order.
	Output string
	// Duration is the wall-clock time of the whole unit.
	Duration time.Duration
}

// Runner executes a command sequence with the given extra environment and
// an optional timeout (zero means unbounded). Commands run in order; the
// unit stops at the first non-zero exit. The error return is reserved for
// the inability to execute at all; command failure is a Result, not an
// error.
type Runner interface {
	Run(ctx context.Context, commands []string, env map[string]string, timeout time.Duration) (Result, error)
}

// ExecRunner runs commands through the system shell.
type ExecRunner struct {
	// Shell is the interpreter used for each command. Defaults to "sh".
	Shell string
}

// NewExecRunner creates an ExecRunner using the default shell.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Shell: "sh"}
}

// Run implements Runner. Each command is invoked as `sh -c <command>` with
// the process environment extended by env. A timeout aborts the unit and is
// noted explicitly in the output.
func (r *ExecRunner) Run(ctx context.Context, commands []string, env map[string]string, timeout time.Duration) (Result, error) {
	logger := ctxlog.FromContext(ctx)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	environ := os.Environ()
	for k, v := range env {
		environ = append(environ, k+"="+v)
	}

	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}

	start := time.Now()
	var output strings.Builder
	for _, command := range commands {
		logger.Debug("Running command.", "command", command)
		cmd := exec.CommandContext(ctx, shell, "-c", command)
		cmd.Env = environ
		out, err := cmd.CombinedOutput()
		output.Write(out)

		if err == nil {
			continue
		}

		result := Result{Output: output.String(), Duration: time.Since(start)}
		if ctx.Err() != nil {
			result.ExitCode = -1
			if timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				result.Output += fmt.Sprintf("\ncommand timed out after %s: %s\n", timeout, command)
			} else {
				result.Output += fmt.Sprintf("\ncommand was cancelled: %s\n", command)
			}
			return result, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		// The command could not be started at all (e.g. missing shell).
		return result, fmt.Errorf("failed to run command %q: %w", command, err)
	}

	return Result{ExitCode: 0, Output: output.String(), Duration: time.Since(start)}, nil
}

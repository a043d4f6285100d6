package cmake

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/sys/execabs"
)

// Command describes one external process invocation.
type Command struct {
	Path   string
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for logs.
func (c *Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Result is the outcome of a process that ran to completion.
// Callers decide whether a non-zero ExitCode is a failure.
type Result struct {
	ExitCode int
	Signal   string // set when the process was terminated by a signal
}

// Success reports whether the process exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0 && r.Signal == ""
}

// Runner runs a Command and waits for it to exit.
//
// An error is returned only when the process could not be started or
// waited on; a non-zero exit is reported through Result.
type Runner interface {
	Run(ctx context.Context, cmd *Command) (Result, error)
}

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, c *Command) (Result, error) {
	cmd := execabs.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	err := cmd.Run()
	if err == nil {
		return Result{}, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res := Result{ExitCode: exitErr.ExitCode()}
		if res.ExitCode == -1 {
			res.Signal = exitErr.ProcessState.String()
		}
		return res, nil
	}
	return Result{ExitCode: -1}, err
}

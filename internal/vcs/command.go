package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result holds the output of a single command execution
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandError describes a failed external command
type CommandError struct {
	Program  string
	Args     []string
	Dir      string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s %s (in %s): exit %d: %s", e.Program, strings.Join(e.Args, " "), e.Dir, e.ExitCode, msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

const waitDelay = time.Second

// runner executes one program with an explicit working directory per call
type runner struct {
	program string
	timeout time.Duration
	env     []string
}

func newRunner(program string, timeout time.Duration, env ...string) *runner {
	return &runner{program: program, timeout: timeout, env: env}
}

// run executes the program in dir and captures stdout and stderr separately
func (r *runner) run(ctx context.Context, dir string, args ...string) (*Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.program, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children that inherit the pipes must not keep a killed command alive.
	cmd.WaitDelay = waitDelay
	if len(r.env) > 0 {
		cmd.Env = append(cmd.Environ(), r.env...)
	}

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	} else {
		result.ExitCode = -1
	}

	return result, &CommandError{
		Program:  r.program,
		Args:     args,
		Dir:      dir,
		ExitCode: result.ExitCode,
		Stderr:   result.Stderr,
		Err:      err,
	}
}

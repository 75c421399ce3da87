// Package spawn is the subprocess capability used by the compiler and
// execution orchestrators: start a program, optionally feed its stdin, block
// until it exits, and capture both output streams plus the exit code.
//
// The capability is an interface so orchestrators can be tested against an
// in-memory fake that deterministically transforms input without invoking a
// real external binary.
package spawn

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"
)

// Command describes one subprocess invocation.
type Command struct {
	// Program is the binary to run, resolved through PATH.
	Program string

	// Args are the arguments, excluding the program name.
	Args []string

	// Stdin is written to the process's standard input, which is then
	// closed. Nil means no input.
	Stdin []byte
}

// Result captures a completed subprocess. Both streams are opaque diagnostic
// bytes surfaced to the caller unmodified.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Success reports whether the process exited with status zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Spawner runs one command to completion. A non-zero exit code is reported
// through the Result, not as an error; an error means the process could not
// be started or supervised.
type Spawner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Func adapts a function to the Spawner interface, which keeps test fakes to
// a closure.
type Func func(ctx context.Context, cmd Command) (*Result, error)

func (f Func) Run(ctx context.Context, cmd Command) (*Result, error) {
	return f(ctx, cmd)
}

// Exec is the real Spawner backed by os/exec.
type Exec struct{}

// Run starts the command, feeds stdin, and blocks until the process exits or
// the context is cancelled. On cancellation the whole process group is
// killed before returning the context error.
func (Exec) Run(ctx context.Context, cmd Command) (*Result, error) {
	c := exec.Command(cmd.Program, cmd.Args...)

	if cmd.Stdin != nil {
		c.Stdin = bytes.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	// Own process group so cancellation can take down the full tree.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", cmd.Program, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Wait()
	}()

	var waitErr error
	select {
	case <-ctx.Done():
		if c.Process != nil {
			syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return nil, fmt.Errorf("%s cancelled: %w", cmd.Program, ctx.Err())
	case waitErr = <-done:
	}

	exitCode := 0
	if waitErr != nil {
		exitErr, ok := waitErr.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("running %s: %w", cmd.Program, waitErr)
		}
		exitCode = exitErr.ExitCode()
	}

	return &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}

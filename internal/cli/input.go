// Package cli canonicalizes command-line input into an Invocation and drives
// the pipeline, mapping outcomes and failures to semantic exit codes.
package cli

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
)

const (
	// ExitPass: the engine ran the test and it passed.
	ExitPass = 0
	// ExitTestFailed: the engine ran the test and it failed. This is a
	// reported outcome, not a harness error.
	ExitTestFailed = 1
	// ExitInvalidInvocation: the command line could not be parsed.
	ExitInvalidInvocation = 2
	// ExitRequestFailure: the request could not be carried out
	// (unreadable request, compile failure, script I/O, engine spawn).
	ExitRequestFailure = 3
	// ExitInternalError: an unexpected harness fault.
	ExitInternalError = 4
)

// Invocation is the fully canonicalized description of a run.
//
// ScratchDir is required and must be absolute; this keeps the request
// independent of the process working directory.
type Invocation struct {
	RequestPath string
	ScratchDir  string
	OutputImage string
	TracePath   string

	CompilerBinary string
	EngineBinary   string
}

// InvocationError carries the exit code for an unusable command line.
type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ParseInvocation parses CLI flags into a canonical Invocation. It does not
// read environment variables or assume the process working directory.
func ParseInvocation(args []string) (Invocation, error) {
	fs := flag.NewFlagSet("shaderharness", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // parsing errors are returned, not printed

	var inv Invocation
	fs.StringVar(&inv.RequestPath, "request", "", "Request JSON path. Required.")
	fs.StringVar(&inv.ScratchDir, "scratch", "", "Absolute scratch directory. Required.")
	fs.StringVar(&inv.OutputImage, "output", "", "Portable output image path (optional, overrides the request).")
	fs.StringVar(&inv.TracePath, "trace", "", "Trace output path (optional).")
	fs.StringVar(&inv.CompilerBinary, "glslc", "", "Shader compiler binary (optional).")
	fs.StringVar(&inv.EngineBinary, "vkrunner", "", "Test-execution engine binary (optional).")

	if err := fs.Parse(args); err != nil {
		return Invocation{}, invalidInvocationf("%v", err)
	}
	if fs.NArg() != 0 {
		return Invocation{}, invalidInvocationf("unexpected positional arguments: %q", fs.Args())
	}

	if inv.RequestPath == "" {
		return Invocation{}, invalidInvocationf("-request is required")
	}
	if inv.ScratchDir == "" {
		return Invocation{}, invalidInvocationf("-scratch is required")
	}
	inv.ScratchDir = filepath.Clean(inv.ScratchDir)
	if !filepath.IsAbs(inv.ScratchDir) {
		return Invocation{}, invalidInvocationf("-scratch must be an absolute path (got %q)", inv.ScratchDir)
	}

	return inv, nil
}

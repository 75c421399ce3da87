package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"shaderharness/internal/compile"
	"shaderharness/internal/harness"
	"shaderharness/internal/script"
	"shaderharness/internal/trace"
)

// Result is the semantic outcome of a CLI run.
type Result struct {
	ExitCode int
}

// Run is the high-level entrypoint suitable for black-box tests. It accepts
// the argument slice (excluding argv[0]) and the streams to report on.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) (Result, error) {
	inv, err := ParseInvocation(args)
	if err != nil {
		return Result{ExitCode: exitCodeFor(err)}, err
	}
	return Execute(ctx, inv, stdout, stderr)
}

// Execute carries out a parsed invocation: load the request, run the
// pipeline, surface the engine's diagnostics, and write the trace when asked.
func Execute(ctx context.Context, inv Invocation, stdout, stderr io.Writer) (Result, error) {
	data, err := os.ReadFile(inv.RequestPath)
	if err != nil {
		return Result{ExitCode: ExitRequestFailure}, fmt.Errorf("reading request: %w", err)
	}
	req, err := script.ParseRequest(data)
	if err != nil {
		return Result{ExitCode: ExitRequestFailure}, err
	}
	if inv.OutputImage != "" {
		req.OutputImage = inv.OutputImage
	}

	runner := harness.New(harness.NewScratch(inv.ScratchDir))
	if inv.CompilerBinary != "" {
		runner.Compiler.Binary = inv.CompilerBinary
	}
	if inv.EngineBinary != "" {
		runner.Engine.Binary = inv.EngineBinary
	}

	var recorder *trace.Recorder
	if inv.TracePath != "" {
		recorder = trace.NewRecorder()
		runner.Trace = recorder
	}

	result, runErr := runner.Run(ctx, req)

	if recorder != nil {
		if err := writeTrace(inv.TracePath, recorder); err != nil {
			fmt.Fprintln(stderr, err)
			if runErr == nil {
				return Result{ExitCode: ExitInternalError}, err
			}
		}
	}

	if runErr != nil {
		var failure *compile.Failure
		if errors.As(runErr, &failure) {
			// Compiler diagnostics are surfaced verbatim.
			stderr.Write(failure.Stdout)
			stderr.Write(failure.Stderr)
		}
		return Result{ExitCode: ExitRequestFailure}, runErr
	}

	stdout.Write(result.Outcome.Stdout)
	stderr.Write(result.Outcome.Stderr)
	if result.ImageErr != nil {
		fmt.Fprintf(stderr, "image conversion failed: %v\n", result.ImageErr)
	} else if result.ImagePath != "" {
		fmt.Fprintf(stdout, "image saved to %s\n", result.ImagePath)
	}

	if !result.Outcome.Passed {
		return Result{ExitCode: ExitTestFailed}, nil
	}
	return Result{ExitCode: ExitPass}, nil
}

func writeTrace(path string, recorder *trace.Recorder) error {
	b, err := recorder.Trace().CanonicalJSON()
	if err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}

func exitCodeFor(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) {
		return invErr.ExitCode
	}
	return ExitInternalError
}

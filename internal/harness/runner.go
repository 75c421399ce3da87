package harness

import (
	"context"
	"fmt"
	"os"
	"strings"

	"shaderharness/internal/compile"
	"shaderharness/internal/image"
	"shaderharness/internal/runner"
	"shaderharness/internal/script"
	"shaderharness/internal/source"
	"shaderharness/internal/trace"
)

// ScriptIOError reports a filesystem failure while materializing the script:
// creating the scratch directory, reading a compiled artifact, or writing the
// script file. It aborts the request.
type ScriptIOError struct {
	Err error
}

func (e *ScriptIOError) Error() string {
	return fmt.Sprintf("materializing script: %v", e.Err)
}

func (e *ScriptIOError) Unwrap() error { return e.Err }

// Runner drives one request end to end.
//
// The stages are strictly sequential; there is no overlap and no retry. A
// compile failure, script I/O failure or engine spawn failure aborts the
// request. The engine exiting non-zero is a reported outcome, and an image
// conversion failure degrades only the image portion of the result.
type Runner struct {
	Scratch  Scratch
	Compiler *compile.Compiler
	Engine   *runner.Engine

	// Trace receives pipeline events. Nil disables tracing.
	Trace trace.Sink
}

// New returns a Runner over the given scratch root with the default external
// toolchain.
func New(scratch Scratch) *Runner {
	return &Runner{
		Scratch:  scratch,
		Compiler: compile.New(),
		Engine:   runner.New(),
	}
}

// Result is the reportable outcome of a request that made it to execution.
type Result struct {
	// Outcome is the engine's verdict and captured diagnostics. A failed
	// test is a valid Result, not an error.
	Outcome *runner.Outcome

	// ScriptPath and Script are the materialized script and its text.
	ScriptPath string
	Script     string

	// ImagePath is the written portable image, empty when none was
	// requested or produced.
	ImagePath string

	// ImageErr records a raster decode/encode failure. It degrades only
	// the image artifact; the rest of the result is still valid.
	ImageErr error
}

// Run executes the request: compile every unit, serialize the script, run the
// engine, and normalize the captured raster when an output image was
// requested.
func (r *Runner) Run(ctx context.Context, req *script.Request) (*Result, error) {
	if err := r.Scratch.Init(); err != nil {
		return nil, &ScriptIOError{Err: err}
	}

	for _, unit := range req.Units {
		unit.Destination = r.Scratch.ResolvePath(unit.Destination)
		if err := r.Compiler.Compile(ctx, unit); err != nil {
			r.record(trace.Event{
				Kind:  trace.EventCompileFailed,
				Stage: unit.Stage.String(),
			})
			return nil, err
		}
		r.record(trace.Event{
			Kind:  trace.EventUnitCompiled,
			Stage: unit.Stage.String(),
			Path:  unit.Destination,
		})
	}

	text, err := r.materializeScript(req)
	if err != nil {
		return nil, err
	}
	scriptPath := r.Scratch.ScriptPath()
	if err := os.WriteFile(scriptPath, []byte(text), 0o644); err != nil {
		return nil, &ScriptIOError{Err: err}
	}
	r.record(trace.Event{Kind: trace.EventScriptWritten, Path: scriptPath})

	capturePath := ""
	if req.OutputImage != "" {
		capturePath = r.Scratch.CapturePath()
	}
	outcome, err := r.Engine.Execute(ctx, scriptPath, capturePath)
	if err != nil {
		return nil, err
	}
	r.record(trace.Event{
		Kind:   trace.EventEngineExecuted,
		Path:   scriptPath,
		Detail: fmt.Sprintf("exit=%d", outcome.ExitCode),
	})

	result := &Result{
		Outcome:    outcome,
		ScriptPath: scriptPath,
		Script:     text,
	}

	if req.OutputImage != "" && outcome.Passed {
		if err := image.Normalize(capturePath, req.OutputImage); err != nil {
			result.ImageErr = err
			r.record(trace.Event{Kind: trace.EventImageFailed, Path: req.OutputImage})
		} else {
			result.ImagePath = req.OutputImage
			r.record(trace.Event{Kind: trace.EventImageWritten, Path: req.OutputImage})
		}
	}
	return result, nil
}

// materializeScript serializes the specification and resolves any token
// replacements before the script is handed to the engine, which reads the
// file without replacement context of its own.
func (r *Runner) materializeScript(req *script.Request) (string, error) {
	var b strings.Builder
	if err := script.Serialize(&b, req.Spec(), r.Scratch.ResolvePath); err != nil {
		return "", &ScriptIOError{Err: err}
	}
	text := b.String()

	if len(req.Replacements) == 0 {
		return text, nil
	}
	src := source.FromString(text)
	src.AddReplacements(req.Replacements)
	lines, err := src.ReadAll()
	if err != nil {
		// A substitution loop is a caller error in the replacement
		// set, distinct from script I/O.
		return "", err
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func (r *Runner) record(event trace.Event) {
	if r.Trace == nil {
		return
	}
	r.Trace.Record(event)
}

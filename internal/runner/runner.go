// Package runner invokes the external test-execution engine against an
// assembled script file and reports the outcome.
//
// The engine's exit status is data, not an error: a failing test is a
// legitimate, reportable result. Only a process that could not be started or
// supervised is an error of this package.
package runner

import (
	"context"
	"fmt"

	"shaderharness/internal/spawn"
)

// DefaultBinary is the test-execution engine, resolved through PATH.
const DefaultBinary = "vkrunner"

// captureFlag asks the engine to dump the rendered framebuffer to a file.
const captureFlag = "--image"

// Outcome is the engine's verdict plus its captured diagnostics, surfaced to
// the caller unmodified.
type Outcome struct {
	// Passed is true when the engine exited with status zero.
	Passed bool

	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Engine runs the external execution engine, once per request.
type Engine struct {
	// Binary is the engine executable.
	Binary string

	// Spawner runs the engine process.
	Spawner spawn.Spawner
}

// New returns an Engine using the default binary.
func New() *Engine {
	return &Engine{
		Binary:  DefaultBinary,
		Spawner: spawn.Exec{},
	}
}

// Execute runs the engine against scriptPath. When capturePath is non-empty
// the engine is additionally asked to dump the rendered raster there. Execute
// blocks until the engine exits.
func (e *Engine) Execute(ctx context.Context, scriptPath, capturePath string) (*Outcome, error) {
	args := []string{scriptPath}
	if capturePath != "" {
		args = append(args, captureFlag, capturePath)
	}

	result, err := e.Spawner.Run(ctx, spawn.Command{
		Program: e.Binary,
		Args:    args,
	})
	if err != nil {
		return nil, fmt.Errorf("spawning %s: %w", e.Binary, err)
	}

	return &Outcome{
		Passed:   result.Success(),
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}, nil
}

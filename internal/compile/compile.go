// Package compile turns shader source text into on-disk artifacts the script
// serializer can reference: one compilation per declared stage, streamed
// source, captured diagnostics.
//
// GLSL units are compiled by the external compiler binary (assembly output,
// optimization enabled, source on stdin). WGSL units are compiled in process
// and written as hexadecimal SPIR-V words.
package compile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"shaderharness/internal/script"
	"shaderharness/internal/spawn"
)

// Defaults for the external compiler invocation.
const (
	DefaultBinary    = "glslc"
	DefaultTargetEnv = "vulkan1.4"
)

// Failure reports a compilation that was attempted and rejected. Both
// captured streams are carried verbatim; no diagnostics are parsed. A Failure
// aborts the whole request: a script referencing a failed stage cannot
// execute meaningfully.
type Failure struct {
	Stage  script.Stage
	Stdout []byte
	Stderr []byte
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s shader compilation failed", f.Stage)
}

// Compiler produces one compiled artifact per CompileUnit.
type Compiler struct {
	// Binary is the external compiler, resolved through PATH.
	Binary string

	// TargetEnv is the value of the compiler's target-environment flag.
	TargetEnv string

	// Spawner runs the external compiler process.
	Spawner spawn.Spawner
}

// New returns a Compiler with the default external toolchain.
func New() *Compiler {
	return &Compiler{
		Binary:    DefaultBinary,
		TargetEnv: DefaultTargetEnv,
		Spawner:   spawn.Exec{},
	}
}

// Compile produces the unit's artifact at unit.Destination, creating the
// parent directory if absent. The artifact is present on disk before Compile
// returns; the external process is waited on synchronously.
//
// A compiler rejection is returned as a *Failure. Any other error is an
// infrastructure problem (process spawn, filesystem).
func (c *Compiler) Compile(ctx context.Context, unit script.CompileUnit) error {
	if parent := filepath.Dir(unit.Destination); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("creating artifact directory: %w", err)
		}
	}

	switch unit.Language {
	case script.LangGLSL:
		return c.compileGLSL(ctx, unit)
	case script.LangWGSL:
		return compileWGSL(unit)
	default:
		return fmt.Errorf("unknown source language %v", unit.Language)
	}
}

// compileGLSL spawns the external compiler once: target environment and stage
// flags, optimization on, assembly (not binary) output, source streamed to
// stdin.
func (c *Compiler) compileGLSL(ctx context.Context, unit script.CompileUnit) error {
	result, err := c.Spawner.Run(ctx, spawn.Command{
		Program: c.Binary,
		Args: []string{
			"--target-env=" + c.TargetEnv,
			"-fshader-stage=" + unit.Stage.CompilerFlag(),
			"-O",
			"-S",
			"-o", unit.Destination,
			"-",
		},
		Stdin: []byte(unit.Source),
	})
	if err != nil {
		return fmt.Errorf("spawning %s: %w", c.Binary, err)
	}
	if !result.Success() {
		return &Failure{
			Stage:  unit.Stage,
			Stdout: result.Stdout,
			Stderr: result.Stderr,
		}
	}
	return nil
}

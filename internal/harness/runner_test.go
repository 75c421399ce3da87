package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shaderharness/internal/compile"
	"shaderharness/internal/script"
	"shaderharness/internal/source"
	"shaderharness/internal/spawn"
	"shaderharness/internal/trace"
)

// fakeToolchain stands in for both external binaries. The compiler leg writes
// the artifact named by -o; the engine leg records its arguments and
// optionally writes a raster capture.
type fakeToolchain struct {
	t *testing.T

	compilerExit int
	engineExit   int
	engineStdout string
	writeCapture bool

	engineArgs []string
}

func (f *fakeToolchain) compiler() spawn.Spawner {
	return spawn.Func(func(ctx context.Context, cmd spawn.Command) (*spawn.Result, error) {
		if f.compilerExit != 0 {
			return &spawn.Result{Stderr: []byte("error: bad shader"), ExitCode: f.compilerExit}, nil
		}
		for i, arg := range cmd.Args {
			if arg == "-o" && i+1 < len(cmd.Args) {
				body := fmt.Sprintf("; compiled %s\n", cmd.Args[i+1])
				if err := os.WriteFile(cmd.Args[i+1], []byte(body), 0o644); err != nil {
					f.t.Fatalf("fake compiler: %v", err)
				}
			}
		}
		return &spawn.Result{}, nil
	})
}

func (f *fakeToolchain) engine() spawn.Spawner {
	return spawn.Func(func(ctx context.Context, cmd spawn.Command) (*spawn.Result, error) {
		f.engineArgs = cmd.Args
		if f.writeCapture {
			for i, arg := range cmd.Args {
				if arg == "--image" && i+1 < len(cmd.Args) {
					raster := []byte("P6\n1 1 255\n\x00\xff\x00")
					if err := os.WriteFile(cmd.Args[i+1], raster, 0o644); err != nil {
						f.t.Fatalf("fake engine: %v", err)
					}
				}
			}
		}
		return &spawn.Result{Stdout: []byte(f.engineStdout), ExitCode: f.engineExit}, nil
	})
}

func newTestRunner(t *testing.T, fake *fakeToolchain) *Runner {
	t.Helper()
	r := New(NewScratch(filepath.Join(t.TempDir(), "scratch")))
	r.Compiler.Spawner = fake.compiler()
	r.Engine.Spawner = fake.engine()
	return r
}

func TestRun_EndToEnd(t *testing.T) {
	fake := &fakeToolchain{t: t, engineStdout: "PASS\n"}
	r := newTestRunner(t, fake)
	recorder := trace.NewRecorder()
	r.Trace = recorder

	req := &script.Request{
		Units: []script.CompileUnit{{
			Stage:       script.StageFragment,
			Language:    script.LangGLSL,
			Source:      "void main() {}",
			Destination: "frag.spvasm",
		}},
		Passes: []script.Pass{
			script.PassthroughVertex{},
			script.SpirvPass{Stage: script.StageFragment, Path: "frag.spvasm"},
		},
		Ops: []script.Op{script.Clear{}, script.DrawRect{X: -1, Y: -1, W: 2, H: 2}},
	}

	result, err := r.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Outcome.Passed {
		t.Error("outcome not passed")
	}

	wantScript := "[vertex shader passthrough]\n\n" +
		"[fragment shader spirv]\n" +
		fmt.Sprintf("; compiled %s\n\n", r.Scratch.ResolvePath("frag.spvasm")) +
		"[test]\nclear\ndraw rect -1 -1 2 2\n"
	if result.Script != wantScript {
		t.Errorf("script mismatch:\ngot:\n%s\nwant:\n%s", result.Script, wantScript)
	}

	onDisk, err := os.ReadFile(result.ScriptPath)
	if err != nil {
		t.Fatalf("reading script: %v", err)
	}
	if string(onDisk) != result.Script {
		t.Error("script on disk differs from the reported text")
	}

	// No output image requested, so the engine gets no capture flag.
	if len(fake.engineArgs) != 1 || fake.engineArgs[0] != result.ScriptPath {
		t.Errorf("engine args = %q", fake.engineArgs)
	}

	wantKinds := []trace.EventKind{
		trace.EventUnitCompiled,
		trace.EventScriptWritten,
		trace.EventEngineExecuted,
	}
	events := recorder.Snapshot()
	if len(events) != len(wantKinds) {
		t.Fatalf("recorded %d events, want %d", len(events), len(wantKinds))
	}
	for i, kind := range wantKinds {
		if events[i].Kind != kind {
			t.Errorf("events[%d].Kind = %q, want %q", i, events[i].Kind, kind)
		}
	}
}

func TestRun_TestFailureIsAResult(t *testing.T) {
	fake := &fakeToolchain{t: t, engineExit: 1}
	r := newTestRunner(t, fake)

	result, err := r.Run(context.Background(), &script.Request{
		Ops: []script.Op{script.Clear{}},
	})
	if err != nil {
		t.Fatalf("a failing test must not be an error, got %v", err)
	}
	if result.Outcome.Passed {
		t.Error("outcome passed despite a non-zero engine exit")
	}
	if result.Outcome.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", result.Outcome.ExitCode)
	}
}

func TestRun_CompileFailureAborts(t *testing.T) {
	fake := &fakeToolchain{t: t, compilerExit: 1}
	r := newTestRunner(t, fake)
	recorder := trace.NewRecorder()
	r.Trace = recorder

	_, err := r.Run(context.Background(), &script.Request{
		Units: []script.CompileUnit{{
			Stage:       script.StageVertex,
			Destination: "vert.spvasm",
		}},
	})
	var failure *compile.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected a *compile.Failure, got %v", err)
	}
	if string(failure.Stderr) != "error: bad shader" {
		t.Errorf("diagnostics not carried: %q", failure.Stderr)
	}
	// The engine never ran.
	if fake.engineArgs != nil {
		t.Error("engine was invoked after a compile failure")
	}
	events := recorder.Snapshot()
	if len(events) != 1 || events[0].Kind != trace.EventCompileFailed {
		t.Errorf("events = %+v, want a single CompileFailed", events)
	}
}

func TestRun_OutputImage(t *testing.T) {
	fake := &fakeToolchain{t: t, writeCapture: true}
	r := newTestRunner(t, fake)
	recorder := trace.NewRecorder()
	r.Trace = recorder

	output := filepath.Join(t.TempDir(), "out.png")
	result, err := r.Run(context.Background(), &script.Request{
		Ops:         []script.Op{script.Clear{}},
		OutputImage: output,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ImageErr != nil {
		t.Fatalf("image conversion failed: %v", result.ImageErr)
	}
	if result.ImagePath != output {
		t.Errorf("image path = %q, want %q", result.ImagePath, output)
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("output image missing: %v", err)
	}

	want := []string{result.ScriptPath, "--image", r.Scratch.CapturePath()}
	if len(fake.engineArgs) != 3 || fake.engineArgs[1] != want[1] || fake.engineArgs[2] != want[2] {
		t.Errorf("engine args = %q, want %q", fake.engineArgs, want)
	}

	events := recorder.Snapshot()
	if events[len(events)-1].Kind != trace.EventImageWritten {
		t.Errorf("last event = %q, want ImageWritten", events[len(events)-1].Kind)
	}
}

func TestRun_ImageFailureDegrades(t *testing.T) {
	// The engine passes but never writes the capture, so normalization
	// fails. The run result must still carry the outcome.
	fake := &fakeToolchain{t: t}
	r := newTestRunner(t, fake)

	result, err := r.Run(context.Background(), &script.Request{
		Ops:         []script.Op{script.Clear{}},
		OutputImage: filepath.Join(t.TempDir(), "out.png"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ImageErr == nil {
		t.Error("expected an image error for a missing capture")
	}
	if result.ImagePath != "" {
		t.Errorf("image path = %q, want empty", result.ImagePath)
	}
	if !result.Outcome.Passed {
		t.Error("outcome lost alongside the image failure")
	}
}

func TestRun_NoCaptureOnFailedTest(t *testing.T) {
	// A failed test skips normalization even when an image was requested.
	fake := &fakeToolchain{t: t, engineExit: 1, writeCapture: true}
	r := newTestRunner(t, fake)

	result, err := r.Run(context.Background(), &script.Request{
		Ops:         []script.Op{script.Clear{}},
		OutputImage: filepath.Join(t.TempDir(), "out.png"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ImagePath != "" || result.ImageErr != nil {
		t.Errorf("image handling ran on a failed test: path=%q err=%v", result.ImagePath, result.ImageErr)
	}
}

func TestRun_TokenReplacements(t *testing.T) {
	fake := &fakeToolchain{t: t}
	r := newTestRunner(t, fake)

	result, err := r.Run(context.Background(), &script.Request{
		Ops: []script.Op{script.Probe{Kind: "rect", Format: "rgb", Args: []string{"0", "0", "W", "H", "0", "1", "0"}}},
		Replacements: []source.TokenReplacement{
			{Token: "W", Replacement: "250"},
			{Token: "H", Replacement: "250"},
		},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(result.Script, "probe rect rgb 0 0 250 250 0 1 0") {
		t.Errorf("tokens not substituted:\n%s", result.Script)
	}
}

func TestRun_CyclicReplacementFails(t *testing.T) {
	fake := &fakeToolchain{t: t}
	r := newTestRunner(t, fake)

	_, err := r.Run(context.Background(), &script.Request{
		Ops: []script.Op{script.Require{Feature: "A"}},
		Replacements: []source.TokenReplacement{
			{Token: "A", Replacement: "B"},
			{Token: "B", Replacement: "A"},
		},
	})
	if !errors.Is(err, source.ErrSubstitutionLoop) {
		t.Fatalf("expected ErrSubstitutionLoop, got %v", err)
	}
	if fake.engineArgs != nil {
		t.Error("engine was invoked despite a substitution loop")
	}
}

func TestRun_DestinationCannotEscapeScratch(t *testing.T) {
	fake := &fakeToolchain{t: t}
	r := newTestRunner(t, fake)

	_, err := r.Run(context.Background(), &script.Request{
		Units: []script.CompileUnit{{
			Stage:       script.StageFragment,
			Destination: "../escape.spvasm",
		}},
		Ops: []script.Op{script.Clear{}},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(r.Scratch.Root, "escape.spvasm")); err != nil {
		t.Errorf("artifact not contained in the scratch root: %v", err)
	}
	escaped := filepath.Join(filepath.Dir(r.Scratch.Root), "escape.spvasm")
	if _, err := os.Stat(escaped); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("artifact written outside the scratch root at %s", escaped)
	}
}

func TestRun_ResolvesUnitDestinations(t *testing.T) {
	fake := &fakeToolchain{t: t}
	r := newTestRunner(t, fake)

	_, err := r.Run(context.Background(), &script.Request{
		Units: []script.CompileUnit{{
			Stage:       script.StageCompute,
			Destination: "comp.spvasm",
		}},
		Ops: []script.Op{script.Compute{X: 1, Y: 1, Z: 1}},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(r.Scratch.ResolvePath("comp.spvasm")); err != nil {
		t.Errorf("artifact not under the scratch root: %v", err)
	}
}

// Package harness wires the pipeline together: a request-scoped scratch
// directory, per-stage compilation, script serialization, engine execution
// and raster normalization, strictly in that order. Each stage consumes the
// filesystem artifact the previous stage produced.
package harness

import (
	"os"
	"path/filepath"
	"strings"
)

// Scratch names for the request-local intermediate files. They are fixed per
// request, not globally unique: two concurrent requests must not share one
// scratch root.
const (
	scriptFileName  = "test.shader_test"
	captureFileName = "capture.ppm"
)

// Scratch is the request-scoped scratch directory. All intermediate artifacts
// (compiled shaders, the generated script, the captured raster) live under
// its root, so concurrent requests with distinct roots cannot interfere.
type Scratch struct {
	Root string
}

// NewScratch returns a scratch context rooted at root.
func NewScratch(root string) Scratch {
	return Scratch{Root: filepath.Clean(root)}
}

// Init creates the scratch root if absent.
func (s Scratch) Init() error {
	return os.MkdirAll(s.Root, 0o755)
}

// ResolvePath rewrites p under the scratch root. Paths already rooted there
// pass through unchanged, so resolution is idempotent; every other path,
// relative or absolute, is rejoined under the root. Parent traversal is
// stripped, so the result is always inside the root.
func (s Scratch) ResolvePath(p string) string {
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		if p == s.Root || strings.HasPrefix(p, s.Root+string(filepath.Separator)) {
			return p
		}
	}
	// After Clean, parent traversal can only survive as leading ".."
	// segments. Drop them; a destination must not escape its request's
	// scratch.
	sep := string(filepath.Separator)
	for p == ".." || strings.HasPrefix(p, ".."+sep) {
		p = strings.TrimPrefix(strings.TrimPrefix(p, ".."), sep)
	}
	if p == "" {
		p = "."
	}
	return filepath.Join(s.Root, p)
}

// ScriptPath is the generated script's location.
func (s Scratch) ScriptPath() string {
	return filepath.Join(s.Root, scriptFileName)
}

// CapturePath is the engine's raster dump location.
func (s Scratch) CapturePath() string {
	return filepath.Join(s.Root, captureFileName)
}

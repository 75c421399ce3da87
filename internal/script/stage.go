// Package script defines the shader-test specification model and the
// serializer that renders it into the line-oriented script format consumed by
// the external test-execution engine.
//
// The model is a set of closed variant types (requirements, passes, vertex
// data, test operations). Each variant maps to exactly one fixed text template
// in the serializer; the consumer grammar is positional, so input order is
// preserved everywhere.
package script

// Stage identifies one programmable step of a graphics or compute pipeline.
//
// The order of the constants follows the engine's stage enumeration.
type Stage int

const (
	StageVertex Stage = iota
	StageTessCtrl
	StageTessEval
	StageGeometry
	StageFragment
	StageCompute
)

// NumStages is the number of pipeline stages.
const NumStages = 6

// CompilerFlag returns the stage name accepted by the external compiler's
// -fshader-stage flag.
func (s Stage) CompilerFlag() string {
	switch s {
	case StageVertex:
		return "vert"
	case StageTessCtrl:
		return "tesc"
	case StageTessEval:
		return "tese"
	case StageGeometry:
		return "geom"
	case StageFragment:
		return "frag"
	case StageCompute:
		return "comp"
	default:
		return "unknown"
	}
}

// sectionName returns the long stage name used in script section headers,
// e.g. "fragment" in "[fragment shader spirv]".
func (s Stage) sectionName() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageTessCtrl:
		return "tessellation control"
	case StageTessEval:
		return "tessellation evaluation"
	case StageGeometry:
		return "geometry"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "unknown"
	}
}

func (s Stage) String() string {
	return s.sectionName()
}

// SourceLanguage selects the compile backend for a CompileUnit.
type SourceLanguage int

const (
	// LangGLSL is compiled by the external compiler binary, producing
	// SPIR-V assembly text.
	LangGLSL SourceLanguage = iota

	// LangWGSL is compiled in process, producing SPIR-V binary words
	// written as hexadecimal text.
	LangWGSL
)

func (l SourceLanguage) String() string {
	switch l {
	case LangGLSL:
		return "glsl"
	case LangWGSL:
		return "wgsl"
	default:
		return "unknown"
	}
}

// CompileUnit describes one shader compilation: a stage, its source text and
// the artifact destination. Destination is resolved under the request's
// scratch root before compilation; the compiled artifact is guaranteed to be
// present at the resolved path once compilation returns.
type CompileUnit struct {
	Stage       Stage
	Language    SourceLanguage
	Source      string
	Destination string
}

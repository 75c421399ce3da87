package script

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Serialize renders the specification into the engine's script grammar and
// writes it to w. Artifact references inside passes are mapped to on-disk
// paths through resolve (nil means the reference already is a path) and their
// contents are embedded verbatim.
//
// The mapping from model to text is total over the variant set: Serialize
// fails only when an artifact cannot be read or the writer reports an error.
func Serialize(w io.Writer, spec *Spec, resolve func(string) string) error {
	if resolve == nil {
		resolve = func(p string) string { return p }
	}
	s := &serializer{w: w, resolve: resolve}

	s.writeRequirements(spec.Requirements)
	for _, pass := range spec.Passes {
		s.writePass(pass)
	}
	s.writeVertexData(spec.VertexData)

	s.line("[test]")
	for _, op := range spec.Ops {
		s.writeOp(op)
	}
	return s.err
}

// serializer tracks the first write error so the variant switches stay free
// of error plumbing.
type serializer struct {
	w       io.Writer
	resolve func(string) string
	err     error
}

func (s *serializer) line(format string, args ...any) {
	if s.err != nil {
		return
	}
	if len(args) == 0 {
		_, s.err = io.WriteString(s.w, format+"\n")
		return
	}
	_, s.err = fmt.Fprintf(s.w, format+"\n", args...)
}

// tail writes a prefix followed by zero or more space-separated value tokens
// on a single line.
func (s *serializer) tail(prefix string, values []string) {
	if len(values) == 0 {
		s.line("%s", prefix)
		return
	}
	s.line("%s %s", prefix, strings.Join(values, " "))
}

func (s *serializer) blank() {
	s.line("")
}

func (s *serializer) writeRequirements(reqs []Requirement) {
	if len(reqs) == 0 {
		return
	}
	s.line("[require]")
	for _, req := range reqs {
		switch r := req.(type) {
		case ReqCooperativeMatrix:
			s.line("cooperative_matrix m=%d n=%d c=%s", r.M, r.N, r.ComponentType)
		case ReqDepthStencil:
			s.line("depthstencil %s", r.Format)
		case ReqFramebuffer:
			s.line("framebuffer %s", r.Format)
		case ReqShaderFloat64:
			s.line("shaderFloat64")
		case ReqGeometryShader:
			s.line("geometryShader")
		case ReqWideLines:
			s.line("wideLines")
		case ReqLogicOp:
			s.line("logicOp")
		case ReqSubgroupSize:
			s.line("subgroup_size %d", r.Size)
		case ReqFragmentStoresAndAtomics:
			s.line("fragmentStoresAndAtomics")
		case ReqBufferDeviceAddress:
			s.line("bufferDeviceAddress")
		default:
			s.err = fmt.Errorf("unknown requirement variant %T", req)
		}
	}
	s.blank()
}

func (s *serializer) writePass(pass Pass) {
	switch p := pass.(type) {
	case PassthroughVertex:
		s.line("[vertex shader passthrough]")
	case SpirvPass:
		s.line("[%s shader spirv]", p.Stage.sectionName())
		s.embedArtifact(p.Path)
	case BinaryPass:
		s.line("[%s shader binary]", p.Stage.sectionName())
		s.embedArtifact(p.Path)
	default:
		s.err = fmt.Errorf("unknown pass variant %T", pass)
		return
	}
	s.blank()
}

// embedArtifact writes the referenced compiled artifact verbatim, guaranteeing
// a trailing newline so the following separator stays on its own line.
func (s *serializer) embedArtifact(ref string) {
	if s.err != nil {
		return
	}
	path := s.resolve(ref)
	body, err := os.ReadFile(path)
	if err != nil {
		s.err = fmt.Errorf("reading compiled artifact %s: %w", path, err)
		return
	}
	if _, s.err = s.w.Write(body); s.err != nil {
		return
	}
	if len(body) > 0 && body[len(body)-1] != '\n' {
		_, s.err = io.WriteString(s.w, "\n")
	}
}

func (s *serializer) writeVertexData(data []VertexDatum) {
	if len(data) == 0 {
		return
	}
	s.line("[vertex data]")
	for _, datum := range data {
		switch d := datum.(type) {
		case AttributeFormat:
			s.line("%d/%s", d.Location, d.Format)
		case Vec2:
			s.line("%s %s", ftoa(d.X), ftoa(d.Y))
		case Vec3:
			s.line("%s %s %s", ftoa(d.X), ftoa(d.Y), ftoa(d.Z))
		case Vec4:
			s.line("%s %s %s %s", ftoa(d.X), ftoa(d.Y), ftoa(d.Z), ftoa(d.W))
		case RGB:
			s.line("%d %d %d", d.R, d.G, d.B)
		case Hex:
			s.line("%s", d.Value)
		case Components:
			s.line("%s", strings.Join(d.Values, " "))
		default:
			s.err = fmt.Errorf("unknown vertex data variant %T", datum)
		}
	}
	s.blank()
}

func (s *serializer) writeOp(op Op) {
	switch o := op.(type) {
	case VertexEntrypoint:
		s.line("vertex entrypoint %s", o.Name)
	case FragmentEntrypoint:
		s.line("fragment entrypoint %s", o.Name)
	case ComputeEntrypoint:
		s.line("compute entrypoint %s", o.Name)
	case GeometryEntrypoint:
		s.line("geometry entrypoint %s", o.Name)
	case DrawRect:
		s.line("draw rect %s %s %s %s", ftoa(o.X), ftoa(o.Y), ftoa(o.W), ftoa(o.H))
	case DrawArrays:
		s.line("draw arrays %s %d %d", o.Primitive, o.First, o.Count)
	case DrawArraysIndexed:
		s.line("draw arrays indexed %s %d %d", o.Primitive, o.First, o.Count)
	case SSBO:
		switch {
		case o.Size != nil:
			s.line("ssbo %s %d", o.Binding, *o.Size)
		case o.Data != nil:
			s.tail(fmt.Sprintf("ssbo %s subdata uint8 0", o.Binding), byteTokens(o.Data))
		}
	case SSBOSubData:
		s.tail(fmt.Sprintf("ssbo %s subdata %s %d", o.Binding, o.Type, o.Offset), o.Values)
	case UBO:
		s.tail(fmt.Sprintf("ubo %s subdata uint8 0", o.Binding), byteTokens(o.Data))
	case UBOSubData:
		s.tail(fmt.Sprintf("ubo %s subdata %s %d", o.Binding, o.Type, o.Offset), o.Values)
	case BufferLayout:
		s.line("%s layout %s", o.Buffer, o.Layout)
	case Push:
		s.tail(fmt.Sprintf("push %s %d", o.Type, o.Offset), o.Values)
	case PushLayout:
		s.line("push layout %s", o.Layout)
	case Compute:
		s.line("compute %d %d %d", o.X, o.Y, o.Z)
	case Probe:
		s.tail(fmt.Sprintf("probe %s %s", o.Kind, o.Format), o.Args)
	case RelativeProbe:
		s.tail(fmt.Sprintf("relative probe %s %s", o.Kind, o.Format), o.Args)
	case Tolerance:
		values := make([]string, len(o.Values))
		for i, v := range o.Values {
			values[i] = ftoa(v)
		}
		s.tail("tolerance", values)
	case Clear:
		s.line("clear")
	case DepthTestEnable:
		s.line("depthTestEnable %t", o.Enable)
	case DepthWriteEnable:
		s.line("depthWriteEnable %t", o.Enable)
	case DepthCompareOp:
		s.line("depthCompareOp %s", o.Op)
	case StencilTestEnable:
		s.line("stencilTestEnable %t", o.Enable)
	case FrontFace:
		s.line("frontFace %s", o.Mode)
	case StencilOp:
		s.line("%s.%s %s", o.Face, o.OpName, o.Value)
	case StencilReference:
		s.line("%s.reference %d", o.Face, o.Value)
	case StencilCompareOp:
		s.line("%s.compareOp %s", o.Face, o.Op)
	case ColorWriteMask:
		s.line("colorWriteMask %s", o.Mask)
	case LogicOpEnable:
		s.line("logicOpEnable %t", o.Enable)
	case LogicOp:
		s.line("logicOp %s", o.Op)
	case CullMode:
		s.line("cullMode %s", o.Mode)
	case LineWidth:
		s.line("lineWidth %s", ftoa(o.Width))
	case Require:
		s.tail("require "+o.Feature, o.Params)
	default:
		s.err = fmt.Errorf("unknown operation variant %T", op)
	}
}

// ftoa formats a float with the shortest representation that round-trips at
// single precision, matching the numeric tokens the engine parses.
func ftoa(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func byteTokens(data []byte) []string {
	tokens := make([]string, len(data))
	for i, b := range data {
		tokens[i] = strconv.FormatUint(uint64(b), 10)
	}
	return tokens
}

package script

import (
	"encoding/json"
	"fmt"

	"shaderharness/internal/source"
)

// Request is the decoded form of one shader-test request: the shaders to
// compile, the specification to serialize, and the optional output image.
//
// The wire format is JSON. Variant entries are discriminated objects carrying
// a "kind" field; compile units name their stage by the compiler's short
// stage flag ("vert", "frag", ...).
type Request struct {
	Units        []CompileUnit
	Requirements []Requirement
	Passes       []Pass
	VertexData   []VertexDatum
	Ops          []Op
	Replacements []source.TokenReplacement

	// OutputImage is the portable image destination. When set, the engine
	// is asked for a raster capture which is re-encoded to this path.
	OutputImage string
}

// Spec assembles the serializable part of the request.
func (r *Request) Spec() *Spec {
	return &Spec{
		Requirements: r.Requirements,
		Passes:       r.Passes,
		VertexData:   r.VertexData,
		Ops:          r.Ops,
	}
}

// ParseRequest decodes a JSON request.
func ParseRequest(data []byte) (*Request, error) {
	var raw struct {
		Requests []struct {
			Stage    string `json:"stage"`
			Language string `json:"language"`
			Source   string `json:"source"`
			Output   string `json:"output"`
		} `json:"requests"`
		Requirements []json.RawMessage         `json:"requirements"`
		Passes       []json.RawMessage         `json:"passes"`
		VertexData   []json.RawMessage         `json:"vertex_data"`
		Tests        []json.RawMessage         `json:"tests"`
		Replacements []source.TokenReplacement `json:"token_replacements"`
		OutputPath   string                    `json:"output_path"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}

	req := &Request{
		Replacements: raw.Replacements,
		OutputImage:  raw.OutputPath,
	}

	for i, u := range raw.Requests {
		stage, err := parseStage(u.Stage)
		if err != nil {
			return nil, fmt.Errorf("requests[%d]: %w", i, err)
		}
		lang, err := parseLanguage(u.Language)
		if err != nil {
			return nil, fmt.Errorf("requests[%d]: %w", i, err)
		}
		if u.Output == "" {
			return nil, fmt.Errorf("requests[%d]: output path is required", i)
		}
		req.Units = append(req.Units, CompileUnit{
			Stage:       stage,
			Language:    lang,
			Source:      u.Source,
			Destination: u.Output,
		})
	}

	for i, m := range raw.Requirements {
		r, err := decodeRequirement(m)
		if err != nil {
			return nil, fmt.Errorf("requirements[%d]: %w", i, err)
		}
		req.Requirements = append(req.Requirements, r)
	}
	for i, m := range raw.Passes {
		p, err := decodePass(m)
		if err != nil {
			return nil, fmt.Errorf("passes[%d]: %w", i, err)
		}
		req.Passes = append(req.Passes, p)
	}
	for i, m := range raw.VertexData {
		d, err := decodeVertexDatum(m)
		if err != nil {
			return nil, fmt.Errorf("vertex_data[%d]: %w", i, err)
		}
		req.VertexData = append(req.VertexData, d)
	}
	for i, m := range raw.Tests {
		op, err := decodeOp(m)
		if err != nil {
			return nil, fmt.Errorf("tests[%d]: %w", i, err)
		}
		req.Ops = append(req.Ops, op)
	}
	return req, nil
}

func parseStage(name string) (Stage, error) {
	switch name {
	case "vert":
		return StageVertex, nil
	case "tesc":
		return StageTessCtrl, nil
	case "tese":
		return StageTessEval, nil
	case "geom":
		return StageGeometry, nil
	case "frag":
		return StageFragment, nil
	case "comp":
		return StageCompute, nil
	default:
		return 0, fmt.Errorf("unknown shader stage %q", name)
	}
}

func parseLanguage(name string) (SourceLanguage, error) {
	switch name {
	case "", "glsl":
		return LangGLSL, nil
	case "wgsl":
		return LangWGSL, nil
	default:
		return 0, fmt.Errorf("unknown source language %q", name)
	}
}

func decodeRequirement(m json.RawMessage) (Requirement, error) {
	var raw struct {
		Kind          string `json:"kind"`
		M             uint32 `json:"m"`
		N             uint32 `json:"n"`
		ComponentType string `json:"component_type"`
		Format        string `json:"format"`
		Size          uint32 `json:"size"`
	}
	if err := json.Unmarshal(m, &raw); err != nil {
		return nil, err
	}
	switch raw.Kind {
	case "cooperative_matrix":
		return ReqCooperativeMatrix{M: raw.M, N: raw.N, ComponentType: raw.ComponentType}, nil
	case "depth_stencil":
		return ReqDepthStencil{Format: raw.Format}, nil
	case "framebuffer":
		return ReqFramebuffer{Format: raw.Format}, nil
	case "shader_float64":
		return ReqShaderFloat64{}, nil
	case "geometry_shader":
		return ReqGeometryShader{}, nil
	case "wide_lines":
		return ReqWideLines{}, nil
	case "logic_op":
		return ReqLogicOp{}, nil
	case "subgroup_size":
		return ReqSubgroupSize{Size: raw.Size}, nil
	case "fragment_stores_and_atomics":
		return ReqFragmentStoresAndAtomics{}, nil
	case "buffer_device_address":
		return ReqBufferDeviceAddress{}, nil
	default:
		return nil, fmt.Errorf("unknown requirement kind %q", raw.Kind)
	}
}

func decodePass(m json.RawMessage) (Pass, error) {
	var raw struct {
		Kind  string `json:"kind"`
		Stage string `json:"stage"`
		Path  string `json:"path"`
	}
	if err := json.Unmarshal(m, &raw); err != nil {
		return nil, err
	}
	switch raw.Kind {
	case "passthrough":
		return PassthroughVertex{}, nil
	case "spirv", "binary":
		stage, err := parseStage(raw.Stage)
		if err != nil {
			return nil, err
		}
		if raw.Path == "" {
			return nil, fmt.Errorf("%s pass requires a path", raw.Kind)
		}
		if raw.Kind == "binary" {
			return BinaryPass{Stage: stage, Path: raw.Path}, nil
		}
		return SpirvPass{Stage: stage, Path: raw.Path}, nil
	default:
		return nil, fmt.Errorf("unknown pass kind %q", raw.Kind)
	}
}

func decodeVertexDatum(m json.RawMessage) (VertexDatum, error) {
	var raw struct {
		Kind       string   `json:"kind"`
		Location   uint32   `json:"location"`
		Format     string   `json:"format"`
		X          float32  `json:"x"`
		Y          float32  `json:"y"`
		Z          float32  `json:"z"`
		W          float32  `json:"w"`
		R          uint8    `json:"r"`
		G          uint8    `json:"g"`
		B          uint8    `json:"b"`
		Value      string   `json:"value"`
		Components []string `json:"components"`
	}
	if err := json.Unmarshal(m, &raw); err != nil {
		return nil, err
	}
	switch raw.Kind {
	case "attribute":
		return AttributeFormat{Location: raw.Location, Format: raw.Format}, nil
	case "vec2":
		return Vec2{X: raw.X, Y: raw.Y}, nil
	case "vec3":
		return Vec3{X: raw.X, Y: raw.Y, Z: raw.Z}, nil
	case "vec4":
		return Vec4{X: raw.X, Y: raw.Y, Z: raw.Z, W: raw.W}, nil
	case "rgb":
		return RGB{R: raw.R, G: raw.G, B: raw.B}, nil
	case "hex":
		return Hex{Value: raw.Value}, nil
	case "components":
		return Components{Values: raw.Components}, nil
	default:
		return nil, fmt.Errorf("unknown vertex data kind %q", raw.Kind)
	}
}

func decodeOp(m json.RawMessage) (Op, error) {
	var raw struct {
		Kind      string    `json:"kind"`
		Name      string    `json:"name"`
		X         float32   `json:"x"`
		Y         float32   `json:"y"`
		Primitive string    `json:"primitive"`
		First     uint32    `json:"first"`
		Count     uint32    `json:"count"`
		Binding   uint32    `json:"binding"`
		Set       *uint32   `json:"set"`
		Size      *uint32   `json:"size"`
		Data      []byte    `json:"data"`
		Type      string    `json:"type"`
		Offset    uint32    `json:"offset"`
		Values    []string  `json:"values"`
		Buffer    string    `json:"buffer"`
		Layout    string    `json:"layout"`
		Probe     string    `json:"probe"`
		Format    string    `json:"format"`
		Args      []string  `json:"args"`
		Margins   []float32 `json:"margins"`
		Enable    bool      `json:"enable"`
		Op        string    `json:"op"`
		Face      string    `json:"face"`
		Value     string    `json:"value"`
		Reference uint32    `json:"reference"`
		Mask      string    `json:"mask"`
		Mode      string    `json:"mode"`
		Width     float32   `json:"width"`
		Height    float32   `json:"height"`
		Feature   string    `json:"feature"`
		Params    []string  `json:"params"`
		GridX     uint32    `json:"grid_x"`
		GridY     uint32    `json:"grid_y"`
		GridZ     uint32    `json:"grid_z"`
	}
	if err := json.Unmarshal(m, &raw); err != nil {
		return nil, err
	}
	binding := SetBinding{Set: raw.Set, Binding: raw.Binding}
	switch raw.Kind {
	case "vertex_entrypoint":
		return VertexEntrypoint{Name: raw.Name}, nil
	case "fragment_entrypoint":
		return FragmentEntrypoint{Name: raw.Name}, nil
	case "compute_entrypoint":
		return ComputeEntrypoint{Name: raw.Name}, nil
	case "geometry_entrypoint":
		return GeometryEntrypoint{Name: raw.Name}, nil
	case "draw_rect":
		return DrawRect{X: raw.X, Y: raw.Y, W: raw.Width, H: raw.Height}, nil
	case "draw_arrays":
		return DrawArrays{Primitive: raw.Primitive, First: raw.First, Count: raw.Count}, nil
	case "draw_arrays_indexed":
		return DrawArraysIndexed{Primitive: raw.Primitive, First: raw.First, Count: raw.Count}, nil
	case "ssbo":
		return SSBO{Binding: binding, Size: raw.Size, Data: raw.Data}, nil
	case "ssbo_subdata":
		return SSBOSubData{Binding: binding, Type: raw.Type, Offset: raw.Offset, Values: raw.Values}, nil
	case "ubo":
		return UBO{Binding: binding, Data: raw.Data}, nil
	case "ubo_subdata":
		return UBOSubData{Binding: binding, Type: raw.Type, Offset: raw.Offset, Values: raw.Values}, nil
	case "buffer_layout":
		return BufferLayout{Buffer: raw.Buffer, Layout: raw.Layout}, nil
	case "push":
		return Push{Type: raw.Type, Offset: raw.Offset, Values: raw.Values}, nil
	case "push_layout":
		return PushLayout{Layout: raw.Layout}, nil
	case "compute":
		return Compute{X: raw.GridX, Y: raw.GridY, Z: raw.GridZ}, nil
	case "probe":
		return Probe{Kind: raw.Probe, Format: raw.Format, Args: raw.Args}, nil
	case "relative_probe":
		return RelativeProbe{Kind: raw.Probe, Format: raw.Format, Args: raw.Args}, nil
	case "tolerance":
		return Tolerance{Values: raw.Margins}, nil
	case "clear":
		return Clear{}, nil
	case "depth_test_enable":
		return DepthTestEnable{Enable: raw.Enable}, nil
	case "depth_write_enable":
		return DepthWriteEnable{Enable: raw.Enable}, nil
	case "depth_compare_op":
		return DepthCompareOp{Op: raw.Op}, nil
	case "stencil_test_enable":
		return StencilTestEnable{Enable: raw.Enable}, nil
	case "front_face":
		return FrontFace{Mode: raw.Mode}, nil
	case "stencil_op":
		return StencilOp{Face: raw.Face, OpName: raw.Op, Value: raw.Value}, nil
	case "stencil_reference":
		return StencilReference{Face: raw.Face, Value: raw.Reference}, nil
	case "stencil_compare_op":
		return StencilCompareOp{Face: raw.Face, Op: raw.Op}, nil
	case "color_write_mask":
		return ColorWriteMask{Mask: raw.Mask}, nil
	case "logic_op_enable":
		return LogicOpEnable{Enable: raw.Enable}, nil
	case "logic_op":
		return LogicOp{Op: raw.Op}, nil
	case "cull_mode":
		return CullMode{Mode: raw.Mode}, nil
	case "line_width":
		return LineWidth{Width: raw.Width}, nil
	case "require":
		return Require{Feature: raw.Feature, Params: raw.Params}, nil
	default:
		return nil, fmt.Errorf("unknown test operation kind %q", raw.Kind)
	}
}

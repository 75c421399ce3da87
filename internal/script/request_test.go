package script

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseRequest_CompileUnits(t *testing.T) {
	req, err := ParseRequest([]byte(`{
		"requests": [
			{"stage": "vert", "source": "void main() {}", "output": "vert.spvasm"},
			{"stage": "frag", "language": "glsl", "source": "void main() {}", "output": "frag.spvasm"},
			{"stage": "comp", "language": "wgsl", "source": "@compute fn main() {}", "output": "comp.hex"}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	want := []CompileUnit{
		{Stage: StageVertex, Language: LangGLSL, Source: "void main() {}", Destination: "vert.spvasm"},
		{Stage: StageFragment, Language: LangGLSL, Source: "void main() {}", Destination: "frag.spvasm"},
		{Stage: StageCompute, Language: LangWGSL, Source: "@compute fn main() {}", Destination: "comp.hex"},
	}
	if !reflect.DeepEqual(req.Units, want) {
		t.Errorf("units mismatch:\ngot:  %+v\nwant: %+v", req.Units, want)
	}
}

func TestParseRequest_UnknownStage(t *testing.T) {
	_, err := ParseRequest([]byte(`{"requests": [{"stage": "mesh", "source": "", "output": "x"}]}`))
	if err == nil || !strings.Contains(err.Error(), "unknown shader stage") {
		t.Errorf("expected an unknown-stage error, got %v", err)
	}
}

func TestParseRequest_MissingOutput(t *testing.T) {
	_, err := ParseRequest([]byte(`{"requests": [{"stage": "vert", "source": ""}]}`))
	if err == nil || !strings.Contains(err.Error(), "output path is required") {
		t.Errorf("expected a missing-output error, got %v", err)
	}
}

func TestParseRequest_Requirements(t *testing.T) {
	req, err := ParseRequest([]byte(`{
		"requirements": [
			{"kind": "cooperative_matrix", "m": 16, "n": 8, "component_type": "float16"},
			{"kind": "depth_stencil", "format": "D24_UNORM_S8_UINT"},
			{"kind": "framebuffer", "format": "B8G8R8A8_UNORM"},
			{"kind": "shader_float64"},
			{"kind": "geometry_shader"},
			{"kind": "wide_lines"},
			{"kind": "logic_op"},
			{"kind": "subgroup_size", "size": 8},
			{"kind": "fragment_stores_and_atomics"},
			{"kind": "buffer_device_address"}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	want := []Requirement{
		ReqCooperativeMatrix{M: 16, N: 8, ComponentType: "float16"},
		ReqDepthStencil{Format: "D24_UNORM_S8_UINT"},
		ReqFramebuffer{Format: "B8G8R8A8_UNORM"},
		ReqShaderFloat64{},
		ReqGeometryShader{},
		ReqWideLines{},
		ReqLogicOp{},
		ReqSubgroupSize{Size: 8},
		ReqFragmentStoresAndAtomics{},
		ReqBufferDeviceAddress{},
	}
	if !reflect.DeepEqual(req.Requirements, want) {
		t.Errorf("requirements mismatch:\ngot:  %+v\nwant: %+v", req.Requirements, want)
	}
}

func TestParseRequest_Passes(t *testing.T) {
	req, err := ParseRequest([]byte(`{
		"passes": [
			{"kind": "passthrough"},
			{"kind": "spirv", "stage": "frag", "path": "frag.spvasm"},
			{"kind": "binary", "stage": "comp", "path": "comp.hex"}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	want := []Pass{
		PassthroughVertex{},
		SpirvPass{Stage: StageFragment, Path: "frag.spvasm"},
		BinaryPass{Stage: StageCompute, Path: "comp.hex"},
	}
	if !reflect.DeepEqual(req.Passes, want) {
		t.Errorf("passes mismatch:\ngot:  %+v\nwant: %+v", req.Passes, want)
	}
}

func TestParseRequest_PassWithoutPath(t *testing.T) {
	_, err := ParseRequest([]byte(`{"passes": [{"kind": "spirv", "stage": "frag"}]}`))
	if err == nil || !strings.Contains(err.Error(), "requires a path") {
		t.Errorf("expected a missing-path error, got %v", err)
	}
}

func TestParseRequest_VertexData(t *testing.T) {
	req, err := ParseRequest([]byte(`{
		"vertex_data": [
			{"kind": "attribute", "location": 0, "format": "R32G32_SFLOAT"},
			{"kind": "vec2", "x": -1, "y": 0.5},
			{"kind": "vec3", "x": 1, "y": 2, "z": 3},
			{"kind": "vec4", "x": 1, "y": 2, "z": 3, "w": 4},
			{"kind": "rgb", "r": 255, "g": 0, "b": 128},
			{"kind": "hex", "value": "0xffff0000"},
			{"kind": "components", "components": ["1", "2"]}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	want := []VertexDatum{
		AttributeFormat{Location: 0, Format: "R32G32_SFLOAT"},
		Vec2{X: -1, Y: 0.5},
		Vec3{X: 1, Y: 2, Z: 3},
		Vec4{X: 1, Y: 2, Z: 3, W: 4},
		RGB{R: 255, G: 0, B: 128},
		Hex{Value: "0xffff0000"},
		Components{Values: []string{"1", "2"}},
	}
	if !reflect.DeepEqual(req.VertexData, want) {
		t.Errorf("vertex data mismatch:\ngot:  %+v\nwant: %+v", req.VertexData, want)
	}
}

func TestParseRequest_Ops(t *testing.T) {
	// "AQL/" is base64 for the bytes 1, 2, 255.
	req, err := ParseRequest([]byte(`{
		"tests": [
			{"kind": "clear"},
			{"kind": "draw_rect", "x": -1, "y": -1, "width": 2, "height": 2},
			{"kind": "draw_arrays", "primitive": "TRIANGLE_LIST", "first": 0, "count": 6},
			{"kind": "ssbo", "set": 2, "binding": 3, "size": 1024},
			{"kind": "ssbo", "binding": 0, "data": "AQL/"},
			{"kind": "ubo_subdata", "binding": 5, "type": "float", "offset": 4, "values": ["3.5"]},
			{"kind": "compute", "grid_x": 4, "grid_y": 2, "grid_z": 1},
			{"kind": "probe", "probe": "all", "format": "rgba", "args": ["0", "1", "0", "1"]},
			{"kind": "tolerance", "margins": [0.01, 0.01, 0.01, 0.01]},
			{"kind": "stencil_op", "face": "front", "op": "passOp", "value": "VK_STENCIL_OP_REPLACE"},
			{"kind": "stencil_reference", "face": "front", "reference": 42},
			{"kind": "line_width", "width": 2.5},
			{"kind": "require", "feature": "subgroup_size", "params": ["8"]}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	size := uint32(1024)
	want := []Op{
		Clear{},
		DrawRect{X: -1, Y: -1, W: 2, H: 2},
		DrawArrays{Primitive: "TRIANGLE_LIST", First: 0, Count: 6},
		SSBO{Binding: InSet(2, 3), Size: &size},
		SSBO{Binding: Binding(0), Data: []byte{1, 2, 255}},
		UBOSubData{Binding: Binding(5), Type: "float", Offset: 4, Values: []string{"3.5"}},
		Compute{X: 4, Y: 2, Z: 1},
		Probe{Kind: "all", Format: "rgba", Args: []string{"0", "1", "0", "1"}},
		Tolerance{Values: []float32{0.01, 0.01, 0.01, 0.01}},
		StencilOp{Face: "front", OpName: "passOp", Value: "VK_STENCIL_OP_REPLACE"},
		StencilReference{Face: "front", Value: 42},
		LineWidth{Width: 2.5},
		Require{Feature: "subgroup_size", Params: []string{"8"}},
	}
	if len(req.Ops) != len(want) {
		t.Fatalf("decoded %d ops, want %d", len(req.Ops), len(want))
	}
	for i := range want {
		if !reflect.DeepEqual(req.Ops[i], want[i]) {
			t.Errorf("ops[%d] mismatch:\ngot:  %+v\nwant: %+v", i, req.Ops[i], want[i])
		}
	}
}

func TestParseRequest_UnknownOpKind(t *testing.T) {
	_, err := ParseRequest([]byte(`{"tests": [{"kind": "warp_drive"}]}`))
	if err == nil || !strings.Contains(err.Error(), "unknown test operation kind") {
		t.Errorf("expected an unknown-kind error, got %v", err)
	}
}

func TestParseRequest_ReplacementsAndOutput(t *testing.T) {
	req, err := ParseRequest([]byte(`{
		"token_replacements": [{"token": "WIDTH", "replacement": "250"}],
		"output_path": "/tmp/out.png"
	}`))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	if len(req.Replacements) != 1 || req.Replacements[0].Token != "WIDTH" || req.Replacements[0].Replacement != "250" {
		t.Errorf("replacements mismatch: %+v", req.Replacements)
	}
	if req.OutputImage != "/tmp/out.png" {
		t.Errorf("output image = %q, want /tmp/out.png", req.OutputImage)
	}
}

func TestParseRequest_MalformedJSON(t *testing.T) {
	if _, err := ParseRequest([]byte(`{"tests": [`)); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

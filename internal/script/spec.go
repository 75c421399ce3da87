package script

import (
	"fmt"
	"strconv"
)

// Spec is the in-memory specification of one shader test. It is pure data;
// the serializer turns it into script text without reordering, deduplicating
// or validating cross-references.
type Spec struct {
	// Requirements become lines of a single leading [require] section.
	// An empty list omits the section entirely.
	Requirements []Requirement

	// Passes become one section each, in input order.
	Passes []Pass

	// VertexData becomes the [vertex data] section. Absent data omits the
	// section.
	VertexData []VertexDatum

	// Ops become the mandatory [test] section, one line per operation,
	// executed by the engine strictly in declaration order.
	Ops []Op
}

// Requirement is one entry of the [require] section. The variant set is
// closed; each case maps to exactly one script line.
type Requirement interface {
	isRequirement()
}

// ReqCooperativeMatrix requires cooperative matrix support with the given
// dimensions and component type.
type ReqCooperativeMatrix struct {
	M, N          uint32
	ComponentType string
}

// ReqDepthStencil requires a specific depth/stencil buffer format.
type ReqDepthStencil struct{ Format string }

// ReqFramebuffer requires a specific framebuffer format.
type ReqFramebuffer struct{ Format string }

// ReqShaderFloat64 requires double-precision float support in shaders.
type ReqShaderFloat64 struct{}

// ReqGeometryShader requires geometry shader support.
type ReqGeometryShader struct{}

// ReqWideLines requires line widths greater than 1.0.
type ReqWideLines struct{}

// ReqLogicOp requires framebuffer logic operations.
type ReqLogicOp struct{}

// ReqSubgroupSize requires a specific subgroup size.
type ReqSubgroupSize struct{ Size uint32 }

// ReqFragmentStoresAndAtomics requires stores and atomics in fragment shaders.
type ReqFragmentStoresAndAtomics struct{}

// ReqBufferDeviceAddress requires raw buffer address support.
type ReqBufferDeviceAddress struct{}

func (ReqCooperativeMatrix) isRequirement()        {}
func (ReqDepthStencil) isRequirement()             {}
func (ReqFramebuffer) isRequirement()              {}
func (ReqShaderFloat64) isRequirement()            {}
func (ReqGeometryShader) isRequirement()           {}
func (ReqWideLines) isRequirement()                {}
func (ReqLogicOp) isRequirement()                  {}
func (ReqSubgroupSize) isRequirement()             {}
func (ReqFragmentStoresAndAtomics) isRequirement() {}
func (ReqBufferDeviceAddress) isRequirement()      {}

// Pass binds one compiled stage artifact, or the built-in passthrough vertex
// shader, into the pipeline under construction.
type Pass interface {
	isPass()
}

// PassthroughVertex selects the engine's built-in pass-through vertex shader.
// It emits no file body.
type PassthroughVertex struct{}

// SpirvPass references a compiled SPIR-V assembly artifact by path. The
// section body is the verbatim text of the referenced artifact.
type SpirvPass struct {
	Stage Stage
	Path  string
}

// BinaryPass references a compiled SPIR-V binary artifact stored as
// whitespace-separated hexadecimal words. The section body is the verbatim
// text of the referenced artifact.
type BinaryPass struct {
	Stage Stage
	Path  string
}

func (PassthroughVertex) isPass() {}
func (SpirvPass) isPass()         {}
func (BinaryPass) isPass()        {}

// VertexDatum is one line of the [vertex data] section: either an attribute
// format declaration opening a new attribute stream, or one data record.
// A format declaration and the records that follow it belong to the same
// attribute; the grammar is positional, so order is preserved exactly.
type VertexDatum interface {
	isVertexDatum()
}

// AttributeFormat declares an attribute at a shader location with a named
// data format, written as "location/format".
type AttributeFormat struct {
	Location uint32
	Format   string
}

// Vec2 is a two-component float record.
type Vec2 struct{ X, Y float32 }

// Vec3 is a three-component float record.
type Vec3 struct{ X, Y, Z float32 }

// Vec4 is a four-component float record.
type Vec4 struct{ X, Y, Z, W float32 }

// RGB is a byte-triple color record.
type RGB struct{ R, G, B uint8 }

// Hex is a packed color record written as a single hex literal
// (e.g. "0xffff0000").
type Hex struct{ Value string }

// Components is a generic record of preformatted component values,
// interpreted by the attribute's declared format.
type Components struct{ Values []string }

func (AttributeFormat) isVertexDatum() {}
func (Vec2) isVertexDatum()            {}
func (Vec3) isVertexDatum()            {}
func (Vec4) isVertexDatum()            {}
func (RGB) isVertexDatum()             {}
func (Hex) isVertexDatum()             {}
func (Components) isVertexDatum()      {}

// SetBinding addresses a buffer binding, optionally scoped to a descriptor
// set. When Set is nil the engine's default set 0 applies and no "set:"
// prefix is emitted.
type SetBinding struct {
	Set     *uint32
	Binding uint32
}

// InSet returns a SetBinding scoped to an explicit descriptor set.
func InSet(set, binding uint32) SetBinding {
	return SetBinding{Set: &set, Binding: binding}
}

// Binding returns a SetBinding in the default descriptor set.
func Binding(binding uint32) SetBinding {
	return SetBinding{Binding: binding}
}

func (b SetBinding) String() string {
	if b.Set != nil {
		return fmt.Sprintf("%d:%d", *b.Set, b.Binding)
	}
	return strconv.FormatUint(uint64(b.Binding), 10)
}

// Op is one test operation. The variant set is closed; each case maps to one
// formatted line of the [test] section (some with a variable-length tail of
// value tokens, never split across lines).
type Op interface {
	isOp()
}

// VertexEntrypoint selects the vertex shader entrypoint function.
type VertexEntrypoint struct{ Name string }

// FragmentEntrypoint selects the fragment shader entrypoint function.
type FragmentEntrypoint struct{ Name string }

// ComputeEntrypoint selects the compute shader entrypoint function.
type ComputeEntrypoint struct{ Name string }

// GeometryEntrypoint selects the geometry shader entrypoint function.
type GeometryEntrypoint struct{ Name string }

// DrawRect draws a rectangle in normalized device coordinates.
type DrawRect struct{ X, Y, W, H float32 }

// DrawArrays draws primitives from the vertex data.
type DrawArrays struct {
	Primitive string
	First     uint32
	Count     uint32
}

// DrawArraysIndexed draws primitives using indexed vertex data.
type DrawArraysIndexed struct {
	Primitive string
	First     uint32
	Count     uint32
}

// SSBO creates a shader storage buffer, either sized or initialized with
// payload bytes. A payload is written as a subdata byte store at offset 0;
// an SSBO with neither size nor data emits nothing.
type SSBO struct {
	Binding SetBinding
	Size    *uint32
	Data    []byte
}

// SSBOSubData updates a sub-range of a storage buffer.
type SSBOSubData struct {
	Binding SetBinding
	Type    string
	Offset  uint32
	Values  []string
}

// UBO creates a uniform buffer initialized with payload bytes, written as a
// subdata byte store at offset 0.
type UBO struct {
	Binding SetBinding
	Data    []byte
}

// UBOSubData updates a sub-range of a uniform buffer.
type UBOSubData struct {
	Binding SetBinding
	Type    string
	Offset  uint32
	Values  []string
}

// BufferLayout sets the memory layout for a buffer class ("ubo" or "ssbo").
type BufferLayout struct {
	Buffer string
	Layout string
}

// Push writes push-constant values.
type Push struct {
	Type   string
	Offset uint32
	Values []string
}

// PushLayout sets the push-constant memory layout.
type PushLayout struct{ Layout string }

// Compute dispatches a compute grid of workgroups.
type Compute struct{ X, Y, Z uint32 }

// Probe verifies rendered or buffer contents at absolute coordinates.
type Probe struct {
	Kind   string
	Format string
	Args   []string
}

// RelativeProbe verifies rendered contents at normalized (0-1) coordinates.
type RelativeProbe struct {
	Kind   string
	Format string
	Args   []string
}

// Tolerance sets the error margin for subsequent probe comparisons.
type Tolerance struct{ Values []float32 }

// Clear clears the framebuffer to its default values.
type Clear struct{}

// DepthTestEnable toggles depth testing.
type DepthTestEnable struct{ Enable bool }

// DepthWriteEnable toggles depth buffer writes.
type DepthWriteEnable struct{ Enable bool }

// DepthCompareOp sets the depth comparison function.
type DepthCompareOp struct{ Op string }

// StencilTestEnable toggles stencil testing.
type StencilTestEnable struct{ Enable bool }

// FrontFace sets the front-facing winding order.
type FrontFace struct{ Mode string }

// StencilOp configures one stencil operation for a face, written as
// "face.opName value".
type StencilOp struct {
	Face   string
	OpName string
	Value  string
}

// StencilReference sets the stencil reference value for a face.
type StencilReference struct {
	Face  string
	Value uint32
}

// StencilCompareOp sets the stencil comparison function for a face.
type StencilCompareOp struct {
	Face string
	Op   string
}

// ColorWriteMask restricts which color channels are written.
type ColorWriteMask struct{ Mask string }

// LogicOpEnable toggles framebuffer logic operations.
type LogicOpEnable struct{ Enable bool }

// LogicOp sets the framebuffer logic operation.
type LogicOp struct{ Op string }

// CullMode sets the face culling mode.
type CullMode struct{ Mode string }

// LineWidth sets the width of line primitives.
type LineWidth struct{ Width float32 }

// Require declares an inline feature requirement inside the [test] section.
type Require struct {
	Feature string
	Params  []string
}

func (VertexEntrypoint) isOp()   {}
func (FragmentEntrypoint) isOp() {}
func (ComputeEntrypoint) isOp()  {}
func (GeometryEntrypoint) isOp() {}
func (DrawRect) isOp()           {}
func (DrawArrays) isOp()         {}
func (DrawArraysIndexed) isOp()  {}
func (SSBO) isOp()               {}
func (SSBOSubData) isOp()        {}
func (UBO) isOp()                {}
func (UBOSubData) isOp()         {}
func (BufferLayout) isOp()       {}
func (Push) isOp()               {}
func (PushLayout) isOp()         {}
func (Compute) isOp()            {}
func (Probe) isOp()              {}
func (RelativeProbe) isOp()      {}
func (Tolerance) isOp()          {}
func (Clear) isOp()              {}
func (DepthTestEnable) isOp()    {}
func (DepthWriteEnable) isOp()   {}
func (DepthCompareOp) isOp()     {}
func (StencilTestEnable) isOp()  {}
func (FrontFace) isOp()          {}
func (StencilOp) isOp()          {}
func (StencilReference) isOp()   {}
func (StencilCompareOp) isOp()   {}
func (ColorWriteMask) isOp()     {}
func (LogicOpEnable) isOp()      {}
func (LogicOp) isOp()            {}
func (CullMode) isOp()           {}
func (LineWidth) isOp()          {}
func (Require) isOp()            {}

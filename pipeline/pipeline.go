// Package pipeline holds the read-only pipeline build state the glue
// generators query: target hardware info, vertex input descriptions,
// per-stage resource usage, shader modes, and the active-stage mask.
//
// A State is assembled by the pipeline build orchestrator before
// generation and is treated as immutable by the generators, except for
// the explicit registration points (stage mask, copy-shader interface
// data and collected output sizes).
package pipeline

import "github.com/gogpu/lgc/ir"

// ShaderStage identifies an API or internal shader stage.
type ShaderStage uint8

// Shader stages. StageCopyShader is the internal stage synthesized by
// the copy-shader pass.
const (
	StageVertex ShaderStage = iota
	StageTessControl
	StageTessEval
	StageGeometry
	StageFragment
	StageCompute
	StageCopyShader

	StageCount
)

var stageNames = [...]string{
	StageVertex:      "vertex",
	StageTessControl: "tess-control",
	StageTessEval:    "tess-eval",
	StageGeometry:    "geometry",
	StageFragment:    "fragment",
	StageCompute:     "compute",
	StageCopyShader:  "copy-shader",
}

// String returns the stage name.
func (s ShaderStage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "invalid"
}

// MaxGsStreams is the number of geometry-shader output streams the
// hardware supports.
const MaxGsStreams = 4

// InvalidValue marks unset location/stream fields.
const InvalidValue = ^uint32(0)

// GfxIPVersion identifies the target hardware generation.
type GfxIPVersion struct {
	Major uint32
	Minor uint32
}

// TargetInfo describes the target GPU.
type TargetInfo struct {
	GfxIP GfxIPVersion
}

// EntryPointName returns the linker-visible symbol name of a hardware
// entry point for the given calling convention. The fetchless variant
// names the main vertex shader a fetch glue shader is the prolog for:
// the glue shader itself takes over the plain hardware entry symbol.
func EntryPointName(cc ir.CallingConv, fetchlessVs bool) string {
	var name string
	switch cc {
	case ir.CallConvAMDGPULS:
		name = "_amdgpu_ls_main"
	case ir.CallConvAMDGPUHS:
		name = "_amdgpu_hs_main"
	case ir.CallConvAMDGPUES:
		name = "_amdgpu_es_main"
	case ir.CallConvAMDGPUGS:
		name = "_amdgpu_gs_main"
	case ir.CallConvAMDGPUVS:
		name = "_amdgpu_vs_main"
	case ir.CallConvAMDGPUPS:
		name = "_amdgpu_ps_main"
	case ir.CallConvAMDGPUCS:
		name = "_amdgpu_cs_main"
	default:
		name = "_amdgpu_main"
	}
	if fetchlessVs {
		name += "_fetchless"
	}
	return name
}

// BuiltInKind identifies a shader built-in output.
type BuiltInKind uint32

// Built-in outputs handled by the copy shader, in hardware export order.
const (
	BuiltInPosition BuiltInKind = iota
	BuiltInPointSize
	BuiltInClipDistance
	BuiltInCullDistance
	BuiltInPrimitiveID
	BuiltInLayer
	BuiltInViewportIndex
	BuiltInViewIndex
)

var builtInNames = [...]string{
	BuiltInPosition:      "Position",
	BuiltInPointSize:     "PointSize",
	BuiltInClipDistance:  "ClipDistance",
	BuiltInCullDistance:  "CullDistance",
	BuiltInPrimitiveID:   "PrimitiveId",
	BuiltInLayer:         "Layer",
	BuiltInViewportIndex: "ViewportIndex",
	BuiltInViewIndex:     "ViewIndex",
}

// String returns the built-in name used for call mangling.
func (b BuiltInKind) String() string {
	if int(b) < len(builtInNames) {
		return builtInNames[b]
	}
	return "Invalid"
}

// UserDataMapping identifies special user-data SGPR contents requested
// through placeholder calls. The values share a number space with
// ShaderInputKind across the call-name prefix, so they start high.
type UserDataMapping uint32

// Special user-data inputs the fetch glue resolves.
const (
	UserDataVertexBufferTable UserDataMapping = 0x10000003
	UserDataBaseVertex        UserDataMapping = 0x10000004
	UserDataBaseInstance      UserDataMapping = 0x10000005
)

// ShaderInputKind identifies hardware-provided shader inputs requested
// through placeholder calls.
type ShaderInputKind uint32

// Shader inputs the fetch glue resolves.
const (
	ShaderInputVertexID ShaderInputKind = iota
	ShaderInputInstanceID
)

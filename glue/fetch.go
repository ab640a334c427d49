package glue

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gogpu/lgc/ir"
	"github.com/gogpu/lgc/pipeline"
)

// VertexFetchInfo describes one vertex attribute a fetchless vertex
// shader consumes: where it is declared and the type it expects.
type VertexFetchInfo struct {
	Location  uint32
	Component uint32
	Type      ir.Type
}

// VsEntryRegInfo describes the register layout of the target vertex
// shader's entry function: how many scalar and vector dispatch
// registers it takes and at which indices the special ones live.
// Scalar register indices count from the start of the argument list;
// vector register indices count from the end of the scalar registers.
type VsEntryRegInfo struct {
	CallConv  ir.CallingConv
	SgprCount uint32
	VgprCount uint32

	// SGPR indices.
	VertexBufferTable uint32
	BaseVertex        uint32
	BaseInstance      uint32

	// VGPR indices.
	VertexID   uint32
	InstanceID uint32

	Wave32 bool // main shader runs in wave32 rather than wave64
}

// FetchShader generates the glue shader that loads vertex attributes
// from descriptor-described buffers and threads the wave dispatch
// registers through, for pipelines whose vertex shader was compiled
// without vertex fetch. All pipeline-state queries happen at
// construction; Generate only reads the captured data.
type FetchShader struct {
	fetcher      VertexFetcher
	fetches      []VertexFetchInfo
	regInfo      VsEntryRegInfo
	descriptions []*pipeline.VertexInputDescription
	gfxIPMajor   uint32

	fingerprint []byte
}

// NewFetchShader creates a fetch-shader generator. The attribute
// descriptions are resolved from state immediately; an attribute with
// no description keeps a nil entry and fetches nothing.
func NewFetchShader(state *pipeline.State, fetcher VertexFetcher, fetches []VertexFetchInfo, regInfo VsEntryRegInfo) *FetchShader {
	s := &FetchShader{
		fetcher:    fetcher,
		fetches:    append([]VertexFetchInfo(nil), fetches...),
		regInfo:    regInfo,
		gfxIPMajor: state.TargetInfo().GfxIP.Major,
	}
	for _, fetch := range s.fetches {
		s.descriptions = append(s.descriptions, state.FindVertexInputDescription(fetch.Location))
	}
	return s
}

// Fingerprint returns the cache key for this fetch shader: a canonical
// little-endian serialization of every fetch request, the entry
// register layout, and every resolved attribute description (a single
// zero byte stands in for an absent description). Computed lazily and
// memoized.
func (s *FetchShader) Fingerprint() []byte {
	if s.fingerprint != nil {
		return s.fingerprint
	}

	var buf bytes.Buffer
	for _, fetch := range s.fetches {
		writeU32(&buf, fetch.Location)
		writeU32(&buf, fetch.Component)
		name := fetch.Type.String()
		writeU32(&buf, uint32(len(name)))
		buf.WriteString(name)
	}

	writeU32(&buf, uint32(s.regInfo.CallConv))
	writeU32(&buf, s.regInfo.SgprCount)
	writeU32(&buf, s.regInfo.VgprCount)
	writeU32(&buf, s.regInfo.VertexBufferTable)
	writeU32(&buf, s.regInfo.BaseVertex)
	writeU32(&buf, s.regInfo.BaseInstance)
	writeU32(&buf, s.regInfo.VertexID)
	writeU32(&buf, s.regInfo.InstanceID)
	writeBool(&buf, s.regInfo.Wave32)
	writeU32(&buf, s.gfxIPMajor)

	for _, desc := range s.descriptions {
		if desc == nil {
			buf.WriteByte(0)
			continue
		}
		buf.WriteByte(1)
		writeU32(&buf, desc.Location)
		writeU32(&buf, desc.Binding)
		writeU32(&buf, desc.Offset)
		writeU32(&buf, desc.Stride)
		writeU32(&buf, desc.DataFmt)
		writeU32(&buf, desc.NumFmt)
		writeU32(&buf, uint32(desc.InputRate))
		writeU32(&buf, desc.Divisor)
	}

	s.fingerprint = buf.Bytes()
	return s.fingerprint
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

// MainShaderName returns the symbol of the fetchless vertex shader this
// glue shader is the prolog for.
func (s *FetchShader) MainShaderName() string {
	return pipeline.EntryPointName(s.regInfo.CallConv, true)
}

// Generate builds the fetch shader module: the dispatch-register
// pass-through function, one attribute fetch per request, and the
// patched special inputs the fetch lowering asked for.
func (s *FetchShader) Generate() (*ir.Module, error) {
	m, fn, ret := s.createFetchFunc()

	b := ir.NewBuilder(m.Context)
	b.SetInsertPointBefore(ret)
	result := ret.Operands[0]
	retTy := result.Type().(*ir.StructType)

	// Fetch each vertex input. An absent description means the
	// attribute slot is unused: no load, slot left unbound.
	for idx, fetch := range s.fetches {
		desc := s.descriptions[idx]
		if desc == nil {
			continue
		}
		structIdx := uint32(idx) + s.regInfo.SgprCount + s.regInfo.VgprCount

		vertex, err := s.fetcher.FetchVertex(b, fetch.Type, desc, fetch.Location, fetch.Component)
		if err != nil {
			return nil, fmt.Errorf("fetch location %d: %w", fetch.Location, err)
		}
		b.SetInsertPointBefore(ret)
		vertex = b.CreateBitCast(vertex, retTy.Fields[structIdx])
		result = b.CreateInsertValue(result, vertex, structIdx)
	}
	ret.SetOperand(0, result)

	// Hook up the special inputs. The fetch lowering left its uses of
	// the vertex buffer table, base vertex/instance and vertex/instance
	// ID as placeholder calls.
	if err := s.patchPlaceholders(m, fn, b); err != nil {
		return nil, err
	}

	return m, nil
}

// createFetchFunc creates the module and function, containing only the
// code that copies the wave dispatch SGPRs and VGPRs to the return
// value. Returns the module, the function, and its return instruction.
func (s *FetchShader) createFetchFunc() (*ir.Module, *ir.Function, *ir.Instruction) {
	ctx := ir.NewContext()
	m := ir.NewModule("fetchShader", ctx)

	// The function takes the wave dispatch SGPRs and VGPRs and returns
	// a record of those same registers plus one slot per fetch. Slots
	// that must land in VGPRs are float-typed so the backend allocates
	// vector registers; the inputs mirror that for symmetry.
	regCount := s.regInfo.SgprCount + s.regInfo.VgprCount
	types := make([]ir.Type, 0, regCount+uint32(len(s.fetches)))
	for i := uint32(0); i < s.regInfo.SgprCount; i++ {
		types = append(types, ctx.Int32Type())
	}
	for i := uint32(0); i < s.regInfo.VgprCount; i++ {
		types = append(types, ctx.FloatType())
	}
	for _, fetch := range s.fetches {
		types = append(types, vgprType(ctx, fetch.Type))
	}
	retTy := ctx.StructType(types...)

	fn := ir.NewFunction(pipeline.EntryPointName(s.regInfo.CallConv, false),
		ctx.FunctionType(retTy, types[:regCount]...))
	fn.CallConv = s.regInfo.CallConv
	m.AddFunction(fn)

	for i := uint32(0); i < s.regInfo.SgprCount; i++ {
		fn.Arg(int(i)).InReg = true
	}

	// Mnemonic argument names, for IR readability only.
	fn.Arg(int(s.regInfo.VertexBufferTable)).Name = "VertexBufferTable"
	fn.Arg(int(s.regInfo.BaseVertex)).Name = "BaseVertex"
	fn.Arg(int(s.regInfo.BaseInstance)).Name = "BaseInstance"
	fn.Arg(int(s.regInfo.SgprCount + s.regInfo.VertexID)).Name = "VertexId"
	fn.Arg(int(s.regInfo.SgprCount + s.regInfo.InstanceID)).Name = "InstanceId"

	if s.gfxIPMajor >= 10 {
		// Fetch and main shader code execute in lanes of the same
		// width, so match the main vertex shader's wave size.
		if s.regInfo.Wave32 {
			fn.SetAttr("target-features", "+wavefrontsize32")
		} else {
			fn.SetAttr("target-features", "+wavefrontsize64")
		}
	}

	entry := fn.AddBlock("")
	b := ir.NewBuilder(ctx)
	b.SetInsertPointAtEnd(entry)

	if s.regInfo.CallConv == ir.CallConvAMDGPUHS || s.regInfo.CallConv == ir.CallConvAMDGPUGS {
		// The vertex shader is the first half of a merged stage (LS-HS
		// or ES-GS), whose launch activates a variable subset of lanes.
		// The vertex count lands in the low 8 bits of s3 for both.
		const mergedWaveInfoSgpr = 3
		b.CreateNamedCall(pipeline.NameInitExecFromInput, ctx.VoidType(),
			fn.Arg(mergedWaveInfoSgpr), b.Int32(0))
	}

	retVal := ir.Value(b.Undef(retTy))
	for i := uint32(0); i < regCount; i++ {
		retVal = b.CreateInsertValue(retVal, fn.Arg(int(i)), i)
	}
	ret := b.CreateRet(retVal)

	return m, fn, ret
}

// patchPlaceholders resolves the placeholder calls the fetch lowering
// left for special user data and shader inputs.
func (s *FetchShader) patchPlaceholders(m *ir.Module, fn *ir.Function, b *ir.Builder) error {
	ctx := m.Context
	extender := ir.NewAddressExtender(fn)

	for _, decl := range m.Functions {
		if !decl.IsDeclaration() {
			continue
		}
		isUserData := strings.HasPrefix(decl.Name, pipeline.NameSpecialUserData)
		isShaderInput := strings.HasPrefix(decl.Name, pipeline.NameShaderInput)
		if !isUserData && !isShaderInput {
			continue
		}

		var calls []*ir.Instruction
		for _, bb := range fn.Blocks {
			for _, inst := range bb.Insts {
				if inst.Op == ir.OpCall && inst.Callee == decl {
					calls = append(calls, inst)
				}
			}
		}

		for _, call := range calls {
			id, ok := call.Operands[0].(*ir.ConstInt)
			if !ok {
				return fmt.Errorf("%s: non-constant input ID: %w", decl.Name, pipeline.ErrInvariant)
			}

			var replacement ir.Value
			switch {
			case isUserData:
				switch pipeline.UserDataMapping(id.Val) {
				case pipeline.UserDataVertexBufferTable:
					// The 32-bit vertex buffer table address extends to
					// 64 bits with a runtime-supplied high half.
					high := call.Operands[1]
					b.SetInsertPointAtStart(fn.EntryBlock())
					replacement = extender.Extend(b,
						fn.Arg(int(s.regInfo.VertexBufferTable)), high, call.Type())
				case pipeline.UserDataBaseVertex:
					replacement = fn.Arg(int(s.regInfo.BaseVertex))
				case pipeline.UserDataBaseInstance:
					replacement = fn.Arg(int(s.regInfo.BaseInstance))
				}
			case isShaderInput:
				switch pipeline.ShaderInputKind(id.Val) {
				case pipeline.ShaderInputVertexID:
					b.SetInsertPointAtStart(fn.EntryBlock())
					replacement = b.CreateBitCast(
						fn.Arg(int(s.regInfo.SgprCount+s.regInfo.VertexID)), ctx.Int32Type())
				case pipeline.ShaderInputInstanceID:
					b.SetInsertPointAtStart(fn.EntryBlock())
					replacement = b.CreateBitCast(
						fn.Arg(int(s.regInfo.SgprCount+s.regInfo.InstanceID)), ctx.Int32Type())
				}
			}
			if replacement == nil {
				return fmt.Errorf("unexpected special input %#x requested through %s: %w",
					id.Val, decl.Name, pipeline.ErrInvariant)
			}

			ir.ReplaceAllUses(fn, call, replacement)
			call.EraseFromParent()
		}
	}
	return nil
}

// vgprType maps a fetched value's type to the float-typed equivalent
// used in the return record, so the backend assigns vector registers.
func vgprType(ctx *ir.Context, ty ir.Type) ir.Type {
	switch t := ty.(type) {
	case *ir.VectorType:
		return ctx.VectorType(vgprType(ctx, t.Elem), t.Count)
	case *ir.IntType:
		if t.Bits == 16 {
			return ctx.HalfType()
		}
		return ctx.FloatType()
	default:
		return ty
	}
}

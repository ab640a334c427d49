// Package copyshader generates the copy shader: the hardware vertex
// shader that reads geometry-shader emitted vertices back from the
// GS-VS ring and re-exports them as the rasterizer-facing outputs,
// including transform-feedback writes and multi-stream selection.
package copyshader

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gogpu/lgc/ir"
	"github.com/gogpu/lgc/pipeline"
)

// EntryPointName is the symbol of the generated copy shader.
const EntryPointName = "lgc.shader.COPY.main"

// Entry argument indices. The first ten arguments are SGPRs; the
// per-vertex offset is the sole VGPR-class argument.
const (
	argInternalTablePtrLow = 0 // low half of the global internal table pointer
	argStreamInfo          = 4
	argStreamOutWriteIndex = 5
	argStreamOffset0       = 6
	argVertexOffset        = 10

	sgprArgCount = 10
)

// vsRingInTableSlot is the slot of the GS-VS ring input descriptor in
// the driver's internal descriptor table; each slot is 16 bytes.
const vsRingInTableSlot = 8

// coherentGlcSlc requests globally-coherent, system-level-coherent
// buffer loads (glc bit 0, slc bit 1).
const coherentGlcSlc = 0x3

// ringAccess is the addressing mode of GS-VS ring reads, selected once
// per pipeline. Mixing modes silently produces wrong offsets, so every
// load dispatches on this variant.
type ringAccess interface {
	ringAccess()
}

// ringOnChip reads the ring from on-chip LDS.
type ringOnChip struct {
	lds         *ir.GlobalVariable
	esGsLdsSize uint32
}

func (*ringOnChip) ringAccess() {}

// ringOffChip reads the ring through a buffer descriptor.
type ringOffChip struct {
	desc           ir.Value
	outputVertices uint32
}

func (*ringOffChip) ringAccess() {}

// ringDeferred defers addressing to the primitive-shader (NGG)
// generation stage, which finalizes it after culling/compaction.
type ringDeferred struct{}

func (*ringDeferred) ringAccess() {}

// Pass generates the copy shader for a module, when one is required.
type Pass struct {
	state *pipeline.State
	usage *pipeline.ResourceUsage
	entry *ir.Function
	ring  ringAccess
}

// New creates a copy-shader generation pass.
func New() *Pass {
	return &Pass{}
}

// RunOnModule inspects the module for a geometry-shader entry point;
// without one it returns (false, nil) and leaves the module untouched.
// Otherwise it synthesizes the copy-shader entry function, registers
// the copy-shader stage in the pipeline's active-stage mask, and
// returns (true, nil). Errors wrap pipeline.ErrInvariant and indicate
// a bug in an earlier pipeline stage.
func (p *Pass) RunOnModule(m *ir.Module, state *pipeline.State) (bool, error) {
	gsEntryPoint := m.EntryPoint(int(pipeline.StageGeometry))
	if gsEntryPoint == nil {
		// No geometry shader, no copy shader required.
		return false, nil
	}

	p.state = state
	p.usage = state.ShaderResourceUsage(pipeline.StageCopyShader)

	if err := p.collectGsGenericOutputInfo(gsEntryPoint); err != nil {
		return false, err
	}

	ctx := m.Context
	int32Ty := ctx.Int32Type()

	// Ten SGPRs carrying table pointers, stream info, stream-out state
	// and per-stream offsets, plus the per-vertex offset.
	params := make([]ir.Type, sgprArgCount+1)
	for i := range params {
		params[i] = int32Ty
	}
	entry := ir.NewFunction(EntryPointName, ctx.FunctionType(ctx.VoidType(), params...))
	entry.CallConv = ir.CallConvAMDGPUVS
	entry.ExecModel = int(pipeline.StageCopyShader)
	for i := 0; i < sgprArgCount; i++ {
		entry.Arg(i).InReg = true
	}
	p.entry = entry

	// Insert before the fragment shader when there is one.
	m.InsertFunctionBefore(entry, m.EntryPoint(int(pipeline.StageFragment)))

	entryBlock := entry.AddBlock("")
	endBlock := entry.AddBlock(".end")

	b := ir.NewBuilder(ctx)
	b.SetInsertPointAtEnd(endBlock)
	b.CreateRetVoid()
	b.SetInsertPointAtEnd(entryBlock)

	// Which SGPR carries the stream-out table pointer and which the
	// ES-GS LDS size swaps at GFX9.
	intfData := state.ShaderInterfaceData(pipeline.StageCopyShader)
	if state.TargetInfo().GfxIP.Major <= 8 {
		intfData.UserDataUsage.GS.CopyShaderStreamOutTable = 2
		intfData.UserDataUsage.GS.CopyShaderEsGsLdsSize = 3
	} else {
		intfData.UserDataUsage.GS.CopyShaderStreamOutTable = 3
		intfData.UserDataUsage.GS.CopyShaderEsGsLdsSize = 2
	}

	p.ring = p.selectRingAccess(m, b)

	// Count the active streams and find the first one.
	outputStreamCount := uint32(0)
	outputStreamID := pipeline.InvalidValue
	for i := uint32(0); i < pipeline.MaxGsStreams; i++ {
		if p.usage.InOutUsage.GS.OutLocCount[i] > 0 {
			outputStreamCount++
			if outputStreamID == pipeline.InvalidValue {
				outputStreamID = i
			}
		}
	}

	if outputStreamCount > 1 && p.usage.InOutUsage.EnableXfb {
		// With several active streams and transform feedback on, the
		// stream to copy is selected at run time: streamInfo[25:24].
		streamID := b.CreateNamedCall(pipeline.NameUbfe, int32Ty,
			entry.Arg(argStreamInfo), b.Int32(24), b.Int32(2))

		// Unmatched selector values fall through to the end block with
		// no export.
		sw := b.CreateSwitch(streamID, endBlock, int(outputStreamCount))

		for stream := uint32(0); stream < pipeline.MaxGsStreams; stream++ {
			if p.usage.InOutUsage.GS.OutLocCount[stream] == 0 {
				continue
			}
			streamBlock := entry.InsertBlockBefore(".stream"+strconv.Itoa(int(stream)), endBlock)
			sw.AddCase(uint64(stream), streamBlock)

			b.SetInsertPointAtEnd(streamBlock)
			if err := p.exportOutput(stream, b); err != nil {
				return false, err
			}
			b.CreateBr(endBlock)
		}
	} else {
		if outputStreamCount == 0 {
			outputStreamID = 0
		}
		if err := p.exportOutput(outputStreamID, b); err != nil {
			return false, err
		}
		b.CreateBr(endBlock)
	}

	state.SetStageMask(state.StageMask() | 1<<uint32(pipeline.StageCopyShader))
	return true, nil
}

// collectGsGenericOutputInfo scans the geometry shader for generic
// output export calls and builds the per-stream byte-size table the
// export phase reads back from the ring.
func (p *Pass) collectGsGenericOutputInfo(gsEntryPoint *ir.Function) error {
	sizes := &p.usage.InOutUsage.GS.GenericOutByteSizes

	for _, bb := range gsEntryPoint.Blocks {
		for _, inst := range bb.Insts {
			if inst.Op != ir.OpCall || inst.Callee == nil {
				continue
			}
			if !strings.HasPrefix(inst.Callee.Name, pipeline.NameOutputExportGeneric) {
				continue
			}
			if len(inst.Operands) != 4 {
				return fmt.Errorf("generic export call %s has %d operands, want 4: %w",
					inst.Callee.Name, len(inst.Operands), pipeline.ErrInvariant)
			}

			value, err := constOperand(inst, 0)
			if err != nil {
				return err
			}
			compIdx, err := constOperand(inst, 1)
			if err != nil {
				return err
			}
			streamID, err := constOperand(inst, 2)
			if err != nil {
				return err
			}
			if compIdx >= 4 {
				return fmt.Errorf("generic export component %d out of range: %w",
					compIdx, pipeline.ErrInvariant)
			}
			if streamID >= pipeline.MaxGsStreams {
				return fmt.Errorf("generic export stream %d out of range: %w",
					streamID, pipeline.ErrInvariant)
			}

			outLocInfo := pipeline.GsOutLocInfo{Location: value, StreamID: streamID}
			location, ok := p.usage.InOutUsage.OutputLocMap[outLocInfo]
			if !ok {
				continue
			}

			output := inst.Operands[3]
			outputTy := output.Type()
			compCount := ir.ComponentCount(outputTy)
			bitWidth := ir.ScalarBits(outputTy)
			if bitWidth == 0 {
				return fmt.Errorf("generic export of non-numeric type %s: %w",
					outputTy, pipeline.ErrInvariant)
			}
			// The ring stores everything dword-aligned, so sub-32-bit
			// components occupy a full dword each.
			if bitWidth < 32 {
				bitWidth = 32
			}
			byteSize := bitWidth / 8 * compCount

			if sizes[streamID] == nil {
				sizes[streamID] = make(map[uint32][4]uint32)
			}
			entry := sizes[streamID][location]
			entry[compIdx] = byteSize
			sizes[streamID][location] = entry
		}
	}
	return nil
}

// selectRingAccess picks the ring addressing mode for this pipeline:
// deferred for NGG, LDS for on-chip, a descriptor-based buffer
// otherwise. The descriptor load is emitted at the current insertion
// point.
func (p *Pass) selectRingAccess(m *ir.Module, b *ir.Builder) ringAccess {
	if p.state.NggControl().EnableNgg {
		return &ringDeferred{}
	}
	calcFactor := &p.usage.InOutUsage.GS.CalcFactor
	if p.state.IsGsOnChip() {
		return &ringOnChip{
			lds:         ldsVariable(m, calcFactor.GsOnChipLdsSize),
			esGsLdsSize: calcFactor.EsGsLdsSize,
		}
	}
	return &ringOffChip{
		desc:           p.loadRingBufferDescriptor(b),
		outputVertices: p.state.ShaderModes().Geometry.OutputVertices,
	}
}

// ldsVariable returns the module's LDS block, creating it when absent.
func ldsVariable(m *ir.Module, sizeInDwords uint32) *ir.GlobalVariable {
	if g := m.Global("lds"); g != nil {
		return g
	}
	ctx := m.Context
	return m.NewGlobal("lds", ctx.ArrayType(ctx.Int32Type(), sizeInDwords), ir.AddrSpaceLDS, 4)
}

// loadRingBufferDescriptor loads the GS-VS ring buffer descriptor from
// the driver's internal descriptor table. The table address is the
// program counter's high half over the low half passed in SGPR 0.
func (p *Pass) loadRingBufferDescriptor(b *ir.Builder) ir.Value {
	ctx := b.Context()
	extender := ir.NewAddressExtender(p.entry)

	tablePtrLow := p.entry.Arg(argInternalTablePtrLow)
	tableAddr := extender.ExtendToInt64(b, tablePtrLow, extender.PCHigh(b))
	descAddr := b.CreateAdd(tableAddr, b.Int64(uint64(vsRingInTableSlot)<<4))

	descTy := ctx.VectorType(ctx.Int32Type(), 4)
	descPtr := b.CreateIntToPtr(descAddr, ctx.PointerType(descTy, ir.AddrSpaceConst))
	// The descriptor address is the same in every lane.
	descPtr.Uniform = true

	// The descriptor never changes during the invocation; both marks
	// are correctness/performance requirements for the backend.
	desc := b.CreateAlignedLoad(descTy, descPtr, 16)
	desc.Invariant = true
	desc.Uniform = true
	return desc
}

// exportOutput emits the full export sequence for one stream: generic
// outputs first, then built-ins in hardware export order.
func (p *Pass) exportOutput(streamID uint32, b *ir.Builder) error {
	ctx := b.Context()
	builtInUsage := &p.usage.BuiltInUsage
	inOutUsage := &p.usage.InOutUsage

	// Generic outputs, in location order for deterministic emission.
	byteSizeMap := inOutUsage.GS.GenericOutByteSizes[streamID]
	locations := make([]uint32, 0, len(byteSizeMap))
	for location := range byteSizeMap {
		locations = append(locations, location)
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i] < locations[j] })

	for _, location := range locations {
		byteSize := uint32(0)
		for _, compSize := range byteSizeMap[location] {
			byteSize += compSize
		}
		if byteSize%4 != 0 {
			return fmt.Errorf("location %d stream %d: byte size %d not dword-aligned: %w",
				location, streamID, byteSize, pipeline.ErrInvariant)
		}
		dwordSize := byteSize / 4

		loadTy := ctx.FloatType()
		if dwordSize > 1 {
			loadTy = ctx.VectorType(ctx.FloatType(), dwordSize)
		}
		output, err := p.loadValueFromGsVsRing(loadTy, location, streamID, b)
		if err != nil {
			return err
		}
		if err := p.exportGenericOutput(output, location, streamID, b); err != nil {
			return err
		}
	}

	// Built-in outputs, in the fixed hardware order.
	type builtInOut struct {
		kind pipeline.BuiltInKind
		ty   ir.Type
	}
	var builtIns []builtInOut

	if builtInUsage.Position {
		builtIns = append(builtIns, builtInOut{pipeline.BuiltInPosition, ctx.VectorType(ctx.FloatType(), 4)})
	}
	if builtInUsage.PointSize {
		builtIns = append(builtIns, builtInOut{pipeline.BuiltInPointSize, ctx.FloatType()})
	}
	if builtInUsage.ClipDistance > 0 {
		builtIns = append(builtIns, builtInOut{pipeline.BuiltInClipDistance,
			ctx.ArrayType(ctx.FloatType(), builtInUsage.ClipDistance)})
	}
	if builtInUsage.CullDistance > 0 {
		builtIns = append(builtIns, builtInOut{pipeline.BuiltInCullDistance,
			ctx.ArrayType(ctx.FloatType(), builtInUsage.CullDistance)})
	}
	if builtInUsage.PrimitiveID {
		builtIns = append(builtIns, builtInOut{pipeline.BuiltInPrimitiveID, ctx.Int32Type()})
	}
	enableMultiView := p.state.InputAssemblyState().EnableMultiView
	if builtInUsage.Layer || enableMultiView {
		// With multi-view enabled the view index is exported in place
		// of the layer.
		kind := pipeline.BuiltInLayer
		if enableMultiView {
			kind = pipeline.BuiltInViewIndex
		}
		builtIns = append(builtIns, builtInOut{kind, ctx.Int32Type()})
	}
	if builtInUsage.ViewportIndex {
		builtIns = append(builtIns, builtInOut{pipeline.BuiltInViewportIndex, ctx.Int32Type()})
	}

	for _, builtIn := range builtIns {
		location, ok := inOutUsage.BuiltInOutputLocMap[builtIn.kind]
		if !ok {
			return fmt.Errorf("built-in %s has no output location: %w",
				builtIn.kind, pipeline.ErrInvariant)
		}
		output, err := p.loadValueFromGsVsRing(builtIn.ty, location, streamID, b)
		if err != nil {
			return err
		}
		if err := p.exportBuiltInOutput(output, builtIn.kind, streamID, b); err != nil {
			return err
		}
	}

	// Rasterization needs a position even when the geometry shader only
	// feeds transform feedback: synthesize (0, 0, 0, 1).
	if inOutUsage.EnableXfb && !builtInUsage.Position {
		zero := b.Float32(0)
		one := b.Float32(1)
		dummyPos := &ir.ConstVector{
			Ty:    ctx.VectorType(ctx.FloatType(), 4),
			Elems: []ir.Value{zero, zero, zero, one},
		}
		if err := p.exportBuiltInOutput(dummyPos, pipeline.BuiltInPosition, streamID, b); err != nil {
			return err
		}
	}

	return nil
}

// calcGsVsRingOffsetForInput computes the ring read offset of one
// dword of an output.
func (p *Pass) calcGsVsRingOffsetForInput(location, compIdx uint32, b *ir.Builder) ir.Value {
	vertexOffset := p.entry.Arg(argVertexOffset)

	switch ring := p.ring.(type) {
	case *ringOnChip:
		// ringOffset = esGsLdsSize + vertexOffset + location*4 + compIdx
		ringOffset := b.CreateAdd(b.Int32(ring.esGsLdsSize), vertexOffset)
		return b.CreateAdd(ringOffset, b.Int32(location*4+compIdx))
	case *ringOffChip:
		// ringOffset = vertexOffset*4 + (location*4 + compIdx)*64*maxVertices
		ringOffset := b.CreateMul(vertexOffset, b.Int32(4))
		return b.CreateAdd(ringOffset, b.Int32((location*4+compIdx)*64*ring.outputVertices))
	default:
		panic("copyshader: ring offset computed in deferred addressing mode")
	}
}

// loadValueFromGsVsRing loads one output's value from the GS-VS ring.
// Only 32-bit scalars and 32-bit-element vectors/arrays are legal load
// types; narrower data was widened to dwords when written.
func (p *Pass) loadValueFromGsVsRing(loadTy ir.Type, location, streamID uint32, b *ir.Builder) (ir.Value, error) {
	ctx := b.Context()

	if _, deferred := p.ring.(*ringDeferred); deferred {
		// For NGG the import stays abstract: the primitive-shader stage
		// determines final addressing once culling is finalized.
		call := b.CreateNamedCall(pipeline.NameNggGsOutputImport+loadTy.String(), loadTy,
			b.Int32(location), b.Int32(0), b.Int32(streamID))
		return call, nil
	}

	elemCount := ir.ComponentCount(loadTy)
	elemTy := ir.ScalarElem(loadTy)
	if ir.ScalarBits(elemTy) != 32 {
		return nil, fmt.Errorf("ring load of %s: element type must be 32-bit: %w",
			loadTy, pipeline.ErrInvariant)
	}

	switch ring := p.ring.(type) {
	case *ringOnChip:
		ringOffset := p.calcGsVsRingOffsetForInput(location, 0, b)
		loadPtr := b.CreateGEP(ring.lds, b.Int32(0), ringOffset)
		loadPtr = b.CreateBitCast(loadPtr, ctx.PointerType(loadTy, ir.AddrSpaceLDS))
		return b.CreateAlignedLoad(loadTy, loadPtr, ring.lds.Align), nil

	case *ringOffChip:
		loadValue := ir.Value(b.Undef(loadTy))
		for i := uint32(0); i < elemCount; i++ {
			ringOffset := p.calcGsVsRingOffsetForInput(location+i/4, i%4, b)
			loadElem := b.CreateNamedCall(pipeline.NameRawBufferLoad+elemTy.String(), elemTy,
				ring.desc, ringOffset, b.Int32(0), b.Int32(coherentGlcSlc))

			switch loadTy.(type) {
			case *ir.ArrayType:
				loadValue = b.CreateInsertValue(loadValue, loadElem, i)
			case *ir.VectorType:
				loadValue = b.CreateInsertElement(loadValue, loadElem, i)
			default:
				loadValue = loadElem
			}
		}
		return loadValue, nil

	default:
		panic("copyshader: unhandled ring access mode")
	}
}

// exportGenericOutput exports a generic output: a transform-feedback
// write when the output has a feedback target, and the rasterizer
// export when the stream is the rasterization stream.
func (p *Pass) exportGenericOutput(output ir.Value, location, streamID uint32, b *ir.Builder) error {
	inOutUsage := &p.usage.InOutUsage

	if inOutUsage.EnableXfb {
		// The feedback tables are keyed by the original declared
		// output; find it through the location remap.
		origLocInfo, found := pipeline.GsOutLocInfo{}, false
		for locInfo, mapped := range inOutUsage.OutputLocMap {
			if mapped == location && locInfo.StreamID == streamID && !locInfo.BuiltIn {
				origLocInfo, found = locInfo, true
				break
			}
		}
		if !found {
			return fmt.Errorf("no declared output maps to location %d stream %d: %w",
				location, streamID, pipeline.ErrInvariant)
		}

		if xfbInfo, ok := inOutUsage.GS.XfbOutsInfo[origLocInfo]; ok {
			value := output
			if xfbInfo.Is16Bit {
				value = repack16BitXfbValue(value, b)
			}
			b.CreateNamedCall(pipeline.NameOutputExportXfb+value.Type().String(), b.Context().VoidType(),
				b.Int32(xfbInfo.Buffer), b.Int32(xfbInfo.Offset), b.Int32(xfbInfo.ExtraOffset), value)
		}
	}

	if inOutUsage.GS.RasterStream == streamID {
		b.CreateNamedCall(pipeline.NameOutputExportGeneric+output.Type().String(), b.Context().VoidType(),
			b.Int32(location), output)
	}
	return nil
}

// exportBuiltInOutput exports a built-in output, mirroring
// exportGenericOutput for the built-in paths.
func (p *Pass) exportBuiltInOutput(output ir.Value, builtIn pipeline.BuiltInKind, streamID uint32, b *ir.Builder) error {
	inOutUsage := &p.usage.InOutUsage

	if inOutUsage.EnableXfb {
		outLocInfo := pipeline.GsOutLocInfo{
			Location: uint32(builtIn),
			BuiltIn:  true,
			StreamID: streamID,
		}
		if xfbInfo, ok := inOutUsage.GS.XfbOutsInfo[outLocInfo]; ok {
			b.CreateNamedCall(pipeline.NameOutputExportXfb+output.Type().String(), b.Context().VoidType(),
				b.Int32(xfbInfo.Buffer), b.Int32(xfbInfo.Offset), b.Int32(0), output)
		}
	}

	if inOutUsage.GS.RasterStream == streamID {
		b.CreateNamedCall(pipeline.NameOutputExportBuiltIn+builtIn.String(), b.Context().VoidType(),
			b.Int32(uint32(builtIn)), output)
	}
	return nil
}

// repack16BitXfbValue converts a ring value holding 16-bit data to the
// half-precision type the feedback buffer stores. The ring widened the
// data to full dwords with a zero high half, so the conversion is a
// truncation to 16 bits reinterpreted as half; without it the feedback
// write would store 4 bytes per component instead of 2.
func repack16BitXfbValue(value ir.Value, b *ir.Builder) ir.Value {
	ctx := b.Context()
	compCount := ir.ComponentCount(value.Type())
	if compCount > 1 {
		value = b.CreateBitCast(value, ctx.VectorType(ctx.Int32Type(), compCount))
		value = b.CreateTrunc(value, ctx.VectorType(ctx.Int16Type(), compCount))
		return b.CreateBitCast(value, ctx.VectorType(ctx.HalfType(), compCount))
	}
	value = b.CreateBitCast(value, ctx.Int32Type())
	value = b.CreateTrunc(value, ctx.Int16Type())
	return b.CreateBitCast(value, ctx.HalfType())
}

func constOperand(inst *ir.Instruction, idx int) (uint32, error) {
	c, ok := inst.Operands[idx].(*ir.ConstInt)
	if !ok {
		return 0, fmt.Errorf("%s: operand %d is not a constant: %w",
			inst.Callee.Name, idx, pipeline.ErrInvariant)
	}
	return uint32(c.Val), nil
}

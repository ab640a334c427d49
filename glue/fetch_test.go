package glue

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/lgc/ir"
	"github.com/gogpu/lgc/pipeline"
)

// stubFetcher returns an undef of the requested type. When special is
// set it requests the vertex buffer table and the vertex ID through
// placeholder calls, the way a real ISA-lowering collaborator would.
type stubFetcher struct {
	special   bool
	unknownID uint64
	calls     int
}

func (f *stubFetcher) FetchVertex(b *ir.Builder, ty ir.Type, desc *pipeline.VertexInputDescription, location, component uint32) (ir.Value, error) {
	f.calls++
	ctx := b.Context()
	if f.unknownID != 0 {
		b.CreateNamedCall(pipeline.NameSpecialUserData+"Unknown", ctx.Int32Type(),
			b.Int32(uint32(f.unknownID)), b.Int32(0))
	}
	if f.special {
		tableTy := ctx.PointerType(ctx.VectorType(ctx.Int32Type(), 4), ir.AddrSpaceConst)
		b.CreateNamedCall(pipeline.NameSpecialUserData+"VertexBufferTable", tableTy,
			b.Int32(uint32(pipeline.UserDataVertexBufferTable)), b.Int32(0xFFFF8000))
		b.CreateNamedCall(pipeline.NameShaderInput+"VertexId", ctx.Int32Type(),
			b.Int32(uint32(pipeline.ShaderInputVertexID)))
	}
	return b.Undef(ty), nil
}

func testState(gfxMajor uint32, descs ...pipeline.VertexInputDescription) *pipeline.State {
	st := pipeline.NewState(pipeline.TargetInfo{
		GfxIP: pipeline.GfxIPVersion{Major: gfxMajor},
	})
	st.SetVertexInputDescriptions(descs)
	return st
}

func testRegInfo() VsEntryRegInfo {
	return VsEntryRegInfo{
		CallConv:          ir.CallConvAMDGPUVS,
		SgprCount:         2,
		VgprCount:         2,
		VertexBufferTable: 0,
		BaseVertex:        0,
		BaseInstance:      1,
		VertexID:          0,
		InstanceID:        1,
		Wave32:            true,
	}
}

func testFetches(ctx *ir.Context) []VertexFetchInfo {
	return []VertexFetchInfo{
		{Location: 0, Component: 0, Type: ctx.VectorType(ctx.FloatType(), 4)},
		{Location: 1, Component: 0, Type: ctx.Int32Type()},
	}
}

func testDesc(location uint32) pipeline.VertexInputDescription {
	return pipeline.VertexInputDescription{
		Location: location,
		Binding:  location,
		Stride:   16,
		DataFmt:  14,
		NumFmt:   7,
	}
}

func TestFetchShader_FingerprintStable(t *testing.T) {
	ctx := ir.NewContext()
	st := testState(10, testDesc(0), testDesc(1))

	s1 := NewFetchShader(st, &stubFetcher{}, testFetches(ctx), testRegInfo())
	s2 := NewFetchShader(st, &stubFetcher{}, testFetches(ctx), testRegInfo())

	if !bytes.Equal(s1.Fingerprint(), s2.Fingerprint()) {
		t.Errorf("Expected identical configurations to produce identical fingerprints")
	}

	// Memoized: repeated calls return the same bytes
	if !bytes.Equal(s1.Fingerprint(), s1.Fingerprint()) {
		t.Errorf("Expected memoized fingerprint to be stable")
	}
}

func TestFetchShader_FingerprintDiffers(t *testing.T) {
	ctx := ir.NewContext()
	base := testState(10, testDesc(0), testDesc(1))

	ref := NewFetchShader(base, &stubFetcher{}, testFetches(ctx), testRegInfo())

	// A different fetch type
	fetches := testFetches(ctx)
	fetches[0].Type = ctx.VectorType(ctx.FloatType(), 2)
	diffType := NewFetchShader(base, &stubFetcher{}, fetches, testRegInfo())
	if bytes.Equal(ref.Fingerprint(), diffType.Fingerprint()) {
		t.Errorf("Expected fingerprint to change with fetch type")
	}

	// A different register layout
	regInfo := testRegInfo()
	regInfo.Wave32 = false
	diffReg := NewFetchShader(base, &stubFetcher{}, testFetches(ctx), regInfo)
	if bytes.Equal(ref.Fingerprint(), diffReg.Fingerprint()) {
		t.Errorf("Expected fingerprint to change with wave size")
	}

	// A different attribute description
	changed := testDesc(0)
	changed.Stride = 32
	diffDesc := NewFetchShader(testState(10, changed, testDesc(1)),
		&stubFetcher{}, testFetches(ctx), testRegInfo())
	if bytes.Equal(ref.Fingerprint(), diffDesc.Fingerprint()) {
		t.Errorf("Expected fingerprint to change with attribute stride")
	}

	// An absent description
	absent := NewFetchShader(testState(10, testDesc(0)),
		&stubFetcher{}, testFetches(ctx), testRegInfo())
	if bytes.Equal(ref.Fingerprint(), absent.Fingerprint()) {
		t.Errorf("Expected fingerprint to change when a description is absent")
	}
}

func TestFetchShader_MainShaderName(t *testing.T) {
	ctx := ir.NewContext()
	st := testState(10, testDesc(0), testDesc(1))

	s := NewFetchShader(st, &stubFetcher{}, testFetches(ctx), testRegInfo())
	if got, want := s.MainShaderName(), "_amdgpu_vs_main_fetchless"; got != want {
		t.Errorf("Expected main shader name %q, got %q", want, got)
	}
}

func TestFetchShader_ReturnRecordLayout(t *testing.T) {
	ctx := ir.NewContext()
	st := testState(10, testDesc(0), testDesc(1))
	regInfo := testRegInfo()

	s := NewFetchShader(st, &stubFetcher{}, testFetches(ctx), regInfo)
	m, err := s.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	fn := m.Function(pipeline.EntryPointName(ir.CallConvAMDGPUVS, false))
	if fn == nil {
		t.Fatalf("Expected entry function %q", pipeline.EntryPointName(ir.CallConvAMDGPUVS, false))
	}

	// Record has one field per register plus one per fetch
	retTy, ok := fn.Sig.Ret.(*ir.StructType)
	if !ok {
		t.Fatalf("Expected struct return type, got %s", fn.Sig.Ret)
	}
	wantFields := int(regInfo.SgprCount+regInfo.VgprCount) + 2
	if len(retTy.Fields) != wantFields {
		t.Errorf("Expected %d record fields, got %d", wantFields, len(retTy.Fields))
	}

	// Register fields are pass-through copies of the matching inputs
	regCount := regInfo.SgprCount + regInfo.VgprCount
	passThrough := make(map[uint32]ir.Value)
	for _, bb := range fn.Blocks {
		for _, inst := range bb.Insts {
			if inst.Op == ir.OpInsertValue && inst.Indices[0] < regCount {
				passThrough[inst.Indices[0]] = inst.Operands[1]
			}
		}
	}
	for i := uint32(0); i < regCount; i++ {
		if passThrough[i] != ir.Value(fn.Arg(int(i))) {
			t.Errorf("Expected record field %d to pass through argument %d", i, i)
		}
	}

	// SGPR arguments carry the scalar-register attribute, VGPRs do not
	for i := 0; i < int(regCount); i++ {
		wantInReg := i < int(regInfo.SgprCount)
		if fn.Arg(i).InReg != wantInReg {
			t.Errorf("Expected argument %d InReg=%v", i, wantInReg)
		}
	}
}

func TestFetchShader_AbsentDescriptionSkipsFetch(t *testing.T) {
	ctx := ir.NewContext()
	// Only location 0 is bound; location 1 has no description
	st := testState(10, testDesc(0))
	regInfo := testRegInfo()
	fetcher := &stubFetcher{}

	s := NewFetchShader(st, fetcher, testFetches(ctx), regInfo)
	m, err := s.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if fetcher.calls != 1 {
		t.Errorf("Expected 1 fetch for the bound attribute, got %d", fetcher.calls)
	}

	// The unbound attribute's record slot is never written
	fn := m.Function(pipeline.EntryPointName(ir.CallConvAMDGPUVS, false))
	regCount := regInfo.SgprCount + regInfo.VgprCount
	written := make(map[uint32]bool)
	for _, bb := range fn.Blocks {
		for _, inst := range bb.Insts {
			if inst.Op == ir.OpInsertValue {
				written[inst.Indices[0]] = true
			}
		}
	}
	if !written[regCount+0] {
		t.Errorf("Expected bound fetch slot %d to be written", regCount)
	}
	if written[regCount+1] {
		t.Errorf("Expected unbound fetch slot %d to stay unwritten", regCount+1)
	}
}

func TestFetchShader_PatchesPlaceholders(t *testing.T) {
	ctx := ir.NewContext()
	st := testState(10, testDesc(0), testDesc(1))

	s := NewFetchShader(st, &stubFetcher{special: true}, testFetches(ctx), testRegInfo())
	m, err := s.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	fn := m.Function(pipeline.EntryPointName(ir.CallConvAMDGPUVS, false))
	var leftover []string
	sawIntToPtr := false
	for _, bb := range fn.Blocks {
		for _, inst := range bb.Insts {
			if inst.Op == ir.OpIntToPtr {
				sawIntToPtr = true
			}
			if inst.Op != ir.OpCall {
				continue
			}
			name := inst.Callee.Name
			if strings.HasPrefix(name, pipeline.NameSpecialUserData) ||
				strings.HasPrefix(name, pipeline.NameShaderInput) {
				leftover = append(leftover, name)
			}
		}
	}
	if len(leftover) != 0 {
		t.Errorf("Expected all placeholder calls patched, leftover: %v", leftover)
	}
	// The vertex buffer table placeholder resolves to an extended pointer
	if !sawIntToPtr {
		t.Errorf("Expected an address extension for the vertex buffer table")
	}
}

func TestFetchShader_UnknownSpecialInput(t *testing.T) {
	ctx := ir.NewContext()
	st := testState(10, testDesc(0), testDesc(1))

	s := NewFetchShader(st, &stubFetcher{unknownID: 0x12345}, testFetches(ctx), testRegInfo())
	_, err := s.Generate()
	if err == nil {
		t.Fatalf("Expected an error for an unknown special input")
	}
	if !errors.Is(err, pipeline.ErrInvariant) {
		t.Errorf("Expected error to wrap ErrInvariant, got %v", err)
	}
}

func TestFetchShader_WaveSizeAttribute(t *testing.T) {
	ctx := ir.NewContext()

	tests := []struct {
		gfxMajor uint32
		wave32   bool
		want     string
	}{
		{10, true, "+wavefrontsize32"},
		{10, false, "+wavefrontsize64"},
		{9, true, ""}, // wave size is fixed before gfx10
	}
	for _, tt := range tests {
		st := testState(tt.gfxMajor, testDesc(0), testDesc(1))
		regInfo := testRegInfo()
		regInfo.Wave32 = tt.wave32

		s := NewFetchShader(st, &stubFetcher{}, testFetches(ctx), regInfo)
		m, err := s.Generate()
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		fn := m.Function(pipeline.EntryPointName(ir.CallConvAMDGPUVS, false))
		if got := fn.Attr("target-features"); got != tt.want {
			t.Errorf("gfx%d wave32=%v: expected attr %q, got %q", tt.gfxMajor, tt.wave32, tt.want, got)
		}
	}
}

func TestFetchShader_MergedStageActivatesLanes(t *testing.T) {
	ctx := ir.NewContext()
	st := testState(10, testDesc(0), testDesc(1))
	regInfo := testRegInfo()
	regInfo.CallConv = ir.CallConvAMDGPUGS
	regInfo.SgprCount = 5

	s := NewFetchShader(st, &stubFetcher{}, testFetches(ctx), regInfo)
	m, err := s.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	fn := m.Function(pipeline.EntryPointName(ir.CallConvAMDGPUGS, false))
	first := fn.EntryBlock().Insts[0]
	if first.Op != ir.OpCall || first.Callee.Name != pipeline.NameInitExecFromInput {
		t.Errorf("Expected merged-stage entry to start with the exec-mask setup call")
	}
	if first.Operands[0] != ir.Value(fn.Arg(3)) {
		t.Errorf("Expected exec-mask setup to read the merged wave info register")
	}
}

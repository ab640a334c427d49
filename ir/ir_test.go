package ir

import (
	"testing"
)

func TestContext_TypeInterning(t *testing.T) {
	ctx := NewContext()

	// Structurally identical types compare equal as interface values
	v1 := ctx.VectorType(ctx.FloatType(), 4)
	v2 := ctx.VectorType(ctx.FloatType(), 4)
	if v1 != v2 {
		t.Errorf("Expected identical vector types to be interned, got %p and %p", v1, v2)
	}

	s1 := ctx.StructType(ctx.Int32Type(), ctx.FloatType())
	s2 := ctx.StructType(ctx.Int32Type(), ctx.FloatType())
	if s1 != s2 {
		t.Errorf("Expected identical struct types to be interned")
	}

	p1 := ctx.PointerType(ctx.Int32Type(), AddrSpaceLDS)
	p2 := ctx.PointerType(ctx.Int32Type(), AddrSpaceLDS)
	if p1 != p2 {
		t.Errorf("Expected identical pointer types to be interned")
	}
	p3 := ctx.PointerType(ctx.Int32Type(), AddrSpaceConst)
	if p1 == p3 {
		t.Errorf("Expected pointers in different address spaces to differ")
	}
}

func TestType_String(t *testing.T) {
	ctx := NewContext()

	tests := []struct {
		ty   Type
		want string
	}{
		{ctx.VoidType(), "void"},
		{ctx.Int32Type(), "i32"},
		{ctx.HalfType(), "f16"},
		{ctx.VectorType(ctx.FloatType(), 4), "v4f32"},
		{ctx.ArrayType(ctx.FloatType(), 2), "a2f32"},
		{ctx.StructType(ctx.Int32Type(), ctx.FloatType()), "{i32,f32}"},
		{ctx.PointerType(ctx.Int32Type(), AddrSpaceLDS), "p3i32"},
		{ctx.FunctionType(ctx.VoidType(), ctx.Int32Type()), "void(i32)"},
	}
	for _, tt := range tests {
		if got := tt.ty.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestType_Helpers(t *testing.T) {
	ctx := NewContext()

	if got := ComponentCount(ctx.VectorType(ctx.FloatType(), 3)); got != 3 {
		t.Errorf("Expected component count 3, got %d", got)
	}
	if got := ComponentCount(ctx.FloatType()); got != 1 {
		t.Errorf("Expected component count 1 for scalar, got %d", got)
	}
	if got := ScalarElem(ctx.ArrayType(ctx.Int32Type(), 8)); got != ctx.Int32Type() {
		t.Errorf("Expected array element i32, got %s", got)
	}
	if got := ScalarBits(ctx.VectorType(ctx.HalfType(), 2)); got != 16 {
		t.Errorf("Expected 16 scalar bits, got %d", got)
	}
	if got := ScalarBits(ctx.VoidType()); got != 0 {
		t.Errorf("Expected 0 scalar bits for void, got %d", got)
	}
}

func testFunction(ctx *Context) (*Module, *Function, *Builder) {
	m := NewModule("test", ctx)
	fn := NewFunction("f", ctx.FunctionType(ctx.VoidType(), ctx.Int32Type(), ctx.Int32Type()))
	m.AddFunction(fn)
	b := NewBuilder(ctx)
	b.SetInsertPointAtEnd(fn.AddBlock(""))
	return m, fn, b
}

func TestBuilder_BitCastSameTypeIsNoOp(t *testing.T) {
	ctx := NewContext()
	_, fn, b := testFunction(ctx)

	arg := fn.Arg(0)
	if got := b.CreateBitCast(arg, ctx.Int32Type()); got != Value(arg) {
		t.Errorf("Expected bitcast to same type to return the operand")
	}
	if n := len(fn.EntryBlock().Insts); n != 0 {
		t.Errorf("Expected no instructions emitted, got %d", n)
	}
}

func TestBuilder_GEPElementPointer(t *testing.T) {
	ctx := NewContext()
	m, _, b := testFunction(ctx)

	lds := m.NewGlobal("lds", ctx.ArrayType(ctx.Int32Type(), 16), AddrSpaceLDS, 4)
	ptr := b.CreateGEP(lds, b.Int32(0), b.Int32(5))

	want := ctx.PointerType(ctx.Int32Type(), AddrSpaceLDS)
	if ptr.Type() != want {
		t.Errorf("Expected GEP result type %s, got %s", want, ptr.Type())
	}
}

func TestBuilder_NamedCallDeclaresOnce(t *testing.T) {
	ctx := NewContext()
	m, _, b := testFunction(ctx)

	c1 := b.CreateNamedCall("lgc.test.op", ctx.Int32Type(), b.Int32(1))
	c2 := b.CreateNamedCall("lgc.test.op", ctx.Int32Type(), b.Int32(2))
	if c1.Callee != c2.Callee {
		t.Errorf("Expected both calls to share one declaration")
	}
	decl := m.Function("lgc.test.op")
	if decl == nil || !decl.IsDeclaration() {
		t.Fatalf("Expected a bodiless declaration for lgc.test.op")
	}
}

func TestBuilder_SwitchCases(t *testing.T) {
	ctx := NewContext()
	_, fn, b := testFunction(ctx)

	def := fn.AddBlock(".end")
	sw := b.CreateSwitch(fn.Arg(0), def, 2)
	sw.AddCase(0, fn.AddBlock(".s0"))
	sw.AddCase(2, fn.AddBlock(".s2"))

	if sw.Blocks[0] != def {
		t.Errorf("Expected Blocks[0] to be the default destination")
	}
	if len(sw.CaseValues) != 2 || sw.CaseValues[0] != 0 || sw.CaseValues[1] != 2 {
		t.Errorf("Expected case values [0 2], got %v", sw.CaseValues)
	}
	if len(sw.Blocks) != 3 {
		t.Errorf("Expected default plus 2 case destinations, got %d blocks", len(sw.Blocks))
	}
}

func TestReplaceAllUses(t *testing.T) {
	ctx := NewContext()
	_, fn, b := testFunction(ctx)

	sum := b.CreateAdd(fn.Arg(0), fn.Arg(1))
	use := b.CreateMul(sum, fn.Arg(0)).(*Instruction)

	repl := b.Int32(7)
	ReplaceAllUses(fn, sum, repl)

	if use.Operands[0] != Value(repl) {
		t.Errorf("Expected use operand replaced")
	}
	if use.Operands[1] != Value(fn.Arg(0)) {
		t.Errorf("Expected unrelated operand untouched")
	}
}

func TestInstruction_EraseFromParent(t *testing.T) {
	ctx := NewContext()
	_, fn, b := testFunction(ctx)

	inst := b.CreateAdd(fn.Arg(0), fn.Arg(1)).(*Instruction)
	inst.EraseFromParent()

	if inst.Block() != nil {
		t.Errorf("Expected erased instruction to have no parent block")
	}
	if n := len(fn.EntryBlock().Insts); n != 0 {
		t.Errorf("Expected empty block after erase, got %d instructions", n)
	}
}

func TestModule_EntryPoint(t *testing.T) {
	ctx := NewContext()
	m := NewModule("test", ctx)

	fn := NewFunction("gs", ctx.FunctionType(ctx.VoidType()))
	fn.ExecModel = 3
	m.AddFunction(fn)

	if got := m.EntryPoint(3); got != fn {
		t.Errorf("Expected to find entry point by execution model")
	}
	if got := m.EntryPoint(1); got != nil {
		t.Errorf("Expected nil for absent execution model, got %v", got)
	}
}

func TestAddressExtender_PCHighCached(t *testing.T) {
	ctx := NewContext()
	_, fn, b := testFunction(ctx)

	ext := NewAddressExtender(fn)
	h1 := ext.PCHigh(b)
	h2 := ext.PCHigh(b)
	if h1 != h2 {
		t.Errorf("Expected cached PC high half on repeated use")
	}

	// One getpc call regardless of how many extensions happen
	calls := 0
	for _, inst := range fn.EntryBlock().Insts {
		if inst.Op == OpCall && inst.Callee.Name == NameGetPC {
			calls++
		}
	}
	if calls != 1 {
		t.Errorf("Expected exactly 1 getpc call, got %d", calls)
	}
}

func TestAddressExtender_Extend(t *testing.T) {
	ctx := NewContext()
	_, fn, b := testFunction(ctx)

	ptrTy := ctx.PointerType(ctx.VectorType(ctx.Int32Type(), 4), AddrSpaceConst)
	ext := NewAddressExtender(fn)
	ptr := ext.Extend(b, fn.Arg(0), fn.Arg(1), ptrTy)

	if ptr.Type() != ptrTy {
		t.Errorf("Expected extended pointer type %s, got %s", ptrTy, ptr.Type())
	}
	last := fn.EntryBlock().Insts[len(fn.EntryBlock().Insts)-1]
	if last.Op != OpIntToPtr {
		t.Errorf("Expected trailing inttoptr, got %s", last.Op)
	}
}

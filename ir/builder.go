package ir

import "fmt"

// Builder emits instructions at an explicit insertion point.
// Create* methods insert the new instruction, advance the point past
// it, and return the instruction as a Value.
type Builder struct {
	ctx   *Context
	block *BasicBlock
	at    int
}

// NewBuilder creates a builder with no insertion point.
func NewBuilder(ctx *Context) *Builder {
	return &Builder{ctx: ctx}
}

// Context returns the builder's type context.
func (b *Builder) Context() *Context { return b.ctx }

// Block returns the block holding the insertion point.
func (b *Builder) Block() *BasicBlock { return b.block }

// SetInsertPointAtEnd moves the insertion point past the last
// instruction of bb.
func (b *Builder) SetInsertPointAtEnd(bb *BasicBlock) {
	b.block = bb
	b.at = len(bb.Insts)
}

// SetInsertPointAtStart moves the insertion point in front of the first
// instruction of bb.
func (b *Builder) SetInsertPointAtStart(bb *BasicBlock) {
	b.block = bb
	b.at = 0
}

// SetInsertPointBefore moves the insertion point in front of inst.
func (b *Builder) SetInsertPointBefore(inst *Instruction) {
	bb := inst.Block()
	if bb == nil {
		panic("ir: insertion point before erased instruction")
	}
	for i, in := range bb.Insts {
		if in == inst {
			b.block = bb
			b.at = i
			return
		}
	}
	panic("ir: instruction not found in its block")
}

func (b *Builder) insert(inst *Instruction) *Instruction {
	if b.block == nil {
		panic("ir: builder has no insertion point")
	}
	b.block.insertAt(b.at, inst)
	b.at++
	return inst
}

// Int32 returns an i32 constant.
func (b *Builder) Int32(v uint32) *ConstInt {
	return &ConstInt{Ty: b.ctx.Int32Type(), Val: uint64(v)}
}

// Int64 returns an i64 constant.
func (b *Builder) Int64(v uint64) *ConstInt {
	return &ConstInt{Ty: b.ctx.Int64Type(), Val: v}
}

// Float32 returns an f32 constant.
func (b *Builder) Float32(v float64) *ConstFloat {
	return &ConstFloat{Ty: b.ctx.FloatType(), Val: v}
}

// Undef returns an undefined value of the given type.
func (b *Builder) Undef(ty Type) *Undef { return &Undef{Ty: ty} }

// CreateAdd emits an integer addition.
func (b *Builder) CreateAdd(x, y Value) Value {
	return b.insert(&Instruction{Op: OpAdd, Ty: x.Type(), Operands: []Value{x, y}})
}

// CreateMul emits an integer multiplication.
func (b *Builder) CreateMul(x, y Value) Value {
	return b.insert(&Instruction{Op: OpMul, Ty: x.Type(), Operands: []Value{x, y}})
}

// CreateBitCast emits a bit-pattern-preserving cast to ty.
func (b *Builder) CreateBitCast(v Value, ty Type) Value {
	if v.Type() == ty {
		return v
	}
	return b.insert(&Instruction{Op: OpBitCast, Ty: ty, Operands: []Value{v}})
}

// CreateTrunc emits an integer truncation to ty.
func (b *Builder) CreateTrunc(v Value, ty Type) Value {
	return b.insert(&Instruction{Op: OpTrunc, Ty: ty, Operands: []Value{v}})
}

// CreateIntToPtr emits an integer-to-pointer conversion.
func (b *Builder) CreateIntToPtr(v Value, ty Type) *Instruction {
	return b.insert(&Instruction{Op: OpIntToPtr, Ty: ty, Operands: []Value{v}})
}

// CreateExtractElement emits a constant-indexed vector element read.
func (b *Builder) CreateExtractElement(vec Value, idx uint32) Value {
	vt, ok := vec.Type().(*VectorType)
	if !ok {
		panic("ir: extractelement on non-vector")
	}
	return b.insert(&Instruction{
		Op:       OpExtractElement,
		Ty:       vt.Elem,
		Operands: []Value{vec, b.Int32(idx)},
	})
}

// CreateInsertElement emits a constant-indexed vector element write.
func (b *Builder) CreateInsertElement(vec, elem Value, idx uint32) Value {
	return b.insert(&Instruction{
		Op:       OpInsertElement,
		Ty:       vec.Type(),
		Operands: []Value{vec, elem, b.Int32(idx)},
	})
}

// CreateInsertValue emits a record/array field write.
func (b *Builder) CreateInsertValue(agg, val Value, idx uint32) Value {
	return b.insert(&Instruction{
		Op:       OpInsertValue,
		Ty:       agg.Type(),
		Operands: []Value{agg, val},
		Indices:  []uint32{idx},
	})
}

// CreateExtractValue emits a record/array field read.
func (b *Builder) CreateExtractValue(agg Value, idx uint32) Value {
	var ty Type
	switch t := agg.Type().(type) {
	case *StructType:
		ty = t.Fields[idx]
	case *ArrayType:
		ty = t.Elem
	default:
		panic("ir: extractvalue on non-aggregate")
	}
	return b.insert(&Instruction{
		Op:       OpExtractValue,
		Ty:       ty,
		Operands: []Value{agg},
		Indices:  []uint32{idx},
	})
}

// CreateAlignedLoad emits a load of ty through ptr.
func (b *Builder) CreateAlignedLoad(ty Type, ptr Value, align uint32) *Instruction {
	return b.insert(&Instruction{
		Op:       OpLoad,
		Ty:       ty,
		Operands: []Value{ptr},
		Align:    align,
	})
}

// CreateGEP emits an element-pointer computation into a pointed-to
// array: base must be a pointer to an array, and the two indices are
// the pointer step (always 0 here) and the element index. The result
// points at one array element in base's address space.
func (b *Builder) CreateGEP(base Value, first, elem Value) Value {
	pt, ok := base.Type().(*PointerType)
	if !ok {
		panic("ir: getelementptr on non-pointer")
	}
	at, ok := pt.Elem.(*ArrayType)
	if !ok {
		panic("ir: getelementptr base does not point at an array")
	}
	return b.insert(&Instruction{
		Op:       OpGetElementPtr,
		Ty:       b.ctx.PointerType(at.Elem, pt.Space),
		Operands: []Value{base, first, elem},
	})
}

// CreateCall emits a call to a function known to the module.
func (b *Builder) CreateCall(callee *Function, args ...Value) *Instruction {
	return b.insert(&Instruction{
		Op:       OpCall,
		Ty:       callee.Sig.Ret,
		Operands: args,
		Callee:   callee,
	})
}

// CreateNamedCall emits a call to a named declaration, creating the
// declaration on the module when absent. This is how operations
// resolved by later pipeline stages are represented.
func (b *Builder) CreateNamedCall(name string, ret Type, args ...Value) *Instruction {
	m := b.block.Parent.Module
	if m == nil {
		panic(fmt.Sprintf("ir: named call %q outside a module", name))
	}
	params := make([]Type, len(args))
	for i, a := range args {
		params[i] = a.Type()
	}
	callee := m.DeclareFunction(name, m.Context.FunctionType(ret, params...))
	return b.CreateCall(callee, args...)
}

// CreateBr emits an unconditional branch.
func (b *Builder) CreateBr(dest *BasicBlock) *Instruction {
	return b.insert(&Instruction{
		Op:     OpBr,
		Ty:     b.ctx.VoidType(),
		Blocks: []*BasicBlock{dest},
	})
}

// CreateSwitch emits a multi-way branch on an i32 selector. Cases are
// added with AddCase; unmatched selectors branch to def.
func (b *Builder) CreateSwitch(selector Value, def *BasicBlock, numCases int) *Instruction {
	return b.insert(&Instruction{
		Op:         OpSwitch,
		Ty:         b.ctx.VoidType(),
		Operands:   []Value{selector},
		Blocks:     append(make([]*BasicBlock, 0, numCases+1), def),
		CaseValues: make([]uint64, 0, numCases),
	})
}

// CreateRet emits a return of v.
func (b *Builder) CreateRet(v Value) *Instruction {
	return b.insert(&Instruction{
		Op:       OpRet,
		Ty:       b.ctx.VoidType(),
		Operands: []Value{v},
	})
}

// CreateRetVoid emits a return with no value.
func (b *Builder) CreateRetVoid() *Instruction {
	return b.insert(&Instruction{Op: OpRet, Ty: b.ctx.VoidType()})
}

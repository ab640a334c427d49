package ir

// CallingConv tags a function with its hardware calling convention.
type CallingConv uint8

// AMDGPU hardware-stage calling conventions.
const (
	CallConvNone CallingConv = iota
	CallConvAMDGPULS           // merged local shader (vertex half of LS-HS)
	CallConvAMDGPUHS           // hull shader
	CallConvAMDGPUES           // export shader (vertex half of ES-GS)
	CallConvAMDGPUGS           // geometry shader
	CallConvAMDGPUVS           // hardware vertex shader (rasterizer-facing)
	CallConvAMDGPUPS           // pixel shader
	CallConvAMDGPUCS           // compute shader
)

// ExecModelNone marks functions that are not shader entry points.
const ExecModelNone = -1

// Module is a translation unit: an ordered list of function definitions
// and declarations plus module-scope globals. Each generator builds its
// code into a fresh Module and hands it off; nothing in this package
// retains state across builds.
type Module struct {
	Name      string
	Context   *Context
	Functions []*Function
	Globals   []*GlobalVariable
}

// NewModule creates an empty module.
func NewModule(name string, ctx *Context) *Module {
	return &Module{Name: name, Context: ctx}
}

// Function returns the function with the given name, or nil.
func (m *Module) Function(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// EntryPoint returns the function carrying the given execution-model
// metadata, or nil when no such entry point exists.
func (m *Module) EntryPoint(execModel int) *Function {
	for _, f := range m.Functions {
		if f.ExecModel == execModel {
			return f
		}
	}
	return nil
}

// AddFunction appends a function to the module.
func (m *Module) AddFunction(f *Function) {
	f.Module = m
	m.Functions = append(m.Functions, f)
}

// InsertFunctionBefore inserts f in front of before, or appends when
// before is nil or absent.
func (m *Module) InsertFunctionBefore(f, before *Function) {
	f.Module = m
	if before != nil {
		for i, g := range m.Functions {
			if g == before {
				m.Functions = append(m.Functions[:i], append([]*Function{f}, m.Functions[i:]...)...)
				return
			}
		}
	}
	m.Functions = append(m.Functions, f)
}

// DeclareFunction returns the declaration with the given name, creating
// it when absent. Declarations stand in for operations lowered by later
// pipeline stages (named lgc.* calls and amdgcn.* intrinsics).
func (m *Module) DeclareFunction(name string, sig *FunctionType) *Function {
	if f := m.Function(name); f != nil {
		return f
	}
	f := NewFunction(name, sig)
	m.AddFunction(f)
	return f
}

// NewGlobal creates a module-scope variable and registers it.
func (m *Module) NewGlobal(name string, valueTy Type, space, align uint32) *GlobalVariable {
	g := &GlobalVariable{
		Name:    name,
		ValueTy: valueTy,
		Space:   space,
		Align:   align,
		ptrTy:   m.Context.PointerType(valueTy, space),
	}
	m.Globals = append(m.Globals, g)
	return g
}

// Global returns the global variable with the given name, or nil.
func (m *Module) Global(name string) *GlobalVariable {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Function is a function definition (with blocks) or declaration
// (without). Arguments are created eagerly from the signature.
type Function struct {
	Name      string
	Sig       *FunctionType
	CallConv  CallingConv
	ExecModel int // shader-stage metadata; ExecModelNone when not an entry point
	Args      []*Argument
	Blocks    []*BasicBlock
	Attrs     map[string]string // string function attributes, e.g. "target-features"
	Module    *Module
}

// NewFunction creates a detached function with arguments matching sig.
func NewFunction(name string, sig *FunctionType) *Function {
	f := &Function{
		Name:      name,
		Sig:       sig,
		ExecModel: ExecModelNone,
	}
	f.Args = make([]*Argument, len(sig.Params))
	for i, p := range sig.Params {
		f.Args[i] = &Argument{Ty: p, Index: i, Parent: f}
	}
	return f
}

// IsDeclaration reports whether the function has no body.
func (f *Function) IsDeclaration() bool { return len(f.Blocks) == 0 }

// Arg returns argument i.
func (f *Function) Arg(i int) *Argument { return f.Args[i] }

// SetAttr sets a string function attribute.
func (f *Function) SetAttr(key, value string) {
	if f.Attrs == nil {
		f.Attrs = make(map[string]string, 2)
	}
	f.Attrs[key] = value
}

// Attr returns a string function attribute, or "".
func (f *Function) Attr(key string) string { return f.Attrs[key] }

// AddBlock appends a new basic block.
func (f *Function) AddBlock(name string) *BasicBlock {
	bb := &BasicBlock{Name: name, Parent: f}
	f.Blocks = append(f.Blocks, bb)
	return bb
}

// InsertBlockBefore creates a new basic block in front of before,
// or appends when before is nil or absent.
func (f *Function) InsertBlockBefore(name string, before *BasicBlock) *BasicBlock {
	bb := &BasicBlock{Name: name, Parent: f}
	if before != nil {
		for i, b := range f.Blocks {
			if b == before {
				f.Blocks = append(f.Blocks[:i], append([]*BasicBlock{bb}, f.Blocks[i:]...)...)
				return bb
			}
		}
	}
	f.Blocks = append(f.Blocks, bb)
	return bb
}

// EntryBlock returns the first basic block, or nil for declarations.
func (f *Function) EntryBlock() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// BasicBlock is an ordered list of instructions ending in a terminator.
type BasicBlock struct {
	Name   string
	Insts  []*Instruction
	Parent *Function
}

// Terminator returns the block's final instruction when it is a
// terminator, or nil.
func (bb *BasicBlock) Terminator() *Instruction {
	if len(bb.Insts) == 0 {
		return nil
	}
	last := bb.Insts[len(bb.Insts)-1]
	if !last.IsTerminator() {
		return nil
	}
	return last
}

// insertAt places inst at position idx.
func (bb *BasicBlock) insertAt(idx int, inst *Instruction) {
	inst.parent = bb
	bb.Insts = append(bb.Insts[:idx], append([]*Instruction{inst}, bb.Insts[idx:]...)...)
}

// ReplaceAllUses rewrites every operand in f that references old to
// reference new instead. Modules built here are small, so a full walk
// substitutes for use lists.
func ReplaceAllUses(f *Function, old, new Value) {
	for _, bb := range f.Blocks {
		for _, inst := range bb.Insts {
			for i, op := range inst.Operands {
				if op == old {
					inst.Operands[i] = new
				}
			}
		}
	}
}

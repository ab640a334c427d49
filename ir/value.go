package ir

// Value represents an SSA value: a constant, a function argument,
// a global variable, or the result of an instruction.
type Value interface {
	Type() Type
	valueKind()
}

// ConstInt is an integer constant.
type ConstInt struct {
	Ty  Type
	Val uint64
}

func (*ConstInt) valueKind() {}

// Type returns the constant's type.
func (c *ConstInt) Type() Type { return c.Ty }

// ConstFloat is a floating-point constant.
type ConstFloat struct {
	Ty  Type
	Val float64
}

func (*ConstFloat) valueKind() {}

// Type returns the constant's type.
func (c *ConstFloat) Type() Type { return c.Ty }

// ConstVector is a vector constant built from scalar constants.
type ConstVector struct {
	Ty    Type
	Elems []Value
}

func (*ConstVector) valueKind() {}

// Type returns the constant's type.
func (c *ConstVector) Type() Type { return c.Ty }

// Undef is an undefined value of a given type. Glue generators use it
// as the seed for insertvalue/insertelement chains; slots never written
// stay unbound, which is deliberate for unused fetch slots.
type Undef struct {
	Ty Type
}

func (*Undef) valueKind() {}

// Type returns the undef's type.
func (u *Undef) Type() Type { return u.Ty }

// Argument is a function parameter.
type Argument struct {
	Name   string
	Ty     Type
	Index  int
	InReg  bool // passed in a scalar (SGPR-class) register
	Parent *Function
}

func (*Argument) valueKind() {}

// Type returns the argument's type.
func (a *Argument) Type() Type { return a.Ty }

// GlobalVariable is a module-scope variable, e.g. the LDS block backing
// the on-chip GS-VS ring. Its value type is ValueTy; as an SSA value it
// is a pointer to ValueTy in Space.
type GlobalVariable struct {
	Name    string
	ValueTy Type
	Space   uint32
	Align   uint32

	ptrTy Type
}

func (*GlobalVariable) valueKind() {}

// Type returns the pointer type of the global.
func (g *GlobalVariable) Type() Type { return g.ptrTy }

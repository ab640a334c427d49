package ir

import (
	"strconv"
	"strings"
)

// Type represents a type in the IR.
// Types are interned by a Context: two structurally identical types
// obtained from the same Context compare equal as interface values.
type Type interface {
	// String returns the canonical spelling of the type. It doubles as
	// the mangling suffix for named calls and as the type component of
	// glue-shader fingerprints, so it must be stable across builds.
	String() string
	typeKind()
}

// VoidType is the type of instructions that produce no value.
type VoidType struct{}

func (*VoidType) typeKind()      {}
func (*VoidType) String() string { return "void" }

// IntType represents an integer type of a given bit width.
type IntType struct {
	Bits uint32
}

func (*IntType) typeKind() {}

func (t *IntType) String() string { return "i" + strconv.FormatUint(uint64(t.Bits), 10) }

// FloatType represents a floating-point type of a given bit width (16 or 32).
type FloatType struct {
	Bits uint32
}

func (*FloatType) typeKind() {}

func (t *FloatType) String() string { return "f" + strconv.FormatUint(uint64(t.Bits), 10) }

// VectorType represents a fixed-width vector of a scalar element type.
type VectorType struct {
	Elem  Type
	Count uint32
}

func (*VectorType) typeKind() {}

func (t *VectorType) String() string {
	return "v" + strconv.FormatUint(uint64(t.Count), 10) + t.Elem.String()
}

// ArrayType represents a fixed-length array.
type ArrayType struct {
	Elem  Type
	Count uint32
}

func (*ArrayType) typeKind() {}

func (t *ArrayType) String() string {
	return "a" + strconv.FormatUint(uint64(t.Count), 10) + t.Elem.String()
}

// StructType represents an anonymous record of field types.
type StructType struct {
	Fields []Type
}

func (*StructType) typeKind() {}

func (t *StructType) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, f := range t.Fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// PointerType represents a pointer into a target address space.
type PointerType struct {
	Elem  Type
	Space uint32
}

func (*PointerType) typeKind() {}

func (t *PointerType) String() string {
	return "p" + strconv.FormatUint(uint64(t.Space), 10) + t.Elem.String()
}

// FunctionType represents a function signature.
type FunctionType struct {
	Ret    Type
	Params []Type
}

func (*FunctionType) typeKind() {}

func (t *FunctionType) String() string {
	var sb strings.Builder
	sb.WriteString(t.Ret.String())
	sb.WriteByte('(')
	for i, p := range t.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// AMDGPU address spaces used by the generators.
const (
	AddrSpaceFlat   uint32 = 0
	AddrSpaceGlobal uint32 = 1
	AddrSpaceLDS    uint32 = 3 // on-chip shared memory
	AddrSpaceConst  uint32 = 4 // read-only descriptor memory
)

// Context owns and interns types. All types flowing through one module
// must come from the module's Context so that identity comparison works.
type Context struct {
	interned map[string]Type

	void *VoidType
	i16  *IntType
	i32  *IntType
	i64  *IntType
	f16  *FloatType
	f32  *FloatType
}

// NewContext creates an empty type context.
func NewContext() *Context {
	c := &Context{interned: make(map[string]Type, 32)}
	c.void = &VoidType{}
	c.i16 = &IntType{Bits: 16}
	c.i32 = &IntType{Bits: 32}
	c.i64 = &IntType{Bits: 64}
	c.f16 = &FloatType{Bits: 16}
	c.f32 = &FloatType{Bits: 32}
	for _, t := range []Type{c.void, c.i16, c.i32, c.i64, c.f16, c.f32} {
		c.interned[t.String()] = t
	}
	return c
}

// intern returns the canonical instance for key, creating it with mk on
// first use. Keys are the canonical type spellings, so structurally
// identical types collapse to one instance.
func (c *Context) intern(key string, mk func() Type) Type {
	if t, ok := c.interned[key]; ok {
		return t
	}
	t := mk()
	c.interned[key] = t
	return t
}

// VoidType returns the void type.
func (c *Context) VoidType() Type { return c.void }

// Int16Type returns the 16-bit integer type.
func (c *Context) Int16Type() Type { return c.i16 }

// Int32Type returns the 32-bit integer type.
func (c *Context) Int32Type() Type { return c.i32 }

// Int64Type returns the 64-bit integer type.
func (c *Context) Int64Type() Type { return c.i64 }

// HalfType returns the 16-bit floating-point type.
func (c *Context) HalfType() Type { return c.f16 }

// FloatType returns the 32-bit floating-point type.
func (c *Context) FloatType() Type { return c.f32 }

// IntType returns an integer type of the given bit width.
func (c *Context) IntType(bits uint32) Type {
	t := &IntType{Bits: bits}
	return c.intern(t.String(), func() Type { return t })
}

// VectorType returns a vector type of count elements.
func (c *Context) VectorType(elem Type, count uint32) Type {
	t := &VectorType{Elem: elem, Count: count}
	return c.intern(t.String(), func() Type { return t })
}

// ArrayType returns an array type of count elements.
func (c *Context) ArrayType(elem Type, count uint32) Type {
	t := &ArrayType{Elem: elem, Count: count}
	return c.intern(t.String(), func() Type { return t })
}

// StructType returns a record type with the given fields.
func (c *Context) StructType(fields ...Type) Type {
	t := &StructType{Fields: fields}
	return c.intern(t.String(), func() Type { return t })
}

// PointerType returns a pointer to elem in the given address space.
func (c *Context) PointerType(elem Type, space uint32) Type {
	t := &PointerType{Elem: elem, Space: space}
	return c.intern(t.String(), func() Type { return t })
}

// FunctionType returns a function signature type.
func (c *Context) FunctionType(ret Type, params ...Type) *FunctionType {
	t := &FunctionType{Ret: ret, Params: params}
	return c.intern(t.String(), func() Type { return t }).(*FunctionType)
}

// ComponentCount returns the number of scalar components of t:
// the element count for vectors and arrays, 1 for scalars.
func ComponentCount(t Type) uint32 {
	switch t := t.(type) {
	case *VectorType:
		return t.Count
	case *ArrayType:
		return t.Count
	default:
		return 1
	}
}

// ScalarElem returns the scalar element type of t: the element type for
// vectors and arrays, t itself for scalars.
func ScalarElem(t Type) Type {
	switch t := t.(type) {
	case *VectorType:
		return t.Elem
	case *ArrayType:
		return t.Elem
	default:
		return t
	}
}

// ScalarBits returns the bit width of t's scalar element, or 0 for
// non-numeric types.
func ScalarBits(t Type) uint32 {
	switch t := ScalarElem(t).(type) {
	case *IntType:
		return t.Bits
	case *FloatType:
		return t.Bits
	default:
		return 0
	}
}

package ir

// NameGetPC is the intrinsic returning the 64-bit program counter.
// Its high half is reused as the high half of addresses whose low
// 32 bits arrive in a scalar register.
const NameGetPC = "amdgcn.s.getpc"

// AddressExtender extends 32-bit register-held address halves into full
// 64-bit pointers. One extender is created per function; the PC read it
// emits is cached so repeated extensions share it.
type AddressExtender struct {
	fn     *Function
	pcHigh Value
}

// NewAddressExtender creates an extender for fn.
func NewAddressExtender(fn *Function) *AddressExtender {
	return &AddressExtender{fn: fn}
}

// PCHigh returns the high 32 bits of the current program counter,
// emitting the intrinsic call at the builder's insertion point on
// first use.
func (e *AddressExtender) PCHigh(b *Builder) Value {
	if e.pcHigh != nil {
		return e.pcHigh
	}
	ctx := b.Context()
	pc := b.CreateNamedCall(NameGetPC, ctx.Int64Type())
	halves := b.CreateBitCast(pc, ctx.VectorType(ctx.Int32Type(), 2))
	e.pcHigh = b.CreateExtractElement(halves, 1)
	return e.pcHigh
}

// ExtendToInt64 combines a 32-bit low half and a 32-bit high half into
// a 64-bit integer address.
func (e *AddressExtender) ExtendToInt64(b *Builder, low, high Value) Value {
	ctx := b.Context()
	v2i32 := ctx.VectorType(ctx.Int32Type(), 2)
	addr := b.CreateInsertElement(b.Undef(v2i32), low, 0)
	addr = b.CreateInsertElement(addr, high, 1)
	return b.CreateBitCast(addr, ctx.Int64Type())
}

// Extend combines low and high halves into a pointer of type ptrTy.
func (e *AddressExtender) Extend(b *Builder, low, high Value, ptrTy Type) Value {
	return b.CreateIntToPtr(e.ExtendToInt64(b, low, high), ptrTy)
}

// ExtendWithPC combines a 32-bit low half with the program counter's
// high half into a pointer of type ptrTy.
func (e *AddressExtender) ExtendWithPC(b *Builder, low Value, ptrTy Type) Value {
	return e.Extend(b, low, e.PCHigh(b), ptrTy)
}

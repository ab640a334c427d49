package ir

// Opcode identifies an instruction kind.
type Opcode uint8

// Instruction opcodes. Only the operations the glue generators emit are
// modelled; later pipeline stages never hand IR back to this package.
const (
	OpAdd Opcode = iota
	OpMul
	OpBitCast
	OpTrunc
	OpIntToPtr
	OpExtractElement
	OpInsertElement
	OpInsertValue
	OpExtractValue
	OpLoad
	OpGetElementPtr
	OpCall
	OpBr
	OpSwitch
	OpRet
)

var opcodeNames = [...]string{
	OpAdd:            "add",
	OpMul:            "mul",
	OpBitCast:        "bitcast",
	OpTrunc:          "trunc",
	OpIntToPtr:       "inttoptr",
	OpExtractElement: "extractelement",
	OpInsertElement:  "insertelement",
	OpInsertValue:    "insertvalue",
	OpExtractValue:   "extractvalue",
	OpLoad:           "load",
	OpGetElementPtr:  "getelementptr",
	OpCall:           "call",
	OpBr:             "br",
	OpSwitch:         "switch",
	OpRet:            "ret",
}

// String returns the opcode mnemonic.
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "invalid"
}

// Instruction is a single operation inside a basic block. One struct
// covers all opcodes so that passes can walk and rewrite operands
// generically; opcode-specific state lives in the optional fields.
type Instruction struct {
	Op       Opcode
	Ty       Type // result type; void for terminators and void calls
	Operands []Value
	Name     string // optional result name, for readability only

	// OpCall
	Callee *Function

	// OpInsertValue / OpExtractValue
	Indices []uint32

	// OpLoad
	Align     uint32
	Invariant bool // value never changes during the invocation
	Uniform   bool // same value across all lanes

	// OpBr: Blocks[0] is the destination.
	// OpSwitch: Blocks[0] is the default; Blocks[1:] parallel CaseValues.
	Blocks     []*BasicBlock
	CaseValues []uint64

	parent *BasicBlock
}

func (*Instruction) valueKind() {}

// Type returns the instruction's result type.
func (i *Instruction) Type() Type { return i.Ty }

// Block returns the basic block containing the instruction, or nil if
// it has been erased.
func (i *Instruction) Block() *BasicBlock { return i.parent }

// AddCase appends a case to a switch instruction.
func (i *Instruction) AddCase(value uint64, dest *BasicBlock) {
	if i.Op != OpSwitch {
		panic("ir: AddCase on non-switch instruction")
	}
	i.CaseValues = append(i.CaseValues, value)
	i.Blocks = append(i.Blocks, dest)
}

// SetOperand replaces operand idx.
func (i *Instruction) SetOperand(idx int, v Value) {
	i.Operands[idx] = v
}

// EraseFromParent removes the instruction from its block.
func (i *Instruction) EraseFromParent() {
	bb := i.parent
	if bb == nil {
		return
	}
	for n, inst := range bb.Insts {
		if inst == i {
			bb.Insts = append(bb.Insts[:n], bb.Insts[n+1:]...)
			break
		}
	}
	i.parent = nil
}

// IsTerminator reports whether the instruction ends a basic block.
func (i *Instruction) IsTerminator() bool {
	switch i.Op {
	case OpBr, OpSwitch, OpRet:
		return true
	}
	return false
}

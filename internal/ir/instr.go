package ir

// Opcode is the closed instruction set (spec §3). A tagged enum plus
// one struct shape (Instr) is preferred here over one Go type per
// opcode: the teacher's kanso IR used a type-per-kind because its
// instruction count was small and EVM-specific; a ~45-member closed
// set reads better as opcode-keyed behavior tables (see ilr's
// shadowInst/checkInst switches, tx's visitInst switch) over one
// struct (Design Notes §9).
type Opcode int

const (
	OpAdd Opcode = iota
	OpFAdd
	OpSub
	OpFSub
	OpMul
	OpFMul
	OpUDiv
	OpSDiv
	OpFDiv
	OpURem
	OpSRem
	OpFRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLShr
	OpAShr

	OpLoad
	OpStore
	OpGetElementPtr
	OpAlloca
	OpAtomicCmpXchg
	OpAtomicRMW

	OpPHI
	OpCall
	OpInvoke
	OpRet
	OpBr
	OpSwitch
	OpVAArg
	OpLandingPad
	OpResume
	OpUnreachable

	OpTrunc
	OpZExt
	OpSExt
	OpFPTrunc
	OpFPExt
	OpIntToPtr
	OpPtrToInt
	OpBitCast

	OpICmp
	OpFCmp
	OpSelect

	OpExtractElement
	OpInsertElement
	OpShuffleVector
	OpExtractValue
	OpInsertValue
)

var opcodeNames = map[Opcode]string{
	OpAdd: "add", OpFAdd: "fadd", OpSub: "sub", OpFSub: "fsub",
	OpMul: "mul", OpFMul: "fmul", OpUDiv: "udiv", OpSDiv: "sdiv", OpFDiv: "fdiv",
	OpURem: "urem", OpSRem: "srem", OpFRem: "frem",
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpShl: "shl", OpLShr: "lshr", OpAShr: "ashr",
	OpLoad: "load", OpStore: "store", OpGetElementPtr: "getelementptr", OpAlloca: "alloca",
	OpAtomicCmpXchg: "cmpxchg", OpAtomicRMW: "atomicrmw",
	OpPHI: "phi", OpCall: "call", OpInvoke: "invoke", OpRet: "ret", OpBr: "br",
	OpSwitch: "switch", OpVAArg: "va_arg", OpLandingPad: "landingpad", OpResume: "resume",
	OpUnreachable: "unreachable",
	OpTrunc:       "trunc", OpZExt: "zext", OpSExt: "sext", OpFPTrunc: "fptrunc",
	OpFPExt: "fpext", OpIntToPtr: "inttoptr", OpPtrToInt: "ptrtoint", OpBitCast: "bitcast",
	OpICmp: "icmp", OpFCmp: "fcmp", OpSelect: "select",
	OpExtractElement: "extractelement", OpInsertElement: "insertelement",
	OpShuffleVector: "shufflevector", OpExtractValue: "extractvalue", OpInsertValue: "insertvalue",
}

func (op Opcode) String() string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return "unknown"
}

// IsTerminator reports whether op ends a basic block.
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpRet, OpBr, OpSwitch, OpInvoke, OpResume, OpUnreachable:
		return true
	default:
		return false
	}
}

// Instr is one instruction. Fields beyond Op/ID/Result/Operands are
// meaningful only for the opcodes that use them; this mirrors the
// original LLVM-based pass's reliance on Instruction subclasses, but
// collapses them into one struct switched on Op, matching a closed,
// non-extensible opcode set.
type Instr struct {
	ID       int
	Op       Opcode
	Result   *Value // nil for void instructions (Store, Ret, Br, ...)
	Operands []*Value
	Block    *BasicBlock

	// Load/Store/AtomicRMW/AtomicCmpXchg
	Atomic    bool
	Volatile  bool
	Align     int
	ValueType Type // the pointee type for Load/Store/GEP

	// Call/Invoke
	Callee       *Value // ValFuncRef, or an arbitrary value if indirect
	CalleeName   string // resolved static name, "" if indirect
	NormalDest   *BasicBlock // Invoke only
	UnwindDest   *BasicBlock // Invoke only

	// Br/Switch
	Cond         *Value
	Successors   []*BasicBlock // Br: [true,false] or [target]; Switch: [default, case1, ...]
	SwitchValues []*Value      // parallel to Successors[1:]

	// PHI
	PhiBlocks []*BasicBlock // parallel to Operands

	// ICmp/FCmp
	Predicate string

	// ExtractValue/InsertValue/GetElementPtr
	Indices []int

	// Comment carries free-form provenance for generated instructions
	// (e.g. "ilr-shadow", "ilr-shadow-move"). The printer and tests read
	// it, and ILR's addControlFlowChecks uses the
	// "ilr-loop-header-check-placeholder" tag to skip its own
	// loop-header placeholder branch.
	Comment string
}

func (i *Instr) IsTerminator() bool { return i.Op.IsTerminator() }

// ReplaceOperand rebinds operand at index idx to v. It does not update
// Value use-lists; call Function.Finalize to rebuild them.
func (i *Instr) ReplaceOperand(idx int, v *Value) {
	i.Operands[idx] = v
}

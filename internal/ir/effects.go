package ir

// InducesCheck reports whether an instruction's use of a value forces
// a check of that value under spec §4.6/§4.7: Store, Br (conditional),
// Call/Invoke (to a non-ignored, non-duplicated callee), Ret, Switch,
// and the atomic read-modify-write family. This mirrors the teacher's
// per-instruction GetEffects() classification (internal/ir/effects.go)
// but keyed to the new opcode set and to "does this force a check"
// rather than "does this touch storage".
//
// isDuplicated/isIgnored let callers (internal/ilr) supply the Helper
// Registry's call classification without an import cycle.
func InducesCheck(i *Instr, isDuplicated, isIgnored func(callee string) bool) bool {
	switch i.Op {
	case OpStore, OpBr, OpRet, OpSwitch, OpAtomicCmpXchg, OpAtomicRMW:
		return true
	case OpLoad:
		return i.Atomic
	case OpCall, OpInvoke:
		if i.CalleeName == "" {
			return true // indirect call: conservatively a check site
		}
		if isIgnored != nil && isIgnored(i.CalleeName) {
			return false
		}
		if isDuplicated != nil && isDuplicated(i.CalleeName) {
			return false
		}
		return true
	default:
		return false
	}
}

// IsPure reports whether i is one of the arithmetic/logic/cast/compare/
// vector/aggregate opcodes ILR clones verbatim as a shadow (spec §4.4
// table, row 1).
func IsPure(i *Instr) bool {
	switch i.Op {
	case OpAdd, OpFAdd, OpSub, OpFSub, OpMul, OpFMul, OpUDiv, OpSDiv, OpFDiv,
		OpURem, OpSRem, OpFRem, OpAnd, OpOr, OpXor, OpShl, OpLShr, OpAShr,
		OpTrunc, OpZExt, OpSExt, OpFPTrunc, OpFPExt, OpIntToPtr, OpPtrToInt, OpBitCast,
		OpICmp, OpFCmp, OpSelect, OpGetElementPtr,
		OpExtractElement, OpInsertElement, OpShuffleVector, OpExtractValue, OpInsertValue:
		return true
	default:
		return false
	}
}

// HasNoShadow reports the opcodes spec §4.4 row "Resume/LandingPad/
// Invoke/Terminator" excludes from shadowing outright.
func HasNoShadow(i *Instr) bool {
	switch i.Op {
	case OpResume, OpLandingPad, OpInvoke, OpUnreachable, OpBr, OpSwitch, OpRet:
		return true
	default:
		return i.Result == nil
	}
}

// pointerWidthBits is the assumed platform pointer/intptr width, used
// only to decide whether a cast is a no-op for the purposes of the
// longest-path instruction counter (tx.cpp: "assuming a 64-bit platform").
const pointerWidthBits = 64

// bitWidth returns t's width in bits for the integer/pointer types
// IsNoopCast cares about, or 0 if t is neither.
func bitWidth(t Type) int {
	switch tt := t.(type) {
	case *IntType:
		return tt.Bits
	case *PointerType:
		return pointerWidthBits
	default:
		return 0
	}
}

// IsNoopCast reports whether a cast instruction changes no bits on a
// 64-bit platform (e.g. ptrtoint/inttoptr/bitcast between same-width
// integer and pointer types). tx's longest-path counter (§4.10) and
// instruction counter both skip these, mirroring tx.cpp's
// `CastInst::isNoopCast(IntPtrTy)` check.
func IsNoopCast(i *Instr) bool {
	switch i.Op {
	case OpBitCast, OpPtrToInt, OpIntToPtr:
		if len(i.Operands) != 1 || i.Result == nil {
			return false
		}
		from := bitWidth(i.Operands[0].Type())
		to := bitWidth(i.Result.Type())
		return from != 0 && from == to
	default:
		return false
	}
}

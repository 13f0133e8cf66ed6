package ilr

import (
	"kanso/internal/coerce"
	"kanso/internal/helpers"
	"kanso/internal/ir"
	"kanso/internal/shadow"
)

// checkInst implements spec §4.6's per-opcode check-insertion table.
// Called before shadowInst in the per-instruction walk (pass.go) so
// that an instruction's operand checks compare against shadows that
// were already produced for its (dominating) operand definitions.
// Returns the number of instructions inserted before idx, so the
// caller can adjust idx before calling shadowInst on the same
// instruction.
func (t *Transformer) checkInst(blk *ir.BasicBlock, idx int) (int, error) {
	inst := blk.Instructions[idx]

	switch inst.Op {
	case ir.OpCall, ir.OpInvoke:
		class := t.classify(inst.CalleeName)
		if class == helpers.ClassIgnored || class == helpers.ClassDuplicated {
			return 0, nil
		}
		return t.checkOperandsBefore(blk, idx, inst.Operands)

	case ir.OpRet, ir.OpSwitch, ir.OpAtomicCmpXchg, ir.OpAtomicRMW:
		return t.checkOperandsBefore(blk, idx, inst.Operands)

	case ir.OpBr:
		return 0, nil // deferred to §4.8 control-flow shadow blocks

	case ir.OpLoad:
		if inst.Atomic || isGlobalBase(inst.Operands[0]) {
			return t.checkOperandsBefore(blk, idx, inst.Operands[:1])
		}
		return 0, nil

	case ir.OpStore:
		if inst.Atomic || isGlobalBase(inst.Operands[1]) {
			return t.checkOperandsBefore(blk, idx, inst.Operands)
		}
		return t.checkStoreRoundTrip(blk, idx)

	default:
		return 0, nil
	}
}

// checkOperandsBefore inserts one checker call per operand immediately
// before idx, skipping operands with no shadow (constants etc.) and
// applying the immediate-check optimization (§4.4.c): a check against
// a mover-produced shadow is skipped, since the window between the
// move and the check cannot hide a fault better than leaving the
// value unchecked.
func (t *Transformer) checkOperandsBefore(blk *ir.BasicBlock, idx int, operands []*ir.Value) (int, error) {
	inserted := 0
	for _, op := range operands {
		if op == nil || shadow.NoShadowKind(op) {
			continue
		}
		shadowVal, err := t.getShadow(op)
		if err != nil {
			return inserted, err
		}
		if t.moverShadow[shadowVal] {
			continue
		}
		n, err := t.emitCheck(blk, idx+inserted, op, shadowVal)
		if err != nil {
			return inserted, err
		}
		inserted += n
	}
	return inserted, nil
}

// checkStoreRoundTrip implements the non-atomic, non-global-address
// Store row: after the store, issue a volatile reload from the
// (shadow) address and check the reloaded value against the shadow of
// the stored value (spec §4.6, and the store round-trip property,
// spec §8 property 4).
func (t *Transformer) checkStoreRoundTrip(blk *ir.BasicBlock, idx int) (int, error) {
	inst := blk.Instructions[idx]
	storedVal, addr := inst.Operands[0], inst.Operands[1]

	addrShadow, err := t.getShadow(addr)
	if err != nil {
		return 0, err
	}
	valShadow, err := t.getShadow(storedVal)
	if err != nil {
		return 0, err
	}

	reload := t.fn.NewInstr(ir.OpLoad)
	reload.Operands = []*ir.Value{addrShadow}
	reload.ValueType = inst.ValueType
	reload.Volatile = true
	reload.Result = t.fn.NewValue(storedVal.Typ, "")
	reload.Result.DefInstr = reload
	reload.Comment = "ilr-store-roundtrip-reload"
	blk.InsertAfter(idx, reload)

	if _, err := t.emitCheck(blk, idx+1+1, reload.Result, valShadow); err != nil {
		return 0, err
	}
	return 0, nil // reload and check sit after the store, not before idx
}

// emitCheck coerces val (and its shadow) to a canonical type and
// inserts a check_<T>(val, shadow, id) call before idx. Returns how
// many instructions were inserted (coercion casts + the call).
func (t *Transformer) emitCheck(blk *ir.BasicBlock, idx int, val, shadowVal *ir.Value) (int, error) {
	plan, err := coerce.PlanFor(val.Typ)
	if err != nil {
		return 0, err
	}
	if plan.IsStruct() {
		return t.emitCheckStruct(blk, idx, val, shadowVal, plan)
	}
	checker, ok := t.module.Helpers().Checker(plan.Tag)
	if !ok {
		return 0, ir.Bug("missing-helper", "no check_%s helper resolved", plan.Tag)
	}

	insertAt := idx
	canonA, castsA, err := coerce.ToCanonical(t.fn, blk, insertAt, val)
	if err != nil {
		return 0, err
	}
	insertAt += len(castsA)
	canonB, castsB, err := coerce.ToCanonical(t.fn, blk, insertAt, shadowVal)
	if err != nil {
		return 0, err
	}
	insertAt += len(castsB)

	call := t.fn.NewInstr(ir.OpCall)
	call.CalleeName = checker.Name
	call.Operands = []*ir.Value{canonA, canonB, ir.NewConstInt(ir.I32, int64(t.freshCheckID()))}
	blk.InsertBefore(insertAt, call)
	insertAt++

	return insertAt - idx, nil
}

func (t *Transformer) emitCheckStruct(blk *ir.BasicBlock, idx int, val, shadowVal *ir.Value, plan *coerce.Plan) (int, error) {
	st := val.Typ.(*ir.StructType)
	insertAt := idx
	for i, fieldType := range st.Fields {
		extractA := t.fn.NewInstr(ir.OpExtractValue)
		extractA.Operands = []*ir.Value{val}
		extractA.Indices = []int{i}
		extractA.Result = t.fn.NewValue(fieldType, "")
		extractA.Result.DefInstr = extractA
		blk.InsertBefore(insertAt, extractA)
		insertAt++

		extractB := t.fn.NewInstr(ir.OpExtractValue)
		extractB.Operands = []*ir.Value{shadowVal}
		extractB.Indices = []int{i}
		extractB.Result = t.fn.NewValue(fieldType, "")
		extractB.Result.DefInstr = extractB
		blk.InsertBefore(insertAt, extractB)
		insertAt++

		n, err := t.emitCheck(blk, insertAt, extractA.Result, extractB.Result)
		if err != nil {
			return insertAt - idx, err
		}
		insertAt += n
		_ = plan
	}
	return insertAt - idx, nil
}

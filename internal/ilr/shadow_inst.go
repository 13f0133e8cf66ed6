package ilr

import (
	"kanso/internal/coerce"
	"kanso/internal/helpers"
	"kanso/internal/ir"
)

// shadowInst implements spec §4.4's per-opcode shadow-production
// table. idx is the current position of the instruction within blk;
// on return the shadow (if any) has been spliced immediately after it
// and recorded in the Shadow Map.
func (t *Transformer) shadowInst(blk *ir.BasicBlock, idx int) error {
	inst := blk.Instructions[idx]
	if ir.HasNoShadow(inst) {
		return nil
	}
	if !hasAnyUse(t.fn, inst.Result) {
		return nil // "Instructions whose result is unused skip shadowing."
	}

	switch {
	case inst.Op == ir.OpPHI:
		return t.shadowPhiDeferred(blk, idx)
	case inst.Op == ir.OpLoad:
		return t.shadowLoad(blk, idx)
	case inst.Op == ir.OpCall:
		return t.shadowCall(blk, idx)
	case inst.Op == ir.OpAlloca, inst.Op == ir.OpVAArg, inst.Op == ir.OpAtomicCmpXchg, inst.Op == ir.OpAtomicRMW:
		return t.shadowViaMove(blk, idx)
	case ir.IsPure(inst):
		return t.shadowPure(blk, idx)
	default:
		return nil
	}
}

func (t *Transformer) shadowOperands(inst *ir.Instr) ([]*ir.Value, error) {
	out := make([]*ir.Value, len(inst.Operands))
	for i, op := range inst.Operands {
		s, err := t.getShadow(op)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// shadowPure clones a pure arithmetic/logic/cast/compare/vector/
// aggregate instruction, rebinding operands to their shadows.
func (t *Transformer) shadowPure(blk *ir.BasicBlock, idx int) error {
	inst := blk.Instructions[idx]
	ops, err := t.shadowOperands(inst)
	if err != nil {
		return err
	}
	clone := t.fn.NewInstr(inst.Op)
	clone.Operands = ops
	clone.Predicate = inst.Predicate
	clone.Indices = inst.Indices
	clone.ValueType = inst.ValueType
	clone.Result = t.fn.NewValue(inst.Result.Typ, "")
	clone.Result.DefInstr = clone
	clone.Comment = "ilr-shadow"
	blk.InsertAfter(idx, clone)
	return t.shadow.Add(inst.Result, clone.Result)
}

func isGlobalBase(v *ir.Value) bool { return v != nil && v.Kind == ir.ValGlobalRef }

// shadowLoad implements the two Load rows of spec §4.4's table.
func (t *Transformer) shadowLoad(blk *ir.BasicBlock, idx int) error {
	inst := blk.Instructions[idx]
	if inst.Atomic || isGlobalBase(inst.Operands[0]) {
		return t.shadowViaMove(blk, idx)
	}
	addrShadow, err := t.getShadow(inst.Operands[0])
	if err != nil {
		return err
	}
	clone := t.fn.NewInstr(ir.OpLoad)
	clone.Operands = []*ir.Value{addrShadow}
	clone.ValueType = inst.ValueType
	clone.Volatile = true
	clone.Result = t.fn.NewValue(inst.Result.Typ, "")
	clone.Result.DefInstr = clone
	clone.Comment = "ilr-shadow-volatile-reload"
	blk.InsertAfter(idx, clone)
	return t.shadow.Add(inst.Result, clone.Result)
}

// shadowCall implements the Call/Invoke/Alloca/VAArg/AtomicCmpXchg/
// AtomicRMW row: move_* the result, unless the callee is ignored (no
// shadow) or duplicated (clone like a pure instruction).
func (t *Transformer) shadowCall(blk *ir.BasicBlock, idx int) error {
	inst := blk.Instructions[idx]
	class := t.classify(inst.CalleeName)
	switch class {
	case helpers.ClassIgnored:
		return nil
	case helpers.ClassDuplicated:
		return t.shadowPure(blk, idx)
	default:
		return t.shadowViaMove(blk, idx)
	}
}

// shadowViaMove issues a move_<T> call on the original result (spec
// §4.4: "duplicate the return value, not the call"), coercing to the
// canonical helper type and inverting the cast afterward so the
// shadow has the original type (§4.3).
func (t *Transformer) shadowViaMove(blk *ir.BasicBlock, idx int) error {
	inst := blk.Instructions[idx]
	plan, err := coerce.PlanFor(inst.Result.Typ)
	if err != nil {
		return err
	}
	if plan.IsStruct() {
		return t.shadowViaMoveStruct(blk, idx, plan)
	}

	mover, ok := t.module.Helpers().Mover(plan.Tag)
	if !ok {
		return ir.Bug("missing-helper", "no move_%s helper resolved", plan.Tag)
	}

	insertAt := idx + 1
	canonical, casts, err := coerce.ToCanonical(t.fn, blk, insertAt, inst.Result)
	if err != nil {
		return err
	}
	insertAt += len(casts)

	moveCall := t.fn.NewInstr(ir.OpCall)
	moveCall.CalleeName = mover.Name
	moveCall.Operands = []*ir.Value{canonical}
	moveCall.Result = t.fn.NewValue(plan.CanonicalType, "")
	moveCall.Result.DefInstr = moveCall
	moveCall.Comment = "ilr-shadow-move"
	blk.InsertBefore(insertAt, moveCall)
	insertAt++

	shadowVal := coerce.FromCanonical(t.fn, blk, insertAt, moveCall.Result, inst.Result.Typ, casts)
	t.moverShadow[shadowVal] = true
	return t.shadow.Add(inst.Result, shadowVal)
}

// shadowViaMoveStruct recurses field-by-field via extractvalue/
// insertvalue, per spec §4.3's struct coercion rule.
func (t *Transformer) shadowViaMoveStruct(blk *ir.BasicBlock, idx int, plan *coerce.Plan) error {
	inst := blk.Instructions[idx]
	st := inst.Result.Typ.(*ir.StructType)
	insertAt := idx + 1

	result := t.fn.NewValue(st, "")
	var prevAggregate *ir.Value = result
	for i, fieldType := range st.Fields {
		extract := t.fn.NewInstr(ir.OpExtractValue)
		extract.Operands = []*ir.Value{inst.Result}
		extract.Indices = []int{i}
		extract.Result = t.fn.NewValue(fieldType, "")
		extract.Result.DefInstr = extract
		blk.InsertBefore(insertAt, extract)
		insertAt++

		fieldPlan := plan.Fields[i]
		mover, ok := t.module.Helpers().Mover(fieldPlan.Tag)
		if !ok {
			return ir.Bug("missing-helper", "no move_%s helper resolved for struct field %d", fieldPlan.Tag, i)
		}
		canonical, casts, err := coerce.ToCanonical(t.fn, blk, insertAt, extract.Result)
		if err != nil {
			return err
		}
		insertAt += len(casts)

		moveCall := t.fn.NewInstr(ir.OpCall)
		moveCall.CalleeName = mover.Name
		moveCall.Operands = []*ir.Value{canonical}
		moveCall.Result = t.fn.NewValue(fieldPlan.CanonicalType, "")
		moveCall.Result.DefInstr = moveCall
		blk.InsertBefore(insertAt, moveCall)
		insertAt++

		fieldShadow := coerce.FromCanonical(t.fn, blk, insertAt, moveCall.Result, fieldType, casts)
		insertAt += len(casts)

		insertInst := t.fn.NewInstr(ir.OpInsertValue)
		insertInst.Operands = []*ir.Value{prevAggregate, fieldShadow}
		insertInst.Indices = []int{i}
		insertInst.Result = t.fn.NewValue(st, "")
		insertInst.Result.DefInstr = insertInst
		blk.InsertBefore(insertAt, insertInst)
		insertAt++
		prevAggregate = insertInst.Result
	}
	t.moverShadow[prevAggregate] = true
	return t.shadow.Add(inst.Result, prevAggregate)
}

// hasAnyUse scans the whole function for any reference to v. ILR
// mutates blocks incrementally, so the use-lists Function.Finalize
// builds at pass start/end go stale mid-pass; this direct scan keeps
// "skip shadowing unused results" (spec §4.4.b) correct without
// threading a live use-list update through every splice.
func hasAnyUse(fn *ir.Function, v *ir.Value) bool {
	if v == nil {
		return false
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			for _, op := range inst.Operands {
				if op == v {
					return true
				}
			}
			if inst.Cond == v {
				return true
			}
		}
	}
	return false
}

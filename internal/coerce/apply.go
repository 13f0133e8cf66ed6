package coerce

import "kanso/internal/ir"

// Emitter is the minimal surface coerce needs to splice instructions;
// internal/ilr's block-splicing helpers satisfy it directly.
type Emitter interface {
	NewInstr(op ir.Opcode) *ir.Instr
	NewValue(t ir.Type, name string) *ir.Value
	InsertBefore(idx int, inst *ir.Instr)
}

// ToCanonical inserts the cast chain of original's Plan before the
// instruction at idx and returns the resulting canonical-typed value.
// A struct-typed value is rejected with an unhandled-coercion-type Bug
// error; callers coerce structs field by field. idx is re-read by the
// caller after each insertion since indices shift.
func ToCanonical(fn *ir.Function, blk *ir.BasicBlock, idx int, original *ir.Value) (*ir.Value, []CastStep, error) {
	plan, err := PlanFor(original.Typ)
	if err != nil {
		return nil, nil, err
	}
	if plan.IsStruct() {
		return nil, nil, ir.Bug("unhandled-coercion-type", "ToCanonical called on struct-typed value %s; use per-field coercion", original)
	}
	cur := original
	insertAt := idx
	for _, step := range plan.Casts {
		inst := fn.NewInstr(step.Op)
		inst.Operands = []*ir.Value{cur}
		inst.Result = fn.NewValue(step.To, "")
		inst.Result.DefInstr = inst
		blk.InsertBefore(insertAt, inst)
		insertAt++
		cur = inst.Result
	}
	return cur, plan.Casts, nil
}

// FromCanonical inverts the cast chain (in reverse order) after a
// move_<T> call returns a canonical-typed value, so a shadowed use
// downstream sees the original type again (spec §4.3: "After a mover
// call, the inverse transformation is applied so the shadow has the
// original type").
func FromCanonical(fn *ir.Function, blk *ir.BasicBlock, idx int, canonicalResult *ir.Value, originalType ir.Type, casts []CastStep) *ir.Value {
	cur := canonicalResult
	insertAt := idx
	for i := len(casts) - 1; i >= 0; i-- {
		step := casts[i]
		var target ir.Type
		if i == 0 {
			target = originalType
		} else {
			target = casts[i-1].To
		}
		inst := fn.NewInstr(step.Inverse)
		inst.Operands = []*ir.Value{cur}
		inst.Result = fn.NewValue(target, "")
		inst.Result.DefInstr = inst
		blk.InsertBefore(insertAt, inst)
		insertAt++
		cur = inst.Result
	}
	return cur
}

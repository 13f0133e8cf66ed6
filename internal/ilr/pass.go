package ilr

import (
	"kanso/internal/coerce"
	"kanso/internal/ir"
)

// runPassDriver implements the Pass Driver (spec §2): iterate function
// BBs in dominator-tree order, then mop up unvisited (landing-pad)
// blocks. Matches ilr.cpp's SwiftPass::runOnFunction: a `df_iterator`
// over the DominatorTree's root node, followed by a second loop over
// BBs the DFS never reached.
func runPassDriver(t *Transformer) error {
	if err := t.shadowArgs(); err != nil {
		return err
	}

	visited := map[*ir.BasicBlock]bool{}
	for _, blk := range t.fn.Dom.DFS() {
		visited[blk] = true
		if err := t.processBlock(blk); err != nil {
			return err
		}
	}
	for _, blk := range t.fn.Blocks {
		if visited[blk] {
			continue
		}
		if err := t.processBlock(blk); err != nil {
			return err
		}
	}
	return nil
}

// processBlock walks a snapshot of blk's original instructions (taken
// before any splicing) and, for each, runs checkInst then shadowInst
// (spec §4.6 then §4.4 — an operand's check must read the shadow
// already produced for its, dominance-earlier, definition; the
// instruction's own shadow is only needed by later uses).
func (t *Transformer) processBlock(blk *ir.BasicBlock) error {
	original := append([]*ir.Instr{}, blk.Instructions...)
	for _, inst := range original {
		idx := blk.IndexOf(inst)
		if idx < 0 {
			continue // spliced away by an earlier step in this same walk
		}
		inserted, err := t.checkInst(blk, idx)
		if err != nil {
			return err
		}
		idx += inserted

		if err := t.shadowInst(blk, idx); err != nil {
			return err
		}
	}
	return nil
}

// shadowArgs duplicates every used function parameter via move_<T>
// before the first instruction of the entry block, so that the first
// real instruction's operand checks can already see a shadow for any
// argument they use (ilr.cpp defers this to the first instruction of
// runOnFunction; here it is its own pre-pass for clarity).
func (t *Transformer) shadowArgs() error {
	entry := t.fn.Entry()
	if entry == nil {
		return nil
	}
	insertAt := 0
	for _, param := range t.fn.Params {
		if !hasAnyUse(t.fn, param.Value) {
			continue
		}
		plan, err := coerce.PlanFor(param.Value.Typ)
		if err != nil {
			return err
		}
		if plan.IsStruct() {
			return ir.Bug("unhandled-coercion-type", "struct-typed parameter %s shadowing is not supported", param.Value)
		}
		mover, ok := t.module.Helpers().Mover(plan.Tag)
		if !ok {
			return ir.Bug("missing-helper", "no move_%s helper resolved", plan.Tag)
		}

		canonical, casts, err := coerce.ToCanonical(t.fn, entry, insertAt, param.Value)
		if err != nil {
			return err
		}
		insertAt += len(casts)

		moveCall := t.fn.NewInstr(ir.OpCall)
		moveCall.CalleeName = mover.Name
		moveCall.Operands = []*ir.Value{canonical}
		moveCall.Result = t.fn.NewValue(plan.CanonicalType, "")
		moveCall.Result.DefInstr = moveCall
		moveCall.Comment = "ilr-shadow-arg"
		entry.InsertBefore(insertAt, moveCall)
		insertAt++

		shadowVal := coerce.FromCanonical(t.fn, entry, insertAt, moveCall.Result, param.Value.Typ, casts)
		insertAt += len(casts)
		t.moverShadow[shadowVal] = true
		if err := t.shadow.Add(param.Value, shadowVal); err != nil {
			return err
		}
	}
	return nil
}

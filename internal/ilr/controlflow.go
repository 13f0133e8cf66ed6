package ilr

import "kanso/internal/ir"

// addControlFlowChecks implements spec §4.8: for every conditional Br
// whose shadow is a comparison, insert shadow basic blocks on both
// edges that re-evaluate the (possibly inverted) shadow compare and
// divert to a shared Detected block on mismatch.
func (t *Transformer) addControlFlowChecks() error {
	detected := t.module.DetectedBlock(t.fn)

	var condBrs []*ir.Instr
	for _, b := range t.fn.Blocks {
		term := b.Terminator()
		if term == nil || term.Op != ir.OpBr || term.Cond == nil {
			continue
		}
		if term.Comment == "ilr-loop-header-check-placeholder" {
			continue // TX-owned synthetic branch (§4.7), not a real condition
		}
		condBrs = append(condBrs, term)
	}
	for _, br := range condBrs {
		if err := t.addControlFlowCheckForBr(br, detected); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transformer) addControlFlowCheckForBr(br *ir.Instr, detected *ir.BasicBlock) error {
	c1 := br.Cond
	if !t.shadow.Has(c1) {
		return nil // condition has no shadow (e.g. a constant); nothing to cross-check
	}
	c2, err := t.getShadow(c1)
	if err != nil {
		return err
	}
	cmpInst := c2.DefInstr
	if cmpInst == nil || (cmpInst.Op != ir.OpICmp && cmpInst.Op != ir.OpFCmp) {
		return nil
	}

	parent := br.Block
	trueS, falseS := br.Successors[0], br.Successors[1]

	newTrue, err := t.buildShadowBB(parent, cmpInst, true, trueS, detected)
	if err != nil {
		return err
	}
	newFalse, err := t.buildShadowBB(parent, cmpInst, false, falseS, detected)
	if err != nil {
		return err
	}

	br.Successors = []*ir.BasicBlock{newTrue, newFalse}
	return nil
}

// buildShadowBB creates one shadow BB between parent and target
// (spec §4.8): it clones the shadow compare, inverted on the true
// edge, and branches to Detected on a mismatch, else to target.
func (t *Transformer) buildShadowBB(parent *ir.BasicBlock, cmpInst *ir.Instr, isTrueEdge bool, target, detected *ir.BasicBlock) (*ir.BasicBlock, error) {
	suffix := ".ilrshadow.f"
	pred := cmpInst.Predicate
	if isTrueEdge {
		suffix = ".ilrshadow.t"
		inverted, ok := invertPredicate(pred)
		if !ok {
			return nil, ir.Bug("unknown-opcode", "cannot invert comparison predicate %q for control-flow shadow block", pred)
		}
		pred = inverted
	}

	shadowBB := t.fn.NewBlock(parent.Label + suffix)
	clone := t.fn.NewInstr(cmpInst.Op)
	clone.Operands = append([]*ir.Value{}, cmpInst.Operands...)
	clone.Predicate = pred
	clone.Result = t.fn.NewValue(&ir.IntType{Bits: 1}, "")
	clone.Result.DefInstr = clone
	clone.Comment = "ilr-controlflow-shadow-compare"
	shadowBB.Append(clone)

	br := t.fn.NewInstr(ir.OpBr)
	br.Cond = clone.Result
	br.Successors = []*ir.BasicBlock{detected, target}
	shadowBB.Append(br)

	t.fn.InsertBlockAfter(parent, shadowBB)
	fixPredecessorForSuccessor(target, parent, shadowBB)
	return shadowBB, nil
}

func fixPredecessorForSuccessor(succ, oldPred, newPred *ir.BasicBlock) {
	for _, inst := range succ.Instructions {
		if inst.Op != ir.OpPHI {
			continue
		}
		for i, pb := range inst.PhiBlocks {
			if pb == oldPred {
				inst.PhiBlocks[i] = newPred
			}
		}
	}
}

var predicateInverse = map[string]string{
	"eq": "ne", "ne": "eq",
	"slt": "sge", "sge": "slt", "sgt": "sle", "sle": "sgt",
	"ult": "uge", "uge": "ult", "ugt": "ule", "ule": "ugt",
	"oeq": "one", "one": "oeq", "olt": "oge", "oge": "olt",
	"ogt": "ole", "ole": "ogt", "ord": "uno", "uno": "ord",
	"ueq": "une", "une": "ueq",
}

func invertPredicate(pred string) (string, bool) {
	inv, ok := predicateInverse[pred]
	return inv, ok
}

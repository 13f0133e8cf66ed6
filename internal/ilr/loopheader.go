package ilr

import (
	"sort"

	"kanso/internal/helpers"
	"kanso/internal/ir"
)

// insertChecksOnLoopHeaders implements spec §4.7 across every loop in
// the function, innermost first (ilr.cpp: "recursing innermost-first").
func (t *Transformer) insertChecksOnLoopHeaders() error {
	loops := t.fn.Loop.AllLoops()
	sort.Slice(loops, func(i, j int) bool { return len(loops[i].Blocks) < len(loops[j].Blocks) })
	for _, l := range loops {
		if err := t.insertChecksOnLoopHeader(l); err != nil {
			return err
		}
	}
	return nil
}

// insertChecksOnLoopHeader finds header PHIs not transitively used by
// any check-inducing instruction inside the loop and emits an explicit
// check for them, via a conditional-false placeholder branch that a
// later TX pass rewrites into tx_threshold_exceeded()-guarded checks
// (spec §4.7, §4.9, Design Notes "loop-header check interlock").
func (t *Transformer) insertChecksOnLoopHeader(l *ir.Loop) error {
	header := l.Header
	var unchecked []*ir.Instr
	for _, inst := range header.Instructions {
		if inst.Op != ir.OpPHI {
			break
		}
		if !t.shadow.Has(inst.Result) {
			continue // a shadow PHI, or an unused PHI that was never shadowed
		}
		if t.requiresCheckTransitive(l, inst.Result, map[*ir.Value]bool{}) {
			continue
		}
		unchecked = append(unchecked, inst)
	}
	if len(unchecked) == 0 {
		return nil
	}

	firstNonPhi := header.FirstNonPHI()
	tail := t.fn.NewBlock(header.Label + ".ilrtail")
	tail.Instructions = append(tail.Instructions, header.Instructions[firstNonPhi:]...)
	for _, inst := range tail.Instructions {
		inst.Block = tail
	}

	checks := t.fn.NewBlock(header.Label + ".ilrcheck")
	for _, phi := range unchecked {
		shadowVal, err := t.getShadow(phi.Result)
		if err != nil {
			return err
		}
		if _, err := t.emitCheck(checks, len(checks.Instructions), phi.Result, shadowVal); err != nil {
			return err
		}
	}
	brToTail := t.fn.NewInstr(ir.OpBr)
	brToTail.Successors = []*ir.BasicBlock{tail}
	checks.Append(brToTail)

	header.Instructions = header.Instructions[:firstNonPhi]
	placeholder := t.fn.NewInstr(ir.OpBr)
	placeholder.Cond = ir.NewConstInt(&ir.IntType{Bits: 1}, 0)
	placeholder.Successors = []*ir.BasicBlock{checks, tail}
	placeholder.Comment = "ilr-loop-header-check-placeholder"
	header.Append(placeholder)

	t.fn.InsertBlockAfter(header, checks)
	t.fn.InsertBlockAfter(checks, tail)

	fixPredecessorRefs(t.fn, header, tail)
	return nil
}

// requiresCheckTransitive walks users of v (restricted to the loop's
// blocks) looking for a check-inducing instruction, recursing through
// pure producers. Other PHIs are treated as terminals (Design Notes
// §9: natural SSA cycles go through PHIs; stopping there prevents
// infinite recursion on the loop's own back edge) without it needing
// to track a full visited-set across the whole function.
func (t *Transformer) requiresCheckTransitive(l *ir.Loop, v *ir.Value, visited map[*ir.Value]bool) bool {
	if v == nil || visited[v] {
		return false
	}
	visited[v] = true
	for _, user := range usersOf(t.fn, v) {
		if !l.Contains(user.Block) {
			continue
		}
		if user.Op == ir.OpPHI {
			continue
		}
		if ir.InducesCheck(user, helpers.IsDuplicated, helpers.IsIgnored) {
			return true
		}
		if user.Result != nil && t.requiresCheckTransitive(l, user.Result, visited) {
			return true
		}
	}
	return false
}

func usersOf(fn *ir.Function, v *ir.Value) []*ir.Instr {
	var out []*ir.Instr
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			used := inst.Cond == v || inst.Callee == v
			for _, op := range inst.Operands {
				if op == v {
					used = true
					break
				}
			}
			if used {
				out = append(out, inst)
			}
		}
	}
	return out
}

func fixPredecessorRefs(fn *ir.Function, oldPred, newPred *ir.BasicBlock) {
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
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
}

package ilr

import (
	"kanso/internal/helpers"
	"kanso/internal/ir"
)

// removeUnusedMovers erases move_<T> calls left with no uses once
// insertChecksOnLoopHeaders/addControlFlowChecks have optimized away
// the checks that would otherwise have consumed them. Matches
// ilr.cpp's final pass over the function ("some swift-moves can
// become redundant due to checks optimized away -> find and remove
// them").
func (t *Transformer) removeUnusedMovers() {
	movers := map[string]bool{}
	for _, tag := range helpers.CanonicalTypeTags {
		if fn, ok := t.module.Helpers().Mover(tag); ok {
			movers[fn.Name] = true
		}
	}

	for _, blk := range t.fn.Blocks {
		for _, inst := range append([]*ir.Instr{}, blk.Instructions...) {
			if inst.Op != ir.OpCall || !movers[inst.CalleeName] {
				continue
			}
			if inst.Result != nil && len(inst.Result.Uses()) == 0 {
				eraseInstr(inst)
			}
		}
	}
}

// eraseInstr removes inst from its block's instruction list.
func eraseInstr(inst *ir.Instr) {
	blk := inst.Block
	idx := blk.IndexOf(inst)
	if idx < 0 {
		return
	}
	blk.Instructions = append(blk.Instructions[:idx], blk.Instructions[idx+1:]...)
}

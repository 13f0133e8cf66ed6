package ilr

import "kanso/internal/ir"

// shadowPhiDeferred clones a PHI with the same predecessor blocks,
// leaving operand rebinding for rewireShadowPhis (spec §4.4.a PHI row:
// "defer operand rebinding until all blocks are processed").
func (t *Transformer) shadowPhiDeferred(blk *ir.BasicBlock, idx int) error {
	inst := blk.Instructions[idx]
	clone := t.fn.NewInstr(ir.OpPHI)
	clone.PhiBlocks = append([]*ir.BasicBlock{}, inst.PhiBlocks...)
	clone.Operands = make([]*ir.Value, len(inst.Operands))
	clone.Result = t.fn.NewValue(inst.Result.Typ, "")
	clone.Result.DefInstr = clone
	clone.Comment = "ilr-shadow-phi"
	blk.InsertAfter(idx, clone)
	t.phisToRewire = append(t.phisToRewire, phiPair{original: inst, shadowI: clone})
	return t.shadow.Add(inst.Result, clone.Result)
}

// rewireShadowPhis implements spec §4.5 in full: per-incoming shadow
// rebinding, switch-fan-in copy-forward, and the constant-globalization
// workaround that defeats backend induction-variable optimizations
// which would otherwise collapse the original and shadow PHIs.
func (t *Transformer) rewireShadowPhis() error {
	for _, pair := range t.phisToRewire {
		orig, sh := pair.original, pair.shadowI
		reboundForPred := map[*ir.BasicBlock]*ir.Value{}

		for i, predBlk := range orig.PhiBlocks {
			if existing, ok := reboundForPred[predBlk]; ok {
				sh.Operands[i] = existing
				continue
			}

			val := orig.Operands[i]
			var shVal *ir.Value
			if it, n, ok := smallIntConstant(val); ok {
				g := t.module.GlobalConstant(it, n)
				shVal = t.loadGlobalConstantIn(predBlk, g)
			} else {
				v, err := t.getShadow(val)
				if err != nil {
					return err
				}
				shVal = v
			}
			sh.Operands[i] = shVal
			reboundForPred[predBlk] = shVal
		}
	}
	return nil
}

func smallIntConstant(v *ir.Value) (*ir.IntType, int64, bool) {
	if v == nil || v.Kind != ir.ValConst {
		return nil, 0, false
	}
	it, ok := v.Typ.(*ir.IntType)
	if !ok || it.Bits > 64 {
		return nil, 0, false
	}
	return it, v.ConstInt, true
}

// loadGlobalConstantIn inserts a volatile load of g into predBlk
// immediately before its terminator and returns the loaded value.
func (t *Transformer) loadGlobalConstantIn(predBlk *ir.BasicBlock, g *ir.Global) *ir.Value {
	load := t.fn.NewInstr(ir.OpLoad)
	globalVal := &ir.Value{Kind: ir.ValGlobalRef, Typ: &ir.PointerType{ElemHint: g.Typ}, GlobalRef: g, Name: g.Name}
	load.Operands = []*ir.Value{globalVal}
	load.ValueType = g.Typ
	load.Volatile = true
	load.Result = t.fn.NewValue(g.Typ, "")
	load.Result.DefInstr = load
	load.Comment = "ilr-phi-const-globalization"

	termIdx := predBlk.IndexOf(predBlk.Terminator())
	if termIdx < 0 {
		termIdx = len(predBlk.Instructions)
	}
	predBlk.InsertBefore(termIdx, load)
	return load.Result
}

package tx

import "kanso/internal/ir"

// maxSaneIncrement mirrors tx.cpp's insertCounterIncrement sanity
// check: an increment outside (0, 1000000) is silently dropped rather
// than emitted, guarding against a corrupt longest-path computation
// producing a pathological runtime counter bump.
const maxSaneIncrement = 1000000

// Transformer runs TX over a single function (spec §3: "Longest-Path
// map and the visited set live for one function"). One Transformer is
// used per function, built from a Module that supplies the
// module-lifetime Helper Registry and Config.
type Transformer struct {
	module  *Module
	fn      *ir.Function
	visited map[*ir.BasicBlock]bool
}

// NewTransformer prepares fn for TX. fn.Finalize must already have
// been called (dominator tree and loop forest populated) — ordinarily
// by a preceding ILR Transformer.Run, since TX's loop-header check
// rewrite (§4.9) depends on ILR's placeholder branch already existing.
func NewTransformer(m *Module, fn *ir.Function) *Transformer {
	return &Transformer{module: m, fn: fn, visited: map[*ir.BasicBlock]bool{}}
}

// Run executes the full TX pipeline on the function: function-level
// boundary (§4.9), per-loop boundary and longest-path accumulation
// (§4.9/§4.10, outer loops first), the outside-of-loop longest-path
// pass, then the §4.11 optimizations.
func (t *Transformer) Run() error {
	entry := t.fn.Entry()
	if entry == nil {
		return nil
	}

	if t.fn.CalledFromOutside {
		t.insertTxStart(entry, 0)
	} else {
		t.insertCondTxStart(entry, 0)
	}

	for _, l := range t.fn.Loop.AllLoops() {
		if err := t.visitLoop(l); err != nil {
			return err
		}
	}

	lp := newLongestPaths()
	for _, blk := range ir.ReversePostorder(t.fn) {
		if t.visited[blk] {
			continue
		}
		lp.init(blk)
		if err := t.visitBasicBlock(blk, lp); err != nil {
			return err
		}
		t.visited[blk] = true
	}

	t.optimizeCriticalSections()
	t.optimizeEmptyTx()
	t.optimizeEmptyTx() // second round: tx.cpp runs this twice (SPEC_FULL.md §12.4)

	return t.fn.Finalize()
}

// visitLoop implements spec §4.9's per-loop boundary placement and
// §4.10's longest-path accumulation inside the loop, recursing into
// sub-loops (innermost unaffected, outer loops first per tx.cpp's
// top-down visitLoop recursion) before computing its own blocks'
// longest paths, so a nested loop's blocks are excluded from the
// outer loop's own walk (the `Visited` set tx.cpp shares across scopes).
func (t *Transformer) visitLoop(l *ir.Loop) error {
	header := l.Header
	t.insertCondTxStart(header, header.FirstNonPHI())
	if err := t.insertChecksOnLoopHeader(l); err != nil {
		return err
	}

	for _, sub := range l.SubLoops {
		if err := t.visitLoop(sub); err != nil {
			return err
		}
	}

	latches := map[*ir.BasicBlock]bool{}
	for _, lat := range l.Latches {
		latches[lat] = true
	}

	lp := newLongestPaths()
	for _, blk := range loopRPO(l) {
		if t.visited[blk] {
			continue
		}
		lp.init(blk)
		if err := t.visitBasicBlock(blk, lp); err != nil {
			return err
		}
		t.visited[blk] = true

		if latches[blk] {
			t.insertCounterIncrement(blk.Terminator(), lp.get(blk))
			lp.set(blk, 0)
		}
	}

	t.optimizeTightLoop(l)
	return nil
}

// loopRPO restricts the function's reverse postorder to l's own block
// set, approximating tx.cpp's LoopBlocksDFS::beginRPO (a toposort of
// just the loop's blocks that still respects the dominator-derived
// global order).
func loopRPO(l *ir.Loop) []*ir.BasicBlock {
	var out []*ir.BasicBlock
	for _, b := range ir.ReversePostorder(l.Header.Func) {
		if l.Blocks[b] {
			out = append(out, b)
		}
	}
	return out
}

// visitBasicBlock walks a snapshot of blk's original instructions
// (visitInst may append boundary calls after the instruction it is
// looking at, so the snapshot prevents re-visiting them).
func (t *Transformer) visitBasicBlock(blk *ir.BasicBlock, lp *longestPaths) error {
	original := append([]*ir.Instr{}, blk.Instructions...)
	for _, inst := range original {
		if err := t.visitInst(blk, inst, lp); err != nil {
			return err
		}
	}
	return nil
}

// visitInst implements spec §4.10's instruction-counting half and
// §4.9's boundary-placement half in one pass, matching tx.cpp's
// visitInst: every instruction first bumps its block's longest path
// by count(inst), then Call/Invoke/Ret/Resume additionally emit
// boundary calls and reset the block's longest path to 0.
func (t *Transformer) visitInst(blk *ir.BasicBlock, inst *ir.Instr, lp *longestPaths) error {
	lp.set(blk, lp.get(blk)+count(inst))

	switch inst.Op {
	case ir.OpCall:
		return t.visitCall(blk, inst, lp)
	case ir.OpInvoke:
		return t.visitInvoke(blk, inst, lp)
	case ir.OpRet, ir.OpResume:
		return t.visitReturn(blk, inst, lp)
	default:
		return nil
	}
}

func (t *Transformer) visitCall(blk *ir.BasicBlock, inst *ir.Instr, lp *longestPaths) error {
	if t.module.isInternalFunc(inst.CalleeName) {
		return nil
	}

	idx := blk.IndexOf(inst)
	t.insertCounterIncrementBefore(blk, idx, lp.get(blk))
	idx = blk.IndexOf(inst)

	if t.module.isCallToOutside(inst.CalleeName) {
		t.insertTxEnd(blk, idx)
		idx = blk.IndexOf(inst)
		t.insertTxStart(blk, idx+1)
	} else {
		t.insertCondTxStart(blk, idx+1)
	}

	lp.set(blk, 0)
	return nil
}

func (t *Transformer) visitInvoke(blk *ir.BasicBlock, inst *ir.Instr, lp *longestPaths) error {
	if t.module.isInternalFunc(inst.CalleeName) {
		return nil
	}

	idx := blk.IndexOf(inst)
	t.insertCounterIncrementBefore(blk, idx, lp.get(blk))
	idx = blk.IndexOf(inst)

	normal := inst.NormalDest
	if t.module.isCallToOutside(inst.CalleeName) {
		t.insertTxEnd(blk, idx)
		if normal != nil {
			insertAt := normal.FirstNonPHI()
			if len(normal.Predecessors) != 1 {
				t.insertTxEnd(normal, insertAt)
				insertAt++
			}
			t.insertTxStart(normal, insertAt)
		}
	} else if normal != nil {
		t.insertCondTxStart(normal, normal.FirstNonPHI())
	}

	lp.set(blk, 0)
	return nil
}

func (t *Transformer) visitReturn(blk *ir.BasicBlock, inst *ir.Instr, lp *longestPaths) error {
	idx := blk.IndexOf(inst)
	if t.fn.CalledFromOutside {
		t.insertTxEnd(blk, idx)
	} else {
		t.insertCounterIncrementBefore(blk, idx, lp.get(blk)-1) // ignore the return itself
	}
	lp.set(blk, 0)
	return nil
}


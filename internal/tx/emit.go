package tx

import "kanso/internal/ir"

// callNamed builds a call to one of the eight tx_* runtime primitives.
// Module construction (helpers.New) already validates that all eight
// are declared, so the lookup here cannot fail.
func (t *Transformer) callNamed(name string) *ir.Instr {
	fn, _ := t.module.helpers.TxPrimitive(name)
	call := t.fn.NewInstr(ir.OpCall)
	call.CalleeName = fn.Name
	return call
}

// insertTxStart emits tx_start() before index idx in blk.
func (t *Transformer) insertTxStart(blk *ir.BasicBlock, idx int) {
	blk.InsertBefore(idx, t.callNamed("tx_start"))
}

// insertTxEnd emits tx_end() before index idx in blk.
func (t *Transformer) insertTxEnd(blk *ir.BasicBlock, idx int) {
	blk.InsertBefore(idx, t.callNamed("tx_end"))
}

// insertCondTxStart emits tx_cond_start() before index idx in blk.
func (t *Transformer) insertCondTxStart(blk *ir.BasicBlock, idx int) {
	blk.InsertBefore(idx, t.callNamed("tx_cond_start"))
}

// insertCounterIncrementBefore emits tx_increment(inc) before index
// idx in blk, unless inc falls outside (0, maxSaneIncrement) (spec
// §4.9/§4.10, tx.cpp's sanity check in insertCounterIncrement).
func (t *Transformer) insertCounterIncrementBefore(blk *ir.BasicBlock, idx int, inc int) {
	if inc <= 0 || inc >= maxSaneIncrement {
		return
	}
	call := t.callNamed("tx_increment")
	call.Operands = []*ir.Value{ir.NewConstInt(ir.I64, int64(inc))}
	blk.InsertBefore(idx, call)
}

// insertCounterIncrement emits tx_increment(inc) immediately before
// term (a block terminator), for the loop-latch case (spec §4.9: "at
// each latch, emit tx_increment(LongestPath(latch))").
func (t *Transformer) insertCounterIncrement(term *ir.Instr, inc int) {
	if term == nil || term.Block == nil {
		return
	}
	idx := term.Block.IndexOf(term)
	if idx < 0 {
		return
	}
	t.insertCounterIncrementBefore(term.Block, idx, inc)
}

package tx

import "kanso/internal/ir"

// insertChecksOnLoopHeader implements spec §4.9's "Loop-header checks"
// bullet: find the constant-false conditional branch ILR planted at
// this loop's header (spec §4.7), substitute its condition with
// tx_threshold_exceeded(), drop the tx_cond_start that visitLoop just
// inserted (the dynamic counter check replaces it), and close/reopen
// the transaction around the checks block. A loop whose header carries
// no such placeholder (ILR found every header PHI already checked, or
// this pass runs standalone without ILR) is left untouched.
func (t *Transformer) insertChecksOnLoopHeader(l *ir.Loop) error {
	header := l.Header
	term := header.Terminator()
	if term == nil || term.Op != ir.OpBr || term.Cond == nil {
		return nil
	}
	if term.Cond.Kind != ir.ValConst || !ir.IsIntegral(term.Cond.Typ) || term.Cond.ConstInt != 0 {
		return nil
	}

	firstIdx := header.FirstNonPHI()
	if firstIdx >= len(header.Instructions) {
		return nil
	}
	condStart := header.Instructions[firstIdx]
	if condStart.Op != ir.OpCall {
		return nil
	}
	condStartFn, ok := t.module.helpers.TxPrimitive("tx_cond_start")
	if !ok || condStart.CalleeName != condStartFn.Name {
		return ir.Bug("tx-interlock", "loop header %s: expected tx_cond_start as its first non-phi instruction", header.Label)
	}
	header.Instructions = append(header.Instructions[:firstIdx], header.Instructions[firstIdx+1:]...)

	thresholdFn, ok := t.module.helpers.TxPrimitive("tx_threshold_exceeded")
	if !ok {
		return ir.Bug("missing-helper", "no tx_threshold_exceeded helper resolved")
	}
	flagCall := t.fn.NewInstr(ir.OpCall)
	flagCall.CalleeName = thresholdFn.Name
	flagCall.Result = t.fn.NewValue(thresholdFn.ReturnType, "")
	flagCall.Result.DefInstr = flagCall

	termIdx := header.IndexOf(term)
	header.InsertBefore(termIdx, flagCall)
	termIdx = header.IndexOf(term)

	trunc := t.fn.NewInstr(ir.OpTrunc)
	trunc.Operands = []*ir.Value{flagCall.Result}
	trunc.Result = t.fn.NewValue(&ir.IntType{Bits: 1}, "")
	trunc.Result.DefInstr = trunc
	header.InsertBefore(termIdx, trunc)

	term.Cond = trunc.Result

	checksBlk := term.Successors[0]
	checksTerm := checksBlk.Terminator()
	if checksTerm == nil {
		return ir.Bug("missing-terminator", "loop-header checks block %s has no terminator", checksBlk.Label)
	}
	idx := checksBlk.IndexOf(checksTerm)
	t.insertTxEnd(checksBlk, idx)
	idx = checksBlk.IndexOf(checksTerm)
	t.insertTxStart(checksBlk, idx)

	return nil
}

package tx

import "kanso/internal/ir"

// averageTripCount is tx.cpp's hardcoded estimate for a tight loop's
// iteration count, used to scale the preheader's counter bump when the
// loop's own conditional start/increment are optimized away.
const averageTripCount = 4

// optimizeTightLoop implements spec §4.11's tight-loop optimization: a
// single-BB loop of at most 20 instructions, with no calls to outside
// functions and no invokes/stores/atomics, whose only internal
// transaction artifacts are one tx_cond_start and one tx_increment.
// Erases both and folds an estimated total increment into the
// preheader, if a canonical one exists.
func (t *Transformer) optimizeTightLoop(l *ir.Loop) {
	if len(l.Blocks) != 1 {
		return
	}
	blk := l.Header
	path := len(blk.Instructions)
	if path > 20 {
		return
	}

	condStartFn, _ := t.module.helpers.TxPrimitive("tx_cond_start")
	incrementFn, _ := t.module.helpers.TxPrimitive("tx_increment")

	var condStartCall, incrementCall *ir.Instr
	for _, inst := range blk.Instructions {
		switch inst.Op {
		case ir.OpCall:
			switch inst.CalleeName {
			case condStartFn.Name:
				condStartCall = inst
				continue
			case incrementFn.Name:
				incrementCall = inst
				continue
			}
			if !t.module.isInternalFunc(inst.CalleeName) {
				return // some other call: loop is not tight
			}
		case ir.OpInvoke, ir.OpStore, ir.OpAtomicCmpXchg, ir.OpAtomicRMW:
			return // not simple enough
		}
	}

	if condStartCall == nil {
		return
	}
	if incrementCall == nil {
		return // malformed: a conditional start without its counter increment
	}

	eraseInstr(condStartCall)
	eraseInstr(incrementCall)

	if preheader := l.Preheader(); preheader != nil {
		t.insertCounterIncrement(preheader.Terminator(), path*averageTripCount)
	}
}

// optimizeCriticalSections implements spec §4.11's tiny-critical-
// section optimization: find pthread_mutex_lock/unlock pairs whose
// critical section is reachable within a BB, its immediate successors,
// or their successors, without outside calls or invokes in between,
// then — only where TX itself surrounded the lock/unlock with
// tx_end/tx_start (§4.9) — erase those boundaries and rebind the
// lock/unlock to the tx_pthread_mutex_lock/unlock HTM wrappers.
func (t *Transformer) optimizeCriticalSections() {
	var candidates []*ir.Instr
	seen := map[*ir.Instr]bool{}
	add := func(i *ir.Instr) {
		if !seen[i] {
			seen[i] = true
			candidates = append(candidates, i)
		}
	}

	for _, blk := range t.fn.Blocks {
		for _, inst := range blk.Instructions {
			if inst.Op != ir.OpCall || inst.CalleeName != "pthread_mutex_lock" {
				continue
			}
			ends, ok := t.findCriticalSectionEnds(inst)
			if !ok {
				continue
			}
			add(inst)
			for _, e := range ends {
				add(e)
			}
		}
	}

	for _, inst := range candidates {
		t.optimizeLockInstr(inst)
	}
}

// scanStatus mirrors tx.cpp's tri-state checkInstructionsInCriticalSection
// return value: 0 not found (search must continue elsewhere), 1 found
// (or the section benignly terminated via unreachable), 2 too complex
// (abort the whole analysis for this lock).
type scanStatus int

const (
	scanNotFound scanStatus = iota
	scanFound
	scanComplex
)

func (t *Transformer) scanForUnlock(instrs []*ir.Instr) ([]*ir.Instr, scanStatus) {
	for _, inst := range instrs {
		switch inst.Op {
		case ir.OpCall:
			if inst.CalleeName == "pthread_mutex_unlock" {
				return []*ir.Instr{inst}, scanFound
			}
			if t.module.isInternalFunc(inst.CalleeName) {
				continue
			}
			return nil, scanComplex
		case ir.OpInvoke:
			return nil, scanComplex
		case ir.OpUnreachable:
			return nil, scanFound // benign program termination
		}
	}
	return nil, scanNotFound
}

// findCriticalSectionEnds locates the pthread_mutex_unlock call(s)
// matching lock, searching lock's own block tail, then its immediate
// successors, then successors-of-successors (spec §4.11's "reachable
// within the same BB, an immediate successor, or a successor-of-
// successor"). Returns ok=false if the section is too complex to
// optimize or no unlock is reachable at all.
func (t *Transformer) findCriticalSectionEnds(lock *ir.Instr) ([]*ir.Instr, bool) {
	blk := lock.Block
	idx := blk.IndexOf(lock)
	if ends, status := t.scanForUnlock(blk.Instructions[idx+1:]); status != scanNotFound {
		if status == scanComplex {
			return nil, false
		}
		return ends, true
	}

	if len(blk.Successors) == 0 {
		return nil, false
	}
	var all []*ir.Instr
	for _, succ := range blk.Successors {
		ends, status := t.scanForUnlock(succ.Instructions)
		switch status {
		case scanComplex:
			return nil, false
		case scanFound:
			all = append(all, ends...)
			continue
		}

		if len(succ.Successors) == 0 {
			return nil, false
		}
		for _, succ2 := range succ.Successors {
			ends2, status2 := t.scanForUnlock(succ2.Instructions)
			if status2 != scanFound {
				return nil, false
			}
			all = append(all, ends2...)
		}
	}
	if len(all) == 0 {
		return nil, false
	}
	return all, true
}

// optimizeLockInstr rebinds inst (a pthread_mutex_lock or _unlock call)
// to its tx_pthread_mutex_* HTM wrapper and removes the tx_end/tx_start
// pair immediately surrounding it, but only if that exact pair is
// present (TX itself must have placed it per §4.9).
func (t *Transformer) optimizeLockInstr(inst *ir.Instr) {
	blk := inst.Block
	idx := blk.IndexOf(inst)
	if idx <= 0 || idx+1 >= len(blk.Instructions) {
		return
	}
	prev, next := blk.Instructions[idx-1], blk.Instructions[idx+1]
	txEndFn, _ := t.module.helpers.TxPrimitive("tx_end")
	txStartFn, _ := t.module.helpers.TxPrimitive("tx_start")
	if prev.Op != ir.OpCall || prev.CalleeName != txEndFn.Name {
		return
	}
	if next.Op != ir.OpCall || next.CalleeName != txStartFn.Name {
		return
	}

	eraseInstr(next)
	eraseInstr(prev)

	wrapperName := "tx_pthread_mutex_lock"
	if inst.CalleeName == "pthread_mutex_unlock" {
		wrapperName = "tx_pthread_mutex_unlock"
	}
	wrapper, _ := t.module.helpers.TxPrimitive(wrapperName)
	inst.CalleeName = wrapper.Name
}

// optimizeEmptyTx implements spec §4.11's empty-Tx peephole, run to a
// fixpoint capped at two rounds by the caller (SPEC_FULL.md §12.4):
// adjacent tx_start/tx_end, tx_cond_start/tx_end, tx_start-or-
// tx_cond_start/tx_increment, and tx_increment/tx_end pairs collapse,
// each keeping whichever instruction actually ends or continues the
// transaction.
func (t *Transformer) optimizeEmptyTx() {
	startFn, _ := t.module.helpers.TxPrimitive("tx_start")
	condStartFn, _ := t.module.helpers.TxPrimitive("tx_cond_start")
	endFn, _ := t.module.helpers.TxPrimitive("tx_end")
	incFn, _ := t.module.helpers.TxPrimitive("tx_increment")

	kindOf := func(i *ir.Instr) string {
		if i.Op != ir.OpCall {
			return ""
		}
		switch i.CalleeName {
		case startFn.Name:
			return "start"
		case condStartFn.Name:
			return "cond_start"
		case endFn.Name:
			return "end"
		case incFn.Name:
			return "increment"
		default:
			return ""
		}
	}

	for _, blk := range t.fn.Blocks {
		i := 0
		for i < len(blk.Instructions)-1 {
			a, b := blk.Instructions[i], blk.Instructions[i+1]
			ka, kb := kindOf(a), kindOf(b)

			switch {
			case ka == "start" && kb == "end":
				eraseInstr(b)
				eraseInstr(a)
			case ka == "cond_start" && kb == "end":
				eraseInstr(a) // keep end
			case (ka == "start" || ka == "cond_start") && kb == "increment":
				eraseInstr(b) // keep start/cond_start
			case ka == "increment" && kb == "end":
				eraseInstr(a) // keep end
			default:
				i++
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

package tx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kanso/internal/ir"
)

// declareHelper adds a declared (body-less) helper function stub.
func declareHelper(prog *ir.Program, name string, ret ir.Type) {
	prog.Functions = append(prog.Functions, &ir.Function{Name: name, Declaration: true, ReturnType: ret})
}

func fullHelperSet(prog *ir.Program) {
	for _, tag := range []string{"i8", "i16", "i32", "i64", "ptr", "float", "double", "ps", "pd", "dq"} {
		declareHelper(prog, "check_"+tag, &ir.VoidType{})
		declareHelper(prog, "move_"+tag, ir.I32)
	}
	declareHelper(prog, "detected", &ir.VoidType{})
	declareHelper(prog, "tx_start", &ir.VoidType{})
	declareHelper(prog, "tx_end", &ir.VoidType{})
	declareHelper(prog, "tx_cond_start", &ir.VoidType{})
	declareHelper(prog, "tx_abort", &ir.VoidType{})
	declareHelper(prog, "tx_threshold_exceeded", ir.I32)
	declareHelper(prog, "tx_increment", &ir.VoidType{})
	declareHelper(prog, "tx_pthread_mutex_lock", &ir.VoidType{})
	declareHelper(prog, "tx_pthread_mutex_unlock", &ir.VoidType{})
}

func callsTo(blk *ir.BasicBlock, calleeName string) int {
	n := 0
	for _, inst := range blk.Instructions {
		if inst.Op == ir.OpCall && inst.CalleeName == calleeName {
			n++
		}
	}
	return n
}

// buildStraightLine builds a single-block function: x+1, a call to an
// outside function that is declared but not defined in the module,
// then a return.
func buildStraightLine(t *testing.T, calledFromOutside bool) (*ir.Program, *ir.Function) {
	t.Helper()
	prog := &ir.Program{}
	fullHelperSet(prog)

	b := ir.NewFunctionBuilder("straightline", ir.I32)
	x := b.AddParam("x", ir.I32)
	b.Block("entry")
	sum := b.Bin(ir.OpAdd, ir.I32, x, ir.NewConstInt(ir.I32, 1))
	called := b.Call(ir.I32, "opaque_fn", sum)
	b.Ret(called)

	fn, err := b.Finish()
	require.NoError(t, err)
	fn.CalledFromOutside = calledFromOutside
	prog.Functions = append(prog.Functions, fn)
	declareHelper(prog, "opaque_fn", ir.I32)
	return prog, fn
}

func TestCalledFromOutsideGetsUnconditionalStartAndEnd(t *testing.T) {
	prog, fn := buildStraightLine(t, true)
	m, err := NewModule(prog, Config{})
	require.NoError(t, err)

	tr := NewTransformer(m, fn)
	require.NoError(t, tr.Run())

	entry := fn.FindBlock("entry")
	require.NotNil(t, entry)
	require.Equal(t, 1, callsTo(entry, "tx_start"), "entry should carry exactly one unconditional tx_start")
	require.GreaterOrEqual(t, callsTo(entry, "tx_end"), 1, "a called-from-outside function must tx_end before every return")
}

func TestLocalFunctionGetsConditionalStart(t *testing.T) {
	prog, fn := buildStraightLine(t, false)
	m, err := NewModule(prog, Config{})
	require.NoError(t, err)

	tr := NewTransformer(m, fn)
	require.NoError(t, tr.Run())

	entry := fn.FindBlock("entry")
	require.NotNil(t, entry)
	require.Equal(t, 1, callsTo(entry, "tx_start"), "a local function's only tx_start reopens the transaction after the outside call; none is placed at entry")
	require.GreaterOrEqual(t, callsTo(entry, "tx_cond_start"), 1, "a local function gets tx_cond_start at entry")
}

func TestCallToOutsideCalleeWrapsWithEndStart(t *testing.T) {
	prog, fn := buildStraightLine(t, false)
	m, err := NewModule(prog, Config{})
	require.NoError(t, err)

	tr := NewTransformer(m, fn)
	require.NoError(t, tr.Run())

	entry := fn.FindBlock("entry")
	require.NotNil(t, entry)

	// opaque_fn has no body in the module (only a bare Declaration
	// stub, and no Helper Registry entry), so it must be treated as
	// outside.
	var sawCallIdx, sawEndBefore, sawStartAfter = -1, false, false
	for i, inst := range entry.Instructions {
		if inst.Op == ir.OpCall && inst.CalleeName == "opaque_fn" {
			sawCallIdx = i
		}
	}
	require.GreaterOrEqual(t, sawCallIdx, 1, "expected to find the call to opaque_fn")
	if sawCallIdx > 0 {
		prev := entry.Instructions[sawCallIdx-1]
		sawEndBefore = prev.Op == ir.OpCall && prev.CalleeName == "tx_end"
	}
	if sawCallIdx+1 < len(entry.Instructions) {
		next := entry.Instructions[sawCallIdx+1]
		sawStartAfter = next.Op == ir.OpCall && next.CalleeName == "tx_start"
	}
	require.True(t, sawEndBefore, "expected tx_end immediately before the outside call")
	require.True(t, sawStartAfter, "expected tx_start immediately after the outside call")
	require.Equal(t, 0, callsTo(entry, "tx_increment"), "the increment placed before the boundary wrap is erased by the empty-Tx peephole, since tx_end directly follows it")
}

// TestInvokeOutsideCalleeMultiPredNormalDestEmitsEndThenStart builds an
// invoke of an outside callee whose normal destination has more than
// one predecessor. The boundary re-opens a transaction across that
// join, so it must insert tx_end before tx_start in that textual
// order: if the order were reversed, the empty-Tx peephole would see
// an adjacent tx_start;tx_end-shaped (or otherwise matchable) pair and
// collapse it, silently dropping the reopened transaction.
func TestInvokeOutsideCalleeMultiPredNormalDestEmitsEndThenStart(t *testing.T) {
	prog := &ir.Program{}
	fullHelperSet(prog)
	declareHelper(prog, "opaque_fn", ir.I32)

	b := ir.NewFunctionBuilder("invoker", &ir.VoidType{})
	x := b.AddParam("x", ir.I32)
	entry := b.Block("entry")
	invokePath := b.Fn.NewBlock("invoke_path")
	directPath := b.Fn.NewBlock("direct_path")
	normal := b.Fn.NewBlock("normal")
	unwind := b.Fn.NewBlock("unwind")

	b.SetBlock(entry)
	cond := b.ICmp("eq", x, ir.NewConstInt(ir.I32, 0))
	b.CondBr(cond, invokePath, directPath)

	b.SetBlock(invokePath)
	invoke := b.Fn.NewInstr(ir.OpInvoke)
	invoke.CalleeName = "opaque_fn"
	invoke.Result = b.Fn.NewValue(ir.I32, "")
	invoke.Result.DefInstr = invoke
	invoke.NormalDest = normal
	invoke.UnwindDest = unwind
	invokePath.Append(invoke)

	b.SetBlock(directPath)
	b.Br(normal)

	b.SetBlock(normal)
	b.Ret(nil)

	b.SetBlock(unwind)
	b.Ret(nil)

	fn, err := b.Finish()
	require.NoError(t, err)
	prog.Functions = append(prog.Functions, fn)

	m, err := NewModule(prog, Config{})
	require.NoError(t, err)

	tr := NewTransformer(m, fn)
	require.NoError(t, tr.Run())

	normalBlk := fn.FindBlock("normal")
	require.NotNil(t, normalBlk)
	require.Len(t, normalBlk.Predecessors, 2, "normal must keep both predecessors for this case to exercise the multi-pred path")

	endIdx, startIdx := -1, -1
	for i, inst := range normalBlk.Instructions {
		if inst.Op != ir.OpCall {
			continue
		}
		if inst.CalleeName == "tx_end" && endIdx == -1 {
			endIdx = i
		}
		if inst.CalleeName == "tx_start" && startIdx == -1 {
			startIdx = i
		}
	}
	require.NotEqual(t, -1, endIdx, "expected a tx_end in the multi-predecessor normal dest")
	require.NotEqual(t, -1, startIdx, "expected a tx_start in the multi-predecessor normal dest")
	require.Less(t, endIdx, startIdx, "tx_end must precede tx_start so the reopened transaction survives the empty-Tx peephole")
}

func TestCallToLocalCalleeGetsOnlyCondStart(t *testing.T) {
	prog := &ir.Program{}
	fullHelperSet(prog)

	b := ir.NewFunctionBuilder("caller", ir.I32)
	b.Block("entry")
	called := b.Call(ir.I32, "sibling", ir.NewConstInt(ir.I32, 1))
	b.Ret(called)
	fn, err := b.Finish()
	require.NoError(t, err)
	prog.Functions = append(prog.Functions, fn)

	// sibling has a body elsewhere in the module: the Helper Registry
	// (via Classify/TxPrimitive) doesn't know it, but it is a defined,
	// local function, so it must resolve as known/local rather than
	// outside.
	sb := ir.NewFunctionBuilder("sibling", ir.I32)
	p := sb.AddParam("p", ir.I32)
	sb.Block("entry")
	sb.Ret(p)
	siblingFn, err := sb.Finish()
	require.NoError(t, err)
	prog.Functions = append(prog.Functions, siblingFn)

	m, err := NewModule(prog, Config{})
	require.NoError(t, err)

	tr := NewTransformer(m, fn)
	require.NoError(t, tr.Run())

	entry := fn.FindBlock("entry")
	require.NotNil(t, entry)
	require.Equal(t, 0, callsTo(entry, "tx_end"), "a call to a known local callee must not be wrapped in tx_end/tx_start")
	require.GreaterOrEqual(t, callsTo(entry, "tx_cond_start"), 1, "a call to a local callee gets a tx_cond_start after it")
}

// buildCountingLoop builds: entry -> header (phi i, cond i<10) -> body
// (i+1, br header) / exit (ret). A natural two-block loop (header,
// body) whose only latch is body.
func buildCountingLoop(t *testing.T) (*ir.Program, *ir.Function) {
	t.Helper()
	prog := &ir.Program{}
	fullHelperSet(prog)

	b := ir.NewFunctionBuilder("countloop", &ir.VoidType{})
	entry := b.Block("entry")
	header := b.Fn.NewBlock("header")
	body := b.Fn.NewBlock("body")
	exit := b.Fn.NewBlock("exit")

	b.SetBlock(entry)
	b.Br(header)

	b.SetBlock(header)
	i := b.Phi(ir.I32)
	b.AddIncoming(i, ir.NewConstInt(ir.I32, 0), entry)
	cond := b.ICmp("slt", i.Result, ir.NewConstInt(ir.I32, 10))
	b.CondBr(cond, body, exit)

	b.SetBlock(body)
	iNext := b.Bin(ir.OpAdd, ir.I32, i.Result, ir.NewConstInt(ir.I32, 1))
	b.AddIncoming(i, iNext, body)
	b.Br(header)

	b.SetBlock(exit)
	b.Ret(nil)

	fn, err := b.Finish()
	require.NoError(t, err)
	prog.Functions = append(prog.Functions, fn)
	return prog, fn
}

func TestLoopHeaderGetsCondStartAndLatchGetsIncrement(t *testing.T) {
	prog, fn := buildCountingLoop(t)
	m, err := NewModule(prog, Config{})
	require.NoError(t, err)

	tr := NewTransformer(m, fn)
	require.NoError(t, tr.Run())

	header := fn.FindBlock("header")
	body := fn.FindBlock("body")
	require.NotNil(t, header)
	require.NotNil(t, body)

	require.GreaterOrEqual(t, callsTo(header, "tx_cond_start"), 1, "the loop header should carry a tx_cond_start")
	require.GreaterOrEqual(t, callsTo(body, "tx_increment"), 1, "the loop's single latch (body) should carry a counter increment")
}

// TestLoopHeaderCheckInterlockRewritesPlaceholder exercises §4.9's
// loop-header check interlock: ILR plants a constant-false conditional
// branch at a loop header (its own synthesized "checks" block as the
// true successor) whenever a header PHI escapes unchecked; TX must
// find that placeholder, drop the tx_cond_start it just inserted, and
// rewire the branch condition through tx_threshold_exceeded().
func TestLoopHeaderCheckInterlockRewritesPlaceholder(t *testing.T) {
	prog := &ir.Program{}
	fullHelperSet(prog)

	b := ir.NewFunctionBuilder("placeholderloop", &ir.VoidType{})
	entry := b.Block("entry")
	header := b.Fn.NewBlock("header")
	checks := b.Fn.NewBlock("header.ilrcheck")
	tail := b.Fn.NewBlock("header.ilrtail")
	exit := b.Fn.NewBlock("exit")

	b.SetBlock(entry)
	b.Br(header)

	b.SetBlock(header)
	i := b.Phi(ir.I32)
	b.AddIncoming(i, ir.NewConstInt(ir.I32, 0), entry)
	// ILR's placeholder: a constant-false conditional branch to its own
	// synthesized checks block, falling through to the tail on the
	// common (unchecked) path.
	b.CondBr(ir.NewConstInt(&ir.IntType{Bits: 1}, 0), checks, tail)

	b.SetBlock(checks)
	b.Br(tail)

	b.SetBlock(tail)
	iNext := b.Bin(ir.OpAdd, ir.I32, i.Result, ir.NewConstInt(ir.I32, 1))
	cond := b.ICmp("slt", iNext, ir.NewConstInt(ir.I32, 10))
	loopBody := b.Fn.NewBlock("loopbody")
	b.CondBr(cond, loopBody, exit)

	b.SetBlock(loopBody)
	b.AddIncoming(i, iNext, loopBody)
	b.Br(header)

	b.SetBlock(exit)
	b.Ret(nil)

	fn, err := b.Finish()
	require.NoError(t, err)
	prog.Functions = append(prog.Functions, fn)

	m, err := NewModule(prog, Config{})
	require.NoError(t, err)

	tr := NewTransformer(m, fn)
	require.NoError(t, tr.Run())

	headerBlk := fn.FindBlock("header")
	require.NotNil(t, headerBlk)
	term := headerBlk.Terminator()
	require.NotNil(t, term)
	require.NotNil(t, term.Cond)
	require.Equal(t, ir.OpTrunc, term.Cond.DefInstr.Op, "the branch condition should now be the truncated tx_threshold_exceeded() result")

	require.Equal(t, 0, callsTo(headerBlk, "tx_cond_start"), "the header's own tx_cond_start must have been removed by the interlock")

	checksBlk := fn.FindBlock("header.ilrcheck")
	require.NotNil(t, checksBlk)
	require.GreaterOrEqual(t, callsTo(checksBlk, "tx_end"), 1)
	require.GreaterOrEqual(t, callsTo(checksBlk, "tx_start"), 1)
}

// TestEmptyTxPeepholeCollapsesAdjacentStartEnd builds a function whose
// entry block holds a hand-placed, immediately adjacent
// tx_cond_start/tx_end pair with nothing transacted in between, runs
// only the peephole (no boundary placement), and checks it collapses
// the pair.
func TestEmptyTxPeepholeCollapsesAdjacentStartEnd(t *testing.T) {
	prog := &ir.Program{}
	fullHelperSet(prog)

	b := ir.NewFunctionBuilder("emptytx", &ir.VoidType{})
	entry := b.Block("entry")
	condStart := b.Fn.NewInstr(ir.OpCall)
	condStart.CalleeName = "tx_cond_start"
	entry.Append(condStart)
	end := b.Fn.NewInstr(ir.OpCall)
	end.CalleeName = "tx_end"
	entry.Append(end)
	b.Ret(nil)

	fn, err := b.Finish()
	require.NoError(t, err)
	prog.Functions = append(prog.Functions, fn)

	m, err := NewModule(prog, Config{})
	require.NoError(t, err)

	tr := NewTransformer(m, fn)
	tr.optimizeEmptyTx()
	tr.optimizeEmptyTx()

	entry := fn.FindBlock("entry")
	require.Equal(t, 0, callsTo(entry, "tx_cond_start"))
	require.Equal(t, 1, callsTo(entry, "tx_end"), "tx_end survives a cond_start/end collapse")
}

// buildSingleBlockLoop builds a loop whose header is its own latch
// (one block total): entry -> header (phi i, i+1, cond, condbr
// header/exit) -> exit (ret). This is the shape §4.11's tight-loop
// optimization targets.
func buildSingleBlockLoop(t *testing.T) (*ir.Program, *ir.Function) {
	t.Helper()
	prog := &ir.Program{}
	fullHelperSet(prog)

	b := ir.NewFunctionBuilder("tightloop", &ir.VoidType{})
	entry := b.Block("entry")
	header := b.Fn.NewBlock("header")
	exit := b.Fn.NewBlock("exit")

	b.SetBlock(entry)
	b.Br(header)

	b.SetBlock(header)
	i := b.Phi(ir.I32)
	b.AddIncoming(i, ir.NewConstInt(ir.I32, 0), entry)
	iNext := b.Bin(ir.OpAdd, ir.I32, i.Result, ir.NewConstInt(ir.I32, 1))
	b.AddIncoming(i, iNext, header)
	cond := b.ICmp("slt", iNext, ir.NewConstInt(ir.I32, 10))
	b.CondBr(cond, header, exit)

	b.SetBlock(exit)
	b.Ret(nil)

	fn, err := b.Finish()
	require.NoError(t, err)
	prog.Functions = append(prog.Functions, fn)
	return prog, fn
}

// TestTightLoopOptimizationFoldsIntoPreheader builds a loop small
// enough (single BB, <=20 raw instructions) to qualify for the
// tight-loop optimization and checks its own tx_cond_start/tx_increment
// are erased in favor of a scaled bump in the preheader.
func TestTightLoopOptimizationFoldsIntoPreheader(t *testing.T) {
	prog, fn := buildSingleBlockLoop(t)
	m, err := NewModule(prog, Config{})
	require.NoError(t, err)

	tr := NewTransformer(m, fn)
	require.NoError(t, tr.Run())

	header := fn.FindBlock("header")
	entry := fn.FindBlock("entry")
	require.NotNil(t, header)
	require.NotNil(t, entry)

	require.Equal(t, 0, callsTo(header, "tx_cond_start"), "the tight loop's own cond_start should be erased")
	require.Equal(t, 0, callsTo(header, "tx_increment"), "the tight loop's own increment should be erased")
	require.GreaterOrEqual(t, callsTo(entry, "tx_increment"), 1, "the preheader should carry the folded, scaled increment")
}

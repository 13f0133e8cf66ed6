package ir

import "testing"

// diamond builds entry -> {a,b} -> join -> ret, the textbook shape for
// dominator/PHI tests.
func diamond(t *testing.T) *Function {
	t.Helper()
	b := NewFunctionBuilder("diamond", &IntType{Bits: 32})
	entry := b.Block("entry")
	cond := b.ICmp("eq", NewConstInt(I32, 0), NewConstInt(I32, 0))
	_ = cond
	ifTrue := b.Fn.NewBlock("if_true")
	ifFalse := b.Fn.NewBlock("if_false")
	join := b.Fn.NewBlock("join")
	b.SetBlock(entry)
	b.CondBr(cond, ifTrue, ifFalse)

	b.SetBlock(ifTrue)
	v1 := NewConstInt(I32, 1)
	b.Br(join)

	b.SetBlock(ifFalse)
	v2 := NewConstInt(I32, 2)
	b.Br(join)

	b.SetBlock(join)
	phi := b.Phi(I32)
	b.AddIncoming(phi, v1, ifTrue)
	b.AddIncoming(phi, v2, ifFalse)
	b.Ret(phi.Result)

	fn, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return fn
}

func TestDominatorTreeDiamond(t *testing.T) {
	fn := diamond(t)
	entry, ifTrue, ifFalse, join := fn.Blocks[0], fn.Blocks[1], fn.Blocks[2], fn.Blocks[3]

	if got := fn.Dom.Idom(ifTrue); got != entry {
		t.Errorf("idom(if_true) = %v, want entry", got.Label)
	}
	if got := fn.Dom.Idom(ifFalse); got != entry {
		t.Errorf("idom(if_false) = %v, want entry", got.Label)
	}
	if got := fn.Dom.Idom(join); got != entry {
		t.Errorf("idom(join) = %v, want entry (neither branch alone dominates join)", got.Label)
	}
	if !fn.Dom.Dominates(entry, join) {
		t.Error("entry should dominate join")
	}
	if fn.Dom.Dominates(ifTrue, join) {
		t.Error("if_true should not dominate join")
	}
}

func TestDominatorTreeDFSOrder(t *testing.T) {
	fn := diamond(t)
	order := fn.Dom.DFS()
	if len(order) != 4 {
		t.Fatalf("DFS order length = %d, want 4", len(order))
	}
	if order[0] != fn.Blocks[0] {
		t.Errorf("DFS should start at entry")
	}
}

func TestLoopForestNaturalLoop(t *testing.T) {
	b := NewFunctionBuilder("loopfn", &VoidType{})
	entry := b.Block("entry")
	header := b.Fn.NewBlock("header")
	body := b.Fn.NewBlock("body")
	exit := b.Fn.NewBlock("exit")

	b.SetBlock(entry)
	b.Br(header)

	b.SetBlock(header)
	cond := b.ICmp("slt", NewConstInt(I32, 0), NewConstInt(I32, 10))
	b.CondBr(cond, body, exit)

	b.SetBlock(body)
	b.Br(header) // back edge

	b.SetBlock(exit)
	b.Ret(nil)

	fn, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	loops := fn.Loop.AllLoops()
	if len(loops) != 1 {
		t.Fatalf("expected 1 loop, got %d", len(loops))
	}
	l := loops[0]
	if l.Header != header {
		t.Errorf("loop header = %v, want header block", l.Header.Label)
	}
	if !l.Contains(body) {
		t.Error("loop should contain body")
	}
	if l.Contains(exit) {
		t.Error("loop should not contain exit")
	}
	if pre := l.Preheader(); pre != entry {
		t.Errorf("preheader = %v, want entry", pre)
	}
	if len(l.Latches) != 1 || l.Latches[0] != body {
		t.Errorf("latches = %v, want [body]", l.Latches)
	}
}

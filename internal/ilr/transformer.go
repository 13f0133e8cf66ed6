package ilr

import (
	"kanso/internal/coerce"
	"kanso/internal/helpers"
	"kanso/internal/ir"
	"kanso/internal/shadow"
)

// Transformer runs ILR over a single function. One Transformer is used
// per function (spec §3 Lifecycles: "Shadow Map and analyses live for
// one function"); the Module it is built from supplies the
// module-lifetime caches.
type Transformer struct {
	module *Module
	fn     *ir.Function
	shadow *shadow.Map
	nextID uint32

	// phisToRewire holds shadow PHIs whose operand rebinding is
	// deferred until every block has been processed (spec §4.4.b /
	// §4.5), matching ilr.cpp's two-phase shadowInst-then-rewireShadowPhis.
	phisToRewire []phiPair

	// loopHeaderCandidates is not populated: §4.7's loop-header checks
	// are found after the main walk by insertChecksOnLoopHeaders, which
	// scans every loop in the function directly.
	loopHeaderCandidates []*ir.Loop

	// moverShadow marks shadow values produced via a move_* call
	// (possibly through an inverse-cast chain), so the immediate-check
	// optimization (§4.4.c) can skip redundant checks on them.
	moverShadow map[*ir.Value]bool
}

type phiPair struct {
	original *ir.Instr
	shadowI  *ir.Instr
}

// NewTransformer prepares fn for ILR. fn.Finalize must already have
// been called (dominator tree and loop forest populated).
func NewTransformer(m *Module, fn *ir.Function) *Transformer {
	return &Transformer{
		module:      m,
		fn:          fn,
		shadow:      shadow.New(),
		moverShadow: map[*ir.Value]bool{},
	}
}

// Run executes the full ILR pipeline on the function: §4.4 instruction
// duplication (via the Pass Driver's traversal, pass.go), §4.5 phi
// rewiring, §4.6 check insertion (folded into the same per-instruction
// walk as §4.4), §4.7 loop-header checks, §4.8 control-flow shadow
// blocks. Returns the populated Shadow Map for callers that want to
// inspect it (e.g. property tests).
func (t *Transformer) Run() (*shadow.Map, error) {
	if err := runPassDriver(t); err != nil {
		return nil, err
	}
	if err := t.rewireShadowPhis(); err != nil {
		return nil, err
	}
	if err := t.insertChecksOnLoopHeaders(); err != nil {
		return nil, err
	}
	if err := t.addControlFlowChecks(); err != nil {
		return nil, err
	}

	// Finalize first so removeUnusedMovers sees accurate use lists for
	// every check/shadow/control-flow instruction inserted above, then
	// finalize again since erasing calls changes the function.
	if err := t.fn.Finalize(); err != nil {
		return nil, err
	}
	t.removeUnusedMovers()
	if err := t.fn.Finalize(); err != nil {
		return nil, err
	}
	return t.shadow, nil
}

func (t *Transformer) freshCheckID() uint32 {
	id := t.nextID
	t.nextID++
	return id
}

// getShadow returns the shadow of v, or v itself for no-shadow-kind
// values (constants etc.), per spec §4.2/§3.
func (t *Transformer) getShadow(v *ir.Value) (*ir.Value, error) {
	if v == nil {
		return nil, nil
	}
	return t.shadow.Get(v)
}

// classify exposes the Helper Registry's callee classification to the
// instruction-level logic without it needing the helpers package
// directly wired into every call site.
func (t *Transformer) classify(name string) helpers.Class { return helpers.Classify(name) }

// Package ilr implements the Instruction-Level Replication pass
// (spec §4.4-§4.8): per-instruction shadow duplication, phi rewiring,
// check insertion, loop-header checks, and control-flow shadow blocks.
//
// Grounded on original_source/src/ilr/pass/ilr.cpp in full
// (SwiftTransformer + SwiftPass).
package ilr

import (
	"fmt"

	"github.com/iancoleman/strcase"
	"github.com/sasha-s/go-deadlock"

	"kanso/internal/helpers"
	"kanso/internal/ir"
)

// Module owns the module-level caches the spec requires to survive
// across functions but never across compilation runs (spec §3
// Lifecycles: "created lazily and never freed"; §5: "guarded by a
// lock" if function passes run in parallel; §9 Design Notes: "model
// as a per-module struct owned by the pass manager; no global mutable
// state" — so, unlike ilr.cpp's namespace-scope globalconsts map,
// this is an explicit value with a lifetime scoped to one Module).
//
// go-deadlock (rather than a bare sync.Mutex) is used because these
// caches are exactly the kind of rarely-contended, long-lived lock a
// future concurrent pass driver could deadlock against if a second
// lock were ever introduced around them; deadlock detection is cheap
// insurance that exercises a dependency already present in the
// module's lock file.
type Module struct {
	mu deadlock.Mutex

	prog     *ir.Program
	helpers  *helpers.Registry
	detected map[*ir.Function]*ir.BasicBlock
	globals  map[globalKey]*ir.Global
}

type globalKey struct {
	typ string
	val int64
}

// NewModule resolves the Helper Registry for prog and returns a fresh
// Module ready to transform prog's functions one at a time.
func NewModule(prog *ir.Program) (*Module, error) {
	reg, err := helpers.New(prog)
	if err != nil {
		return nil, err
	}
	return &Module{
		prog:     prog,
		helpers:  reg,
		detected: map[*ir.Function]*ir.BasicBlock{},
		globals:  map[globalKey]*ir.Global{},
	}, nil
}

// DetectedBlock returns fn's Detected block, creating it on first use
// (spec §4.8: "Create once per function a Detected block containing a
// call to detected() followed by unreachable").
func (m *Module) DetectedBlock(fn *ir.Function) *ir.BasicBlock {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bb, ok := m.detected[fn]; ok {
		return bb
	}
	bb := fn.NewBlock(fmt.Sprintf("%s.detected", strcase.ToSnake(fn.Name)))
	call := fn.NewInstr(ir.OpCall)
	call.CalleeName = m.helpers.Detected().Name
	bb.Append(call)
	bb.Append(fn.NewInstr(ir.OpUnreachable))
	m.detected[fn] = bb
	return bb
}

// GlobalConstant returns the module-internal, read-only global backing
// an integer constant of type t (spec §4.5: "a per-constant, internally
// linked, read-only global variable initialized to the constant"),
// creating it on first use for this (type, value) pair. A lost race
// under concurrent access produces a harmless duplicate global, never
// a correctness problem (spec §5).
func (m *Module) GlobalConstant(t *ir.IntType, value int64) *ir.Global {
	key := globalKey{typ: t.String(), val: value}
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.globals[key]; ok {
		return g
	}
	g := &ir.Global{
		Name:     fmt.Sprintf("ilr.const.%s.%d", strcase.ToSnake(t.String()), len(m.globals)),
		Typ:      t,
		Init:     ir.NewConstInt(t, value),
		ReadOnly: true,
		Internal: true,
	}
	m.globals[key] = g
	m.prog.Globals = append(m.prog.Globals, g)
	return g
}

func (m *Module) Helpers() *helpers.Registry { return m.helpers }

// Close releases the module's caches. Mirrors the original FunctionPass's
// doFinalization lifecycle hook (§12.5 of SPEC_FULL.md); Go has no
// equivalent requirement, but making the scope explicit keeps a
// compilation run's state from silently outliving it.
func (m *Module) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detected = nil
	m.globals = nil
}

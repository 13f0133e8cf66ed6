// Package tx implements the Transactification pass (spec §4.9-§4.11):
// transaction boundary placement driven by a per-basic-block longest-path
// instruction counter, plus the empty-Tx, tight-loop, and tiny-critical-
// section optimizations.
//
// Grounded on original_source/src/tx/pass/tx.cpp in full
// (Transactifier + TransactifyPass).
package tx

import (
	"kanso/internal/helpers"
	"kanso/internal/ir"
)

// Module owns the module-level state TX needs across every function it
// transforms: the resolved Helper Registry and the Config controlling
// which functions are called-from-outside. Unlike ilr.Module there is
// no per-function lazy cache here (TX never synthesizes shared blocks
// the way ILR's Detected block is shared), so no mutex is needed; the
// constructor/Close pairing is kept anyway to mirror the lifecycle
// scoping used throughout this module (SPEC_FULL.md §12.5).
type Module struct {
	prog    *ir.Program
	helpers *helpers.Registry
	cfg     Config
}

// NewModule resolves the Helper Registry for prog and returns a Module
// configured by cfg, ready to transform prog's functions one at a time.
func NewModule(prog *ir.Program, cfg Config) (*Module, error) {
	reg, err := helpers.New(prog)
	if err != nil {
		return nil, err
	}
	return &Module{prog: prog, helpers: reg, cfg: cfg}, nil
}

func (m *Module) Helpers() *helpers.Registry { return m.helpers }
func (m *Module) Config() Config             { return m.cfg }

// Close is a no-op today (Module holds no lazily-allocated caches) but
// is kept for symmetry with ilr.Module's scoped lifecycle.
func (m *Module) Close() {}

// Package helpers implements the Helper Registry (spec §4.1): resolving
// the runtime ABI's check_*/move_*/detected/tx_* functions by name,
// and classifying arbitrary callees as Duplicated, Ignored, or Outside
// for ILR's instruction duplication and TX's boundary placement.
//
// Grounded on original_source/src/ilr/pass/ilr.cpp's SwiftHelpers
// class (addFunction, isDuplicatedFunc, isIgnoredFunc) and
// tx.cpp's isInternalFunc/isCallToOutside.
package helpers

import (
	"strings"

	"github.com/pkg/errors"

	"kanso/internal/ir"
)

// Class is a callee's classification under §4.1.
type Class int

const (
	ClassOutside Class = iota
	ClassDuplicated
	ClassIgnored
)

func (c Class) String() string {
	switch c {
	case ClassDuplicated:
		return "duplicated"
	case ClassIgnored:
		return "ignored"
	default:
		return "outside"
	}
}

// ShadowPrefix is the module-wide marker identifying ILR/TX-generated
// symbol names (spec §6: "the literal `$`-containing marker"). Any
// name carrying it is always Ignored. The runtime helpers themselves
// are resolved under their plain names (check_<T>, move_<T>,
// detected, tx_*), which Classify also reports as Ignored.
const ShadowPrefix = "swift$"

// CanonicalTypeTags enumerates the ten canonical helper-
// supported element types (spec §4.1), keyed by a short tag used to
// build the check_<T>/move_<T> symbol name.
var CanonicalTypeTags = []string{"i8", "i16", "i32", "i64", "ptr", "float", "double", "ps", "pd", "dq"}

// duplicatedPrefixes are callee-name prefixes ILR treats as pure
// (clone-as-instruction) intrinsics: float/bitwise/overflow/FMA
// families, matching ilr.cpp's isDuplicatedFunc exactly.
var duplicatedPrefixes = []string{
	"llvm.sqrt.", "llvm.powi.", "llvm.pow.", "llvm.sin.", "llvm.cos.",
	"llvm.exp.", "llvm.exp2.", "llvm.log.", "llvm.log10.", "llvm.log2.",
	"llvm.fma.", "llvm.fmuladd.",
	"llvm.fabs.", "llvm.minnum.", "llvm.maxnum.",
	"llvm.ctpop.", "llvm.ctlz.", "llvm.cttz.", "llvm.bswap.",
	"llvm.convert.",
	"llvm.sadd.with.overflow.", "llvm.uadd.with.overflow.",
	"llvm.ssub.with.overflow.", "llvm.usub.with.overflow.",
	"llvm.smul.with.overflow.", "llvm.umul.with.overflow.",
}

const dummyMarker = "__dummy__"

// ignoredExact is the fixed set of ignored function names (debug,
// lifetime, annotation, stack save/restore, assume/expect),
// matching ilr.cpp's isIgnoredFunc literal set.
var ignoredExact = map[string]bool{
	"llvm.dbg.declare":   true,
	"llvm.dbg.value":     true,
	"llvm.lifetime.start": true,
	"llvm.lifetime.end":   true,
	"llvm.stacksave":      true,
	"llvm.stackrestore":   true,
	"llvm.assume":         true,
	"llvm.expect.i1":      true,
	dummyMarker:           true,
}

// txPrimitiveNames are the eight runtime transaction primitives (spec
// §1/§6). Always ignored by ILR (never shadowed/checked) and resolved
// exactly once by this registry for the TX pass.
var txPrimitiveNames = []string{
	"tx_start", "tx_end", "tx_cond_start", "tx_abort",
	"tx_threshold_exceeded", "tx_increment",
	"tx_pthread_mutex_lock", "tx_pthread_mutex_unlock",
}

// Func is a resolved runtime-helper or module function reference.
type Func struct {
	Name        string
	Declaration bool
	ReturnType  ir.Type
	ParamTypes  []ir.Type
}

// Registry is the module-level Helper Registry (spec §4.1), resolved
// once per module (lives for one module, per spec §3 Lifecycles).
type Registry struct {
	checkers map[string]*Func // by canonical type tag
	movers   map[string]*Func
	detected *Func
	tx       map[string]*Func

	// known holds every resolved in-module function by name, used to
	// distinguish "outside" (undefined) from "local" (defined) callees
	// in TX's isCallToOutside (spec §4.9).
	known map[string]*ir.Function
}

// New resolves the Helper Registry against prog's functions. It fails
// (spec §4.1 "Failure") if any required checker, mover, detected, or
// tx_* helper declaration is missing.
func New(prog *ir.Program) (*Registry, error) {
	r := &Registry{
		checkers: map[string]*Func{},
		movers:   map[string]*Func{},
		tx:       map[string]*Func{},
		known:    map[string]*ir.Function{},
	}
	byName := map[string]*ir.Function{}
	for _, fn := range prog.Functions {
		byName[fn.Name] = fn
		r.known[fn.Name] = fn
	}

	for _, tag := range CanonicalTypeTags {
		checkName := "check_" + tag
		fn, ok := byName[checkName]
		if !ok {
			return nil, errors.Wrapf(missingHelper(checkName), "resolving Helper Registry")
		}
		r.checkers[tag] = &Func{Name: fn.Name, Declaration: fn.Declaration, ReturnType: fn.ReturnType}

		moveName := "move_" + tag
		mfn, ok := byName[moveName]
		if !ok {
			return nil, errors.Wrapf(missingHelper(moveName), "resolving Helper Registry")
		}
		r.movers[tag] = &Func{Name: mfn.Name, Declaration: mfn.Declaration, ReturnType: mfn.ReturnType}
	}

	detected, ok := byName["detected"]
	if !ok {
		return nil, errors.Wrapf(missingHelper("detected"), "resolving Helper Registry")
	}
	r.detected = &Func{Name: detected.Name, Declaration: detected.Declaration}

	for _, name := range txPrimitiveNames {
		fn, ok := byName[name]
		if !ok {
			return nil, errors.Wrapf(missingHelper(name), "resolving Helper Registry")
		}
		r.tx[name] = &Func{Name: fn.Name, Declaration: fn.Declaration, ReturnType: fn.ReturnType}
	}

	return r, nil
}

func missingHelper(name string) error {
	return ir.Bug("missing-helper", "required runtime helper %q is not declared in the module", name)
}

// Checker returns the check_<tag> helper for a canonical type tag.
func (r *Registry) Checker(tag string) (*Func, bool) { f, ok := r.checkers[tag]; return f, ok }

// Mover returns the move_<tag> helper for a canonical type tag.
func (r *Registry) Mover(tag string) (*Func, bool) { f, ok := r.movers[tag]; return f, ok }

// Detected returns the noreturn fault handler.
func (r *Registry) Detected() *Func { return r.detected }

// TxPrimitive returns one of the eight tx_* functions by name.
func (r *Registry) TxPrimitive(name string) (*Func, bool) { f, ok := r.tx[name]; return f, ok }

// IsKnown reports whether name is defined (not merely declared) inside
// the module.
func (r *Registry) IsKnown(name string) bool {
	fn, ok := r.known[name]
	return ok && !fn.Declaration
}

// Lookup returns the in-module function definition/declaration by name.
func (r *Registry) Lookup(name string) (*ir.Function, bool) {
	fn, ok := r.known[name]
	return fn, ok
}

// Classify implements spec §4.1's three-way callee classification.
func Classify(name string) Class {
	if name == "" {
		return ClassOutside // indirect call: conservatively not classified
	}
	if strings.HasPrefix(name, ShadowPrefix) {
		return ClassIgnored
	}
	for _, txName := range txPrimitiveNames {
		if name == txName {
			return ClassIgnored
		}
	}
	if name == "detected" || strings.HasPrefix(name, "check_") || strings.HasPrefix(name, "move_") {
		return ClassIgnored
	}
	if ignoredExact[name] {
		return ClassIgnored
	}
	for _, prefix := range duplicatedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return ClassDuplicated
		}
	}
	return ClassOutside
}

// IsIgnored and IsDuplicated adapt Classify to the function-value
// shape ir.InducesCheck expects.
func IsIgnored(name string) bool   { return Classify(name) == ClassIgnored }
func IsDuplicated(name string) bool { return Classify(name) == ClassDuplicated }

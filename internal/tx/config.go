package tx

import (
	"strings"

	"kanso/internal/helpers"
)

// Config mirrors tx.cpp's three command-line options (spec §6,
// §4.9): whether to wrap every function in an explicit transaction,
// which functions are called from outside the module, and whether
// indirect calls may be resolved to a closed set of known functions.
type Config struct {
	// FuncExplicitTrans forces every function to be treated as
	// called-from-outside and every callee as outside (--func-explicit-trans).
	FuncExplicitTrans bool

	// CalledFromOutside lists function names (typically event
	// handlers) invoked by code outside this module, in addition to
	// "main" which always counts (--called-from-outside, repeatable).
	CalledFromOutside map[string]bool

	// FuncPointersKnown, when true, treats an indirect call (unknown
	// callee) as local rather than conservatively outside
	// (--func-pointers-known).
	FuncPointersKnown bool

	// SafeExternals is the allowlist of external functions considered
	// syscall-free and therefore safe to treat as local even though
	// they are undefined in-module (SPEC_FULL.md §12.3). Defaults to
	// DefaultSafeExternals when nil.
	SafeExternals map[string]bool
}

// DefaultSafeExternals is tx.cpp's func_exceptions set: math/rand
// library calls known not to make syscalls.
var DefaultSafeExternals = map[string]bool{
	"__log_finite": true,
	"rand":         true,
	"lrand48":      true,
	"__dummy__":    true,
}

func (c *Config) safeExternals() map[string]bool {
	if c.SafeExternals != nil {
		return c.SafeExternals
	}
	return DefaultSafeExternals
}

// IsCalledFromOutside reports whether fnName's function cannot be
// inlined into an ambient caller transaction and must own its own
// boundary (spec §4.9).
func (c *Config) IsCalledFromOutside(fnName string) bool {
	if c.FuncExplicitTrans {
		return true
	}
	if fnName == "main" {
		return true
	}
	return c.CalledFromOutside[fnName]
}

// isSwiftFunc reports whether name carries the ILR/runtime marker
// prefix, matching tx.cpp's isSwiftFunc.
func isSwiftFunc(name string) bool {
	return strings.HasPrefix(name, helpers.ShadowPrefix)
}

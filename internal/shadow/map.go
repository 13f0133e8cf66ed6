// Package shadow implements the write-once Shadow Map (spec §4.2): a
// per-function, injective mapping from an original SSA value to its
// duplicated ("shadow") value.
//
// Grounded on original_source/src/ilr/pass/ilr.cpp's ValueShadowMap
// class (add/getShadow/hasShadow, and its exact no-shadow-value-kind
// list: Constant/BasicBlock/Function/InlineAsm/MetadataAsValue/
// InvokeInst/LandingPadInst).
package shadow

import (
	"kanso/internal/ir"
)

// Map is one function's shadow map. Zero value is ready to use.
type Map struct {
	entries map[*ir.Value]*ir.Value
	seen    map[*ir.Value]bool // not consulted: Injective recomputes the shadow set from entries
}

func New() *Map {
	return &Map{entries: map[*ir.Value]*ir.Value{}, seen: map[*ir.Value]bool{}}
}

// NoShadowKind reports whether v's kind is exempt from the Shadow Map
// entirely (spec §3: "Shadows of constants are the constant itself",
// §4.2: "returns None for constants, labels, function references,
// inline assembly, metadata, invokes, and landing-pad results").
func NoShadowKind(v *ir.Value) bool {
	switch v.Kind {
	case ir.ValConst, ir.ValBlockRef, ir.ValFuncRef, ir.ValInlineAsm, ir.ValMetadata, ir.ValGlobalRef:
		return true
	}
	return v.DefInstr != nil && (v.DefInstr.Op == ir.OpInvoke || v.DefInstr.Op == ir.OpLandingPad)
}

// Add records original -> shadow. It is write-once: adding a second
// shadow for the same original is a bug (spec §7 class 4, "Collision
// on write-once maps"). Adding a shadow for a no-shadow-kind value is
// also a bug — callers must check NoShadowKind first.
func (m *Map) Add(original, shadowValue *ir.Value) error {
	if NoShadowKind(original) {
		return ir.Bug("shadow-map", "attempted to shadow a no-shadow-kind value %s", original)
	}
	if _, exists := m.entries[original]; exists {
		return ir.Bug("shadow-map", "write-once collision: %s already has a shadow", original)
	}
	if m.entries == nil {
		m.entries = map[*ir.Value]*ir.Value{}
	}
	m.entries[original] = shadowValue
	return nil
}

// Has is the non-aborting membership check (spec §4.2).
func (m *Map) Has(original *ir.Value) bool {
	if NoShadowKind(original) {
		return false
	}
	_, ok := m.entries[original]
	return ok
}

// Get returns the shadow of original. For a no-shadow-kind value it
// returns (original, true) per spec §3 ("Shadows of constants are the
// constant itself"); for any other value it is a bug to call Get
// before Add (spec §4.2: "otherwise returns the shadow or aborts with
// 'value has no shadow'").
func (m *Map) Get(original *ir.Value) (*ir.Value, error) {
	if NoShadowKind(original) {
		return original, nil
	}
	s, ok := m.entries[original]
	if !ok {
		return nil, ir.Bug("shadow-map", "value %s has no shadow", original)
	}
	return s, nil
}

// Injective reports whether the map is currently injective (no two
// originals share a shadow) — exposed for property tests (spec §8
// property 2).
func (m *Map) Injective() bool {
	seenShadows := map[*ir.Value]bool{}
	for _, s := range m.entries {
		if seenShadows[s] {
			return false
		}
		seenShadows[s] = true
	}
	return true
}

// Len returns the number of recorded entries.
func (m *Map) Len() int { return len(m.entries) }

package tx

import "kanso/internal/helpers"

// isInternalFunc reports whether name refers to one of the eight tx_*
// runtime primitives, a check_*/move_*/detected Helper Registry
// symbol, or an ILR/TX-generated name — callees TX never wraps in a
// boundary of their own (tx.cpp: isInternalFunc).
func (m *Module) isInternalFunc(name string) bool {
	if name == "" {
		return false // indirect call: handled by isCallToOutside directly
	}
	if isSwiftFunc(name) {
		return true
	}
	switch helpers.Classify(name) {
	case helpers.ClassIgnored, helpers.ClassDuplicated:
		return true
	}
	if _, ok := m.helpers.TxPrimitive(name); ok {
		return true
	}
	if name == m.helpers.Detected().Name {
		return true
	}
	for _, tag := range helpers.CanonicalTypeTags {
		if c, ok := m.helpers.Checker(tag); ok && c.Name == name {
			return true
		}
		if mv, ok := m.helpers.Mover(tag); ok && mv.Name == name {
			return true
		}
	}
	return false
}

// isCallToOutside reports whether a call to calleeName (empty for an
// indirect call) must be treated as outside the module's transacted
// region — cannot execute inside an HTM transaction and therefore
// needs a tx_end/tx_start wrap around it (spec §4.9, tx.cpp:
// isCallToOutside).
func (m *Module) isCallToOutside(calleeName string) bool {
	if m.cfg.FuncExplicitTrans {
		return true
	}
	if calleeName == "" {
		return !m.cfg.FuncPointersKnown
	}
	if m.isInternalFunc(calleeName) {
		return false
	}
	if m.cfg.safeExternals()[calleeName] {
		return false
	}
	return !m.helpers.IsKnown(calleeName)
}

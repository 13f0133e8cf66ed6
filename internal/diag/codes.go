package diag

// Diagnostic codes for the hardening passes.
//
// Code ranges:
// B0001-B0099: fatal bugs (spec §7, items 1-5 — something the IR/
//              collaborator contract guarantees cannot happen)
// B0100-B0199: post-pass verifier failures (spec §7 item 6, external)
// W0001-W0099: non-fatal pass notices

const (
	// B0001: a required runtime helper (check_*/move_*/detected/tx_*)
	// is not declared in the module.
	BugMissingHelper = "B0001"

	// B0002: type coercion has no canonical target for a given IR type.
	BugUnhandledCoercionType = "B0002"

	// B0003: the write-once Shadow Map either has no shadow for a
	// value that should carry one, or was written to twice for the
	// same key — internal/shadow reports both under one category
	// since both are the same invariant (write-once, read-after-write)
	// breaking in opposite directions.
	BugShadowMapInvariant = "B0003"

	// B0004: an opcode fell outside the closed set a switch expected
	// to be exhaustive over.
	BugUnknownOpcode = "B0004"

	// B0005: TX's loop-header check interlock found a loop header that
	// didn't match the shape ILR is expected to have left it in.
	BugTxInterlock = "B0005"

	// B0100: the post-pass verifier rejected the transformed function.
	BugVerifierFailure = "B0100"

	// W0001: a helper resolved only as a declaration with no callers
	// reachable from the transformed functions (benign). Neither pass
	// emits it; the code is defined for Warning diagnostics.
	WarnUnusedHelper = "W0001"
)

// categoryCodes maps the ir.BugError category strings (internal/ir,
// internal/coerce, internal/shadow, internal/ilr, internal/tx all
// construct these via ir.Bug/ir.WrapBug) to a diagnostic code.
var categoryCodes = map[string]string{
	"missing-helper":          BugMissingHelper,
	"unhandled-coercion-type": BugUnhandledCoercionType,
	"shadow-map":              BugShadowMapInvariant,
	"unknown-opcode":          BugUnknownOpcode,
	"missing-terminator":      BugTxInterlock,
	"tx-interlock":            BugTxInterlock,
	"verifier":                BugVerifierFailure,
}

// codeForCategory resolves cat to its diagnostic code, falling back to
// the fixed placeholder code B0000 for a category this table does not
// name (never silently empty — an unmapped category is itself a
// sign the table needs a new entry, not a reason to drop the code).
func codeForCategory(cat string) string {
	if code, ok := categoryCodes[cat]; ok {
		return code
	}
	return "B0000"
}

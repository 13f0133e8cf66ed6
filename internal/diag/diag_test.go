package diag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"kanso/internal/ir"
)

func TestFormatIncludesLevelCodeAndMessage(t *testing.T) {
	d := New("missing-helper", "seq", "", "no check_i32 helper resolved").
		WithNote("the Helper Registry validates all ten checkers at construction").
		WithHelp("declare check_i32 in the module before running ILR")

	formatted := NewReporter().Format(d)
	assert.Contains(t, formatted, "bug["+BugMissingHelper+"]")
	assert.Contains(t, formatted, "no check_i32 helper resolved")
	assert.Contains(t, formatted, "--> seq")
	assert.Contains(t, formatted, "note:")
	assert.Contains(t, formatted, "help:")
}

func TestFormatWarningUsesWarningLevel(t *testing.T) {
	d := NewWarning(WarnUnusedHelper, "caller", "", "tx_abort resolved but never called")
	formatted := NewReporter().Format(d)
	assert.Contains(t, formatted, "warning["+WarnUnusedHelper+"]")
}

func TestFromErrorExtractsBugCategory(t *testing.T) {
	err := ir.Bug("unknown-opcode", "cannot invert predicate %q", "oops")
	d, ok := FromError("loopfn", err)
	assert.True(t, ok)
	assert.Equal(t, Bug, d.Level)
	assert.Equal(t, BugUnknownOpcode, d.Code)
	assert.Contains(t, d.Message, "cannot invert predicate")
}

func TestFromErrorRejectsPlainErrors(t *testing.T) {
	_, ok := FromError("caller", errors.New("not a bug"))
	assert.False(t, ok)
}

func TestFromErrorUnwrapsWrappedBug(t *testing.T) {
	inner := ir.Bug("shadow-map", "value has no shadow")
	wrapped := ir.WrapBug("shadow-map", inner, "while finalizing block %s", "header")
	d, ok := FromError("fn", wrapped)
	assert.True(t, ok)
	assert.Equal(t, BugShadowMapInvariant, d.Code)
}

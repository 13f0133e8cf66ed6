package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"kanso/internal/ir"
)

// Reporter formats Diagnostics with the teacher's Rust-like styling:
// a colored level[code]: message header, a location line, then any
// notes/help/suggestions. Unlike the teacher's ErrorReporter there is
// no source buffer to slice context lines out of — "-->" points at a
// function and, where known, a block or instruction instead of a
// file:line:column.
type Reporter struct{}

func NewReporter() *Reporter { return &Reporter{} }

func (r *Reporter) levelColor(level Level) func(a ...any) string {
	switch level {
	case Bug:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	default:
		return color.New(color.Bold).SprintFunc()
	}
}

// Format renders d the way the teacher's FormatError renders a
// CompilerError: a colored "level[code]: message" header, a dim
// "--> " location line, then notes/help/suggestions in that order.
func (r *Reporter) Format(d Diagnostic) string {
	var out strings.Builder
	levelColor := r.levelColor(d.Level)
	dim := color.New(color.Faint).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	if d.Code != "" {
		out.WriteString(fmt.Sprintf("%s[%s]: %s\n", levelColor(string(d.Level)), d.Code, d.Message))
	} else {
		out.WriteString(fmt.Sprintf("%s: %s\n", levelColor(string(d.Level)), d.Message))
	}

	if d.Function != "" {
		loc := d.Function
		if d.Location != "" {
			loc = fmt.Sprintf("%s, %s", d.Function, d.Location)
		}
		out.WriteString(fmt.Sprintf("  %s %s\n", dim("-->"), loc))
	}

	for i, s := range d.Suggestions {
		if i == 0 {
			out.WriteString(fmt.Sprintf("  %s %s: %s\n", cyan("help"), cyan("try"), s.Message))
		} else {
			out.WriteString(fmt.Sprintf("       %s\n", s.Message))
		}
	}
	for _, note := range d.Notes {
		out.WriteString(fmt.Sprintf("  %s %s\n", blue("note:"), note))
	}
	if d.HelpText != "" {
		out.WriteString(fmt.Sprintf("  %s %s\n", green("help:"), d.HelpText))
	}

	return out.String()
}

// FromError extracts a Diagnostic from err if it (or something it
// wraps) is an *ir.BugError, the shape every internal/ir, /coerce,
// /shadow, /ilr, /tx fallible call returns for a spec §7 taxonomy
// violation. Returns ok=false for any other error (a real I/O or
// config error from cmd/harden, say), which callers should report as
// a plain error instead of a diagnostic.
func FromError(function string, err error) (Diagnostic, bool) {
	var bug *ir.BugError
	if !errors.As(err, &bug) {
		return Diagnostic{}, false
	}
	return New(bug.Category, function, "", bug.Error()), true
}

// Package diag adapts the teacher's internal/errors (CompilerError,
// Suggestion, ErrorReporter, fatih/color Rust-style formatting) to
// spec §7's taxonomy: every diagnostic here is either a Bug (always
// fatal — "every error is a bug in the transformation, the IR, or the
// collaborator contract; none are end-user-recoverable") or a Warning
// (a non-fatal pass notice). There is no source text to point at, so
// location is a function name plus an optional instruction/block
// label instead of a file:line:column span.
package diag

// Level is a diagnostic's severity.
type Level string

const (
	Bug     Level = "bug"
	Warning Level = "warning"
)

// Suggestion is a short actionable note attached to a Diagnostic, kept
// from the teacher's Suggestion shape but without source-replacement
// fields (there is no source text to splice a fix into here).
type Suggestion struct {
	Message string
}

// Diagnostic is a structured bug/warning report: level, code, primary
// message, the function (and optionally the instruction) it concerns,
// plus suggestions/notes/help text carried straight from the teacher's
// CompilerError shape.
type Diagnostic struct {
	Level       Level
	Code        string
	Message     string
	Function    string
	Location    string // e.g. a block label or "instr #12"
	Suggestions []Suggestion
	Notes       []string
	HelpText    string
}

// New builds a fatal Bug diagnostic.
func New(category, function, location, message string) Diagnostic {
	return Diagnostic{Level: Bug, Code: codeForCategory(category), Message: message, Function: function, Location: location}
}

// NewWarning builds a non-fatal Warning diagnostic.
func NewWarning(code, function, location, message string) Diagnostic {
	return Diagnostic{Level: Warning, Code: code, Message: message, Function: function, Location: location}
}

func (d Diagnostic) WithNote(note string) Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.HelpText = help
	return d
}

func (d Diagnostic) WithSuggestion(message string) Diagnostic {
	d.Suggestions = append(d.Suggestions, Suggestion{Message: message})
	return d
}

package fixture

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// ScriptLexer tokenizes the scenario script notation (not an IR text
// format — see package doc comment): SSA value references (%x),
// callee/global references (@name), bare identifiers (keywords, type
// names, block labels), integer literals, and the small set of
// punctuation the grammar needs. Modeled directly on the teacher's
// grammar/lexer.go (stateful lexer, same rule-ordering discipline:
// longer/more specific patterns before the bare identifier catch-all).
var ScriptLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"ValueRef", `%[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"GlobalRef", `@[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Arrow", `->`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Integer", `-?[0-9]+`, nil},
		{"Punctuation", `[(){}\[\]:,=]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})

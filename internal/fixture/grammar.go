package fixture

// Script is the root of a parsed scenario script: a handful of
// functions, each a flat list of labeled blocks of instructions. This
// is a notation for AUTHORING test fixtures readably, not an IR text
// format (spec.md §1 keeps "parsing of IR" out of scope) — script.go
// walks this tree once, straight into ir.Builder calls, and is never
// round-tripped back to text.
type Script struct {
	Functions []*ScriptFunc `@@*`
}

type ScriptFunc struct {
	Name   string         `"fn" @Ident "("`
	Params []*ScriptParam `[ @@ { "," @@ } ] ")"`
	Ret    string         `[ Arrow @Ident ]`
	Blocks []*ScriptBlock `"{" @@+ "}"`
}

type ScriptParam struct {
	Name string `@ValueRef ":"`
	Type string `@Ident`
}

type ScriptBlock struct {
	Label string      `@Ident ":"`
	Insts []*ScriptInst `@@*`
}

// ScriptInst is exactly one instruction line; the Op determines which
// field is populated.
type ScriptInst struct {
	Bin   *BinOp   `  @@`
	ICmp  *ICmpOp  `| @@`
	Load  *LoadOp  `| @@`
	Phi   *PhiOp   `| @@`
	Call  *CallOp  `| @@`
	VCall *VCallOp `| @@`
	Store *StoreOp `| @@`
	Br    *BrOp    `| @@`
	CBr   *CondBrOp `| @@`
	Ret   *RetOp   `| @@`
}

// Operand is either an SSA value reference or an integer literal.
type Operand struct {
	Ref string `  @ValueRef`
	Num string `| @Integer`
}

// BinOp: %r = add i32 %a, %b   (Op is "add" or "sub")
type BinOp struct {
	Result string   `@ValueRef "="`
	Op     string   `@("add" | "sub")`
	Type   string   `@Ident`
	LHS    *Operand `@@ ","`
	RHS    *Operand `@@`
}

// ICmpOp: %r = icmp slt %a, %b
type ICmpOp struct {
	Result string   `@ValueRef "=" "icmp"`
	Pred   string   `@Ident`
	LHS    *Operand `@@ ","`
	RHS    *Operand `@@`
}

// LoadOp: %r = load i32 %addr
type LoadOp struct {
	Result string   `@ValueRef "=" "load"`
	Type   string   `@Ident`
	Addr   *Operand `@@`
}

// PhiOp: %r = phi i32 [ %a, entry ], [ %b, body ]
type PhiOp struct {
	Result    string          `@ValueRef "=" "phi"`
	Type      string          `@Ident`
	Incomings []*PhiIncoming  `"[" @@ "]" { "," "[" @@ "]" }`
}

type PhiIncoming struct {
	Value *Operand `@@ ","`
	From  string   `@Ident`
}

// CallOp: %r = call i32 @helper_fn(%a, %b)
type CallOp struct {
	Result string     `@ValueRef "=" "call"`
	Type   string      `@Ident`
	Callee string      `@GlobalRef "("`
	Args   []*Operand  `[ @@ { "," @@ } ] ")"`
}

// VCallOp: call @pthread_mutex_lock(%m)   (no result)
type VCallOp struct {
	Callee string     `"call" @GlobalRef "("`
	Args   []*Operand `[ @@ { "," @@ } ] ")"`
}

// StoreOp: store %val, %addr
type StoreOp struct {
	Val  *Operand `"store" @@ ","`
	Addr *Operand `@@`
}

// BrOp: br exit
type BrOp struct {
	Target string `"br" @Ident`
}

// CondBrOp: br %cond, body, exit
type CondBrOp struct {
	Cond    *Operand `"br" @@ ","`
	IfTrue  string   `@Ident ","`
	IfFalse string   `@Ident`
}

// RetOp: ret %r | ret
type RetOp struct {
	Value *Operand `"ret" [ @@ ]`
}

// Package ir implements the typed, SSA-form low-level intermediate
// representation shared by the ILR and TX passes: values, instructions
// over a closed opcode set, basic blocks, functions, and the dominator
// and loop analyses both passes depend on.
package ir

import (
	"fmt"

	"github.com/pkg/errors"
)

// Type is the closed set of IR types. Every concrete type below
// implements it; there is no open extension point, matching the
// closed opcode set the instructions are built on.
type Type interface {
	String() string
	isType()
}

type IntType struct{ Bits int }

func (t *IntType) String() string { return fmt.Sprintf("i%d", t.Bits) }
func (*IntType) isType()          {}

// PointerType models an opaque pointer; ElemHint is retained only for
// printing, matching typed-pointer IRs that predate opaque pointers.
type PointerType struct{ ElemHint Type }

func (t *PointerType) String() string {
	if t.ElemHint != nil {
		return t.ElemHint.String() + "*"
	}
	return "ptr"
}
func (*PointerType) isType() {}

type FloatKind int

const (
	FloatHalf FloatKind = iota
	FloatSingle
	FloatDouble
	FloatX87Extended
)

type FloatType struct{ Kind FloatKind }

func (t *FloatType) String() string {
	switch t.Kind {
	case FloatHalf:
		return "half"
	case FloatSingle:
		return "float"
	case FloatDouble:
		return "double"
	case FloatX87Extended:
		return "x86_fp80"
	default:
		return "float?"
	}
}
func (*FloatType) isType() {}

type VectorType struct {
	Elem  Type
	Lanes int
}

func (t *VectorType) String() string { return fmt.Sprintf("<%d x %s>", t.Lanes, t.Elem) }
func (*VectorType) isType()          {}

type StructType struct {
	Name   string
	Fields []Type
}

func (t *StructType) String() string {
	if t.Name != "" {
		return "%" + t.Name
	}
	return "struct"
}
func (*StructType) isType() {}

type VoidType struct{}

func (*VoidType) String() string { return "void" }
func (*VoidType) isType()        {}

type LabelType struct{}

func (*LabelType) String() string { return "label" }
func (*LabelType) isType()        {}

type FuncType struct {
	Params   []Type
	Ret      Type
	Variadic bool
}

func (t *FuncType) String() string { return "func" }
func (*FuncType) isType()          {}

// Canonical helper-supported scalar types (spec §4.1/§4.3). These are
// the only types the runtime's check_*/move_* helpers are overloaded
// for; the type coercer's job is collapsing every other IR type to
// one of these ten.
var (
	I8     = &IntType{Bits: 8}
	I16    = &IntType{Bits: 16}
	I32    = &IntType{Bits: 32}
	I64    = &IntType{Bits: 64}
	Ptr    = &PointerType{}
	Float  = &FloatType{Kind: FloatSingle}
	Double = &FloatType{Kind: FloatDouble}
	PS     = &VectorType{Elem: Float, Lanes: 4}
	PD     = &VectorType{Elem: Double, Lanes: 2}
	DQ     = &VectorType{Elem: I64, Lanes: 2}
)

// IsIntegral reports whether t is an IntType.
func IsIntegral(t Type) bool { _, ok := t.(*IntType); return ok }

func TypesEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch x := a.(type) {
	case *IntType:
		y, ok := b.(*IntType)
		return ok && x.Bits == y.Bits
	case *PointerType:
		_, ok := b.(*PointerType)
		return ok
	case *FloatType:
		y, ok := b.(*FloatType)
		return ok && x.Kind == y.Kind
	case *VectorType:
		y, ok := b.(*VectorType)
		return ok && x.Lanes == y.Lanes && TypesEqual(x.Elem, y.Elem)
	case *StructType:
		y, ok := b.(*StructType)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if !TypesEqual(x.Fields[i], y.Fields[i]) {
				return false
			}
		}
		return true
	case *VoidType:
		_, ok := b.(*VoidType)
		return ok
	case *LabelType:
		_, ok := b.(*LabelType)
		return ok
	default:
		return a == b
	}
}

// ValueKind discriminates the handful of value shapes the Shadow Map
// (internal/shadow) must treat specially: constants, block references
// and function references never get a shadow entry (spec §3, §4.2).
type ValueKind int

const (
	ValInstrResult ValueKind = iota
	ValParam
	ValConst
	ValBlockRef
	ValFuncRef
	ValInlineAsm
	ValMetadata
	ValGlobalRef
)

// Value is an SSA-named entity: an instruction result, a function
// parameter, a constant, a block label, or a function reference.
type Value struct {
	ID   int
	Name string
	Typ  Type
	Kind ValueKind

	// DefInstr is set when Kind == ValInstrResult.
	DefInstr *Instr
	// GlobalRef is set when Kind == ValGlobalRef: this value names the
	// address of a module-scope Global (spec §4.4's "base is a global
	// variable" case for Load shadowing).
	GlobalRef *Global
	// ConstInt/ConstFloat hold the literal for ValConst values of
	// integer/float type respectively; only one is meaningful.
	ConstInt   int64
	ConstFloat float64

	uses []*Use
}

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.Kind == ValConst {
		if IsIntegral(v.Typ) {
			return fmt.Sprintf("%s %d", v.Typ, v.ConstInt)
		}
		return fmt.Sprintf("%s %g", v.Typ, v.ConstFloat)
	}
	if v.Name != "" {
		return "%" + v.Name
	}
	return fmt.Sprintf("%%v%d", v.ID)
}

func (v *Value) Type() Type { return v.Typ }

// Uses returns the recorded use sites of v. Populated by Function.Finalize.
func (v *Value) Uses() []*Use { return v.uses }

// Use is one operand slot referencing a Value.
type Use struct {
	User  *Instr
	Value *Value
}

func NewConstInt(t Type, n int64) *Value {
	return &Value{Kind: ValConst, Typ: t, ConstInt: n}
}

func NewConstFloat(t Type, f float64) *Value {
	return &Value{Kind: ValConst, Typ: t, ConstFloat: f}
}

// Parameter is a function argument; it is also a Value (ValParam).
type Parameter struct {
	Value *Value
}

// BugError marks a spec §7 fatal taxonomy violation: something the
// upstream contract (a well-formed, opcode-complete, SSA-valid IR)
// guarantees cannot happen. It always carries a stack trace.
type BugError struct {
	Category string
	msg      string
	cause    error
}

func (e *BugError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Category, e.msg, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Category, e.msg)
}

func (e *BugError) Unwrap() error { return e.cause }

func Bug(category, format string, args ...any) error {
	return errors.WithStack(&BugError{Category: category, msg: fmt.Sprintf(format, args...)})
}

func WrapBug(category string, cause error, format string, args ...any) error {
	return errors.WithStack(&BugError{Category: category, msg: fmt.Sprintf(format, args...), cause: cause})
}

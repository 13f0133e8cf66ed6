// Package fixture promotes spec.md §8's named scenarios (seq,
// arraywrite, pthreadtest — described there only as prose test
// descriptions) to buildable, reusable Go fixtures, read from a tiny
// readable scenario-script notation instead of verbose ir.Builder
// call sequences repeated three times across internal/ilr,
// internal/tx, and cmd/harden's --demo mode (SPEC_FULL.md §12.1).
package fixture

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/pkg/errors"

	"kanso/internal/ir"
)

var scriptParser = participle.MustBuild[Script](
	participle.Lexer(ScriptLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(3),
)

// Parse reads source as a scenario script and builds one *ir.Function
// per "fn" block, returning them in source order.
func Parse(source string) ([]*ir.Function, error) {
	script, err := scriptParser.ParseString("", source)
	if err != nil {
		return nil, errors.Wrap(err, "parsing scenario script")
	}

	var fns []*ir.Function
	for _, sf := range script.Functions {
		fn, err := buildFunction(sf)
		if err != nil {
			return nil, errors.Wrapf(err, "building function %q", sf.Name)
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

func typeByName(name string) (ir.Type, error) {
	switch name {
	case "i8":
		return ir.I8, nil
	case "i16":
		return ir.I16, nil
	case "i32":
		return ir.I32, nil
	case "i64":
		return ir.I64, nil
	case "ptr":
		return ir.Ptr, nil
	case "float":
		return ir.Float, nil
	case "double":
		return ir.Double, nil
	case "void":
		return &ir.VoidType{}, nil
	case "i1":
		return &ir.IntType{Bits: 1}, nil
	default:
		return nil, fmt.Errorf("unknown scenario-script type %q", name)
	}
}

// buildFunction interprets one ScriptFunc into an *ir.Function. Block
// labels and parameters are resolved in a first pass (so a forward
// branch or a phi naming a not-yet-built block resolves cleanly),
// then every instruction is emitted in a second pass.
func buildFunction(sf *ScriptFunc) (*ir.Function, error) {
	retType, err := typeByName(orVoid(sf.Ret))
	if err != nil {
		return nil, err
	}

	b := ir.NewFunctionBuilder(sf.Name, retType)
	syms := map[string]*ir.Value{}
	for _, p := range sf.Params {
		t, err := typeByName(p.Type)
		if err != nil {
			return nil, err
		}
		syms[p.Name] = b.AddParam(p.Name[1:], t)
	}

	blocks := map[string]*ir.BasicBlock{}
	for _, sb := range sf.Blocks {
		blocks[sb.Label] = b.Fn.NewBlock(sb.Label)
	}

	// Phi results must exist before any instruction in any block can
	// reference them (a loop header's phi is read by its own latch),
	// so they are pre-declared before the instruction-emitting pass.
	var pendingPhis []*PhiOp
	for _, sb := range sf.Blocks {
		for _, inst := range sb.Insts {
			if inst.Phi == nil {
				continue
			}
			t, err := typeByName(inst.Phi.Type)
			if err != nil {
				return nil, err
			}
			b.SetBlock(blocks[sb.Label])
			phi := b.Phi(t)
			syms[inst.Phi.Result] = phi.Result
			pendingPhis = append(pendingPhis, inst.Phi)
		}
	}

	resolve := func(op *Operand, t ir.Type) (*ir.Value, error) {
		if op.Ref != "" {
			v, ok := syms[op.Ref]
			if !ok {
				return nil, fmt.Errorf("undefined value %s", op.Ref)
			}
			return v, nil
		}
		n, err := strconv.ParseInt(op.Num, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing integer literal %q", op.Num)
		}
		return ir.NewConstInt(t, n), nil
	}

	phiIdx := 0
	for _, sb := range sf.Blocks {
		blk := blocks[sb.Label]
		b.SetBlock(blk)
		for _, inst := range sb.Insts {
			switch {
			case inst.Bin != nil:
				if err := emitBin(b, syms, resolve, inst.Bin); err != nil {
					return nil, err
				}
			case inst.ICmp != nil:
				if err := emitICmp(b, syms, resolve, inst.ICmp); err != nil {
					return nil, err
				}
			case inst.Load != nil:
				if err := emitLoad(b, syms, resolve, inst.Load); err != nil {
					return nil, err
				}
			case inst.Phi != nil:
				if err := finishPhi(b, syms, blocks, resolve, pendingPhis[phiIdx]); err != nil {
					return nil, err
				}
				phiIdx++
			case inst.Call != nil:
				if err := emitCall(b, syms, resolve, inst.Call); err != nil {
					return nil, err
				}
			case inst.VCall != nil:
				if err := emitVCall(b, resolve, inst.VCall); err != nil {
					return nil, err
				}
			case inst.Store != nil:
				if err := emitStore(b, resolve, inst.Store); err != nil {
					return nil, err
				}
			case inst.Br != nil:
				target, ok := blocks[inst.Br.Target]
				if !ok {
					return nil, fmt.Errorf("undefined block %q", inst.Br.Target)
				}
				b.Br(target)
			case inst.CBr != nil:
				cond, err := resolve(inst.CBr.Cond, &ir.IntType{Bits: 1})
				if err != nil {
					return nil, err
				}
				ifTrue, ok := blocks[inst.CBr.IfTrue]
				if !ok {
					return nil, fmt.Errorf("undefined block %q", inst.CBr.IfTrue)
				}
				ifFalse, ok := blocks[inst.CBr.IfFalse]
				if !ok {
					return nil, fmt.Errorf("undefined block %q", inst.CBr.IfFalse)
				}
				b.CondBr(cond, ifTrue, ifFalse)
			case inst.Ret != nil:
				if inst.Ret.Value == nil {
					b.Ret(nil)
					continue
				}
				v, err := resolve(inst.Ret.Value, retType)
				if err != nil {
					return nil, err
				}
				b.Ret(v)
			}
		}
	}

	return b.Finish()
}

func orVoid(s string) string {
	if s == "" {
		return "void"
	}
	return s
}

func emitBin(b *ir.Builder, syms map[string]*ir.Value, resolve func(*Operand, ir.Type) (*ir.Value, error), in *BinOp) error {
	t, err := typeByName(in.Type)
	if err != nil {
		return err
	}
	lhs, err := resolve(in.LHS, t)
	if err != nil {
		return err
	}
	rhs, err := resolve(in.RHS, t)
	if err != nil {
		return err
	}
	op := ir.OpAdd
	if in.Op == "sub" {
		op = ir.OpSub
	}
	syms[in.Result] = b.Bin(op, t, lhs, rhs)
	return nil
}

func emitICmp(b *ir.Builder, syms map[string]*ir.Value, resolve func(*Operand, ir.Type) (*ir.Value, error), in *ICmpOp) error {
	lhs, err := resolve(in.LHS, ir.I32)
	if err != nil {
		return err
	}
	rhs, err := resolve(in.RHS, ir.I32)
	if err != nil {
		return err
	}
	syms[in.Result] = b.ICmp(in.Pred, lhs, rhs)
	return nil
}

func emitLoad(b *ir.Builder, syms map[string]*ir.Value, resolve func(*Operand, ir.Type) (*ir.Value, error), in *LoadOp) error {
	t, err := typeByName(in.Type)
	if err != nil {
		return err
	}
	addr, err := resolve(in.Addr, ir.Ptr)
	if err != nil {
		return err
	}
	syms[in.Result] = b.Load(t, addr)
	return nil
}

func finishPhi(b *ir.Builder, syms map[string]*ir.Value, blocks map[string]*ir.BasicBlock, resolve func(*Operand, ir.Type) (*ir.Value, error), in *PhiOp) error {
	result := syms[in.Result]
	phiInst := result.DefInstr
	t, err := typeByName(in.Type)
	if err != nil {
		return err
	}
	for _, inc := range in.Incomings {
		v, err := resolve(inc.Value, t)
		if err != nil {
			return err
		}
		from, ok := blocks[inc.From]
		if !ok {
			return fmt.Errorf("phi names undefined predecessor block %q", inc.From)
		}
		b.AddIncoming(phiInst, v, from)
	}
	return nil
}

func emitCall(b *ir.Builder, syms map[string]*ir.Value, resolve func(*Operand, ir.Type) (*ir.Value, error), in *CallOp) error {
	t, err := typeByName(in.Type)
	if err != nil {
		return err
	}
	args, err := resolveArgs(resolve, in.Args)
	if err != nil {
		return err
	}
	syms[in.Result] = b.Call(t, in.Callee[1:], args...)
	return nil
}

func emitVCall(b *ir.Builder, resolve func(*Operand, ir.Type) (*ir.Value, error), in *VCallOp) error {
	args, err := resolveArgs(resolve, in.Args)
	if err != nil {
		return err
	}
	b.Call(nil, in.Callee[1:], args...)
	return nil
}

func emitStore(b *ir.Builder, resolve func(*Operand, ir.Type) (*ir.Value, error), in *StoreOp) error {
	val, err := resolve(in.Val, ir.I8)
	if err != nil {
		return err
	}
	addr, err := resolve(in.Addr, ir.Ptr)
	if err != nil {
		return err
	}
	b.Store(addr, val)
	return nil
}

func resolveArgs(resolve func(*Operand, ir.Type) (*ir.Value, error), ops []*Operand) ([]*ir.Value, error) {
	args := make([]*ir.Value, 0, len(ops))
	for _, op := range ops {
		v, err := resolve(op, ir.I32)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

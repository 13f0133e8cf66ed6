package ir

// Builder is a small fluent API for constructing IR programs in Go,
// used by internal/fixture and by unit tests. It plays the role the
// teacher's internal/ir/builder.go plays (AST -> IR), but there is no
// source-language AST in this domain (spec §1: "parsing of IR" is out
// of scope), so it builds straight from Go calls instead of walking a
// parse tree.
type Builder struct {
	Fn  *Function
	blk *BasicBlock
}

func NewFunctionBuilder(name string, ret Type) *Builder {
	fn := NewFunction(name, ret)
	return &Builder{Fn: fn}
}

func (b *Builder) AddParam(name string, t Type) *Value {
	v := b.Fn.NewValue(t, name)
	v.Kind = ValParam
	b.Fn.Params = append(b.Fn.Params, &Parameter{Value: v})
	return v
}

func (b *Builder) Block(label string) *BasicBlock {
	blk := b.Fn.NewBlock(label)
	b.blk = blk
	return blk
}

func (b *Builder) SetBlock(blk *BasicBlock) { b.blk = blk }

func (b *Builder) emit(op Opcode, resultType Type, operands ...*Value) *Instr {
	inst := b.Fn.NewInstr(op)
	inst.Operands = operands
	if resultType != nil {
		inst.Result = b.Fn.NewValue(resultType, "")
		inst.Result.DefInstr = inst
	}
	b.blk.Append(inst)
	return inst
}

func (b *Builder) Bin(op Opcode, typ Type, lhs, rhs *Value) *Value {
	return b.emit(op, typ, lhs, rhs).Result
}

func (b *Builder) Load(typ Type, addr *Value) *Value {
	inst := b.emit(OpLoad, typ, addr)
	inst.ValueType = typ
	return inst.Result
}

func (b *Builder) Store(addr, val *Value) *Instr {
	return b.emit(OpStore, nil, val, addr)
}

func (b *Builder) Alloca(typ Type, name string) *Value {
	inst := b.emit(OpAlloca, &PointerType{ElemHint: typ})
	inst.ValueType = typ
	inst.Result.Name = name
	return inst.Result
}

func (b *Builder) Call(resultType Type, calleeName string, args ...*Value) *Value {
	inst := b.emit(OpCall, resultType, args...)
	inst.CalleeName = calleeName
	return inst.Result
}

func (b *Builder) ICmp(pred string, lhs, rhs *Value) *Value {
	inst := b.emit(OpICmp, &IntType{Bits: 1}, lhs, rhs)
	inst.Predicate = pred
	return inst.Result
}

func (b *Builder) Ret(v *Value) *Instr {
	inst := b.Fn.NewInstr(OpRet)
	if v != nil {
		inst.Operands = []*Value{v}
	}
	b.blk.Append(inst)
	return inst
}

func (b *Builder) Br(target *BasicBlock) *Instr {
	inst := b.Fn.NewInstr(OpBr)
	inst.Successors = []*BasicBlock{target}
	b.blk.Append(inst)
	return inst
}

func (b *Builder) CondBr(cond *Value, ifTrue, ifFalse *BasicBlock) *Instr {
	inst := b.Fn.NewInstr(OpBr)
	inst.Cond = cond
	inst.Successors = []*BasicBlock{ifTrue, ifFalse}
	b.blk.Append(inst)
	return inst
}

func (b *Builder) Phi(typ Type) *Instr {
	inst := b.emit(OpPHI, typ)
	return inst
}

func (b *Builder) AddIncoming(phi *Instr, val *Value, from *BasicBlock) {
	phi.Operands = append(phi.Operands, val)
	phi.PhiBlocks = append(phi.PhiBlocks, from)
}

func (b *Builder) Unreachable() *Instr {
	inst := b.Fn.NewInstr(OpUnreachable)
	b.blk.Append(inst)
	return inst
}

// Finish finalizes the function's CFG/use-lists/analyses and returns it.
func (b *Builder) Finish() (*Function, error) {
	if err := b.Fn.Finalize(); err != nil {
		return nil, err
	}
	return b.Fn, nil
}

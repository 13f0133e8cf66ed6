package ir

// BasicBlock is an ordered sequence of instructions whose last element
// is a terminator (spec §3). Predecessors/Successors are rebuilt by
// Function.Finalize from the terminators' Successors field; keeping
// both in sync manually on every block-graph edit the way the
// teacher's IR does would make ILR's control-flow rewrites (§4.8)
// error-prone, so they are treated as a derived cache here instead.
type BasicBlock struct {
	Label        string
	Instructions []*Instr
	Func         *Function

	Predecessors []*BasicBlock
	Successors   []*BasicBlock
}

// Terminator returns the block's last instruction, or nil for a
// block under construction.
func (b *BasicBlock) Terminator() *Instr {
	if len(b.Instructions) == 0 {
		return nil
	}
	last := b.Instructions[len(b.Instructions)-1]
	if last.IsTerminator() {
		return last
	}
	return nil
}

// FirstNonPHI returns the index of the first non-PHI instruction,
// or len(Instructions) if the block is all PHIs. Used by TX boundary
// placement (spec §4.9: "L.header.firstNonPhi").
func (b *BasicBlock) FirstNonPHI() int {
	for idx, inst := range b.Instructions {
		if inst.Op != OpPHI {
			return idx
		}
	}
	return len(b.Instructions)
}

// InsertAfter inserts inst immediately after the instruction at index
// idx (used pervasively by ILR to splice shadow/check instructions).
func (b *BasicBlock) InsertAfter(idx int, inst *Instr) {
	b.Instructions = append(b.Instructions, nil)
	copy(b.Instructions[idx+2:], b.Instructions[idx+1:])
	b.Instructions[idx+1] = inst
	inst.Block = b
}

// InsertBefore inserts inst immediately before the instruction at
// index idx.
func (b *BasicBlock) InsertBefore(idx int, inst *Instr) {
	b.Instructions = append(b.Instructions, nil)
	copy(b.Instructions[idx+1:], b.Instructions[idx:])
	b.Instructions[idx] = inst
	inst.Block = b
}

// Append adds inst to the end of the block.
func (b *BasicBlock) Append(inst *Instr) {
	b.Instructions = append(b.Instructions, inst)
	inst.Block = b
}

// IndexOf returns the position of inst in the block, or -1.
func (b *BasicBlock) IndexOf(inst *Instr) int {
	for idx, i := range b.Instructions {
		if i == inst {
			return idx
		}
	}
	return -1
}

// Function is an ordered sequence of basic blocks plus its signature.
type Function struct {
	Name        string
	Params      []*Parameter
	ReturnType  Type
	Blocks      []*BasicBlock
	Declaration bool // true: external declaration, no body

	// CalledFromOutside is set by the host (or by --func-explicit-trans)
	// before the TX pass runs; see spec §4.9/§6.
	CalledFromOutside bool

	Dom  *DominatorTree
	Loop *LoopForest

	valueCounter int
	instrCounter int
	blockCounter int
}

func NewFunction(name string, ret Type) *Function {
	return &Function{Name: name, ReturnType: ret}
}

func (f *Function) NewValue(typ Type, name string) *Value {
	f.valueCounter++
	if name == "" {
		name = ""
	}
	return &Value{ID: f.valueCounter, Name: name, Typ: typ, Kind: ValInstrResult}
}

func (f *Function) NewInstr(op Opcode) *Instr {
	f.instrCounter++
	return &Instr{ID: f.instrCounter, Op: op}
}

func (f *Function) NewBlock(label string) *BasicBlock {
	f.blockCounter++
	if label == "" {
		label = "bb"
	}
	b := &BasicBlock{Label: label, Func: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// InsertBlockAfter inserts b into the function's block list
// immediately after anchor (used by ILR's shadow-BB insertion, §4.8).
func (f *Function) InsertBlockAfter(anchor, b *BasicBlock) {
	for idx, blk := range f.Blocks {
		if blk == anchor {
			f.Blocks = append(f.Blocks, nil)
			copy(f.Blocks[idx+2:], f.Blocks[idx+1:])
			f.Blocks[idx+1] = b
			b.Func = f
			return
		}
	}
	f.Blocks = append(f.Blocks, b)
	b.Func = f
}

// Finalize rebuilds all derived state: predecessor/successor edges,
// value use-lists, dominator tree, and loop forest. Call after any
// batch of structural edits (every ILR/TX sub-pass does, mirroring
// the original pass's reliance on LLVM's auto-maintained CFG/use-list
// invariants, which this IR keeps as an explicit recomputation step
// instead).
func (f *Function) Finalize() error {
	f.rebuildCFG()
	f.rebuildUses()
	dom, err := BuildDominatorTree(f)
	if err != nil {
		return err
	}
	f.Dom = dom
	f.Loop = BuildLoopForest(f, dom)
	return nil
}

func (f *Function) rebuildCFG() {
	for _, b := range f.Blocks {
		b.Predecessors = nil
		b.Successors = nil
	}
	for _, b := range f.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		for _, succ := range term.Successors {
			if succ == nil {
				continue
			}
			b.Successors = append(b.Successors, succ)
			succ.Predecessors = append(succ.Predecessors, b)
		}
		if term.NormalDest != nil {
			b.Successors = append(b.Successors, term.NormalDest)
			term.NormalDest.Predecessors = append(term.NormalDest.Predecessors, b)
		}
		if term.UnwindDest != nil {
			b.Successors = append(b.Successors, term.UnwindDest)
			term.UnwindDest.Predecessors = append(term.UnwindDest.Predecessors, b)
		}
	}
}

func (f *Function) rebuildUses() {
	clear := func(v *Value) {
		if v != nil {
			v.uses = nil
		}
	}
	for _, p := range f.Params {
		clear(p.Value)
	}
	for _, b := range f.Blocks {
		for _, inst := range b.Instructions {
			clear(inst.Result)
		}
	}
	record := func(user *Instr, v *Value) {
		if v == nil || v.Kind == ValConst {
			return
		}
		v.uses = append(v.uses, &Use{User: user, Value: v})
	}
	for _, b := range f.Blocks {
		for _, inst := range b.Instructions {
			for _, op := range inst.Operands {
				record(inst, op)
			}
			record(inst, inst.Cond)
			record(inst, inst.Callee)
		}
	}
}

// Entry returns the function's entry block.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Program is the full translation unit: a set of functions plus
// module-level globals (used for ILR's globalized-constant workaround,
// §4.5).
type Program struct {
	Functions []*Function
	Globals   []*Global
}

// Global is a module-scope variable; ILR's constant-globalization
// workaround (§4.5) allocates these lazily, one per (type, constant)
// pair.
type Global struct {
	Name     string
	Typ      Type
	Init     *Value
	ReadOnly bool
	Internal bool
}

func (f *Function) FindBlock(label string) *BasicBlock {
	for _, b := range f.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

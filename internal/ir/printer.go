package ir

import (
	"fmt"
	"strings"
)

// Printer produces a textual dump of a Program, used by tests and by
// cmd/harden to show before/after IR. Shape matches the teacher's
// internal/ir/printer.go (Printer{indent,output}, writeIndent/writeLine).
type Printer struct {
	indent int
	output strings.Builder
}

func NewPrinter() *Printer { return &Printer{} }

func Print(p *Program) string {
	pr := NewPrinter()
	pr.printProgram(p)
	return pr.output.String()
}

func PrintFunction(f *Function) string {
	pr := NewPrinter()
	pr.printFunction(f)
	return pr.output.String()
}

func (p *Printer) writeIndent() {
	p.output.WriteString(strings.Repeat("  ", p.indent))
}

func (p *Printer) writeLine(format string, args ...any) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) write(format string, args ...any) {
	p.output.WriteString(fmt.Sprintf(format, args...))
}

func (p *Printer) printProgram(prog *Program) {
	for _, g := range prog.Globals {
		p.writeLine("global %s %s = %s", g.Typ, g.Name, g.Init)
	}
	for _, f := range prog.Functions {
		p.printFunction(f)
	}
}

func (p *Printer) printFunction(f *Function) {
	kw := "define"
	if f.Declaration {
		kw = "declare"
	}
	params := make([]string, len(f.Params))
	for i, param := range f.Params {
		params[i] = fmt.Sprintf("%s %s", param.Value.Typ, param.Value)
	}
	p.writeLine("%s %s @%s(%s)%s", kw, f.ReturnType, f.Name, strings.Join(params, ", "), func() string {
		if f.CalledFromOutside {
			return " ; called-from-outside"
		}
		return ""
	}())
	if f.Declaration {
		return
	}
	p.indent++
	for _, b := range f.Blocks {
		p.printBlock(b)
	}
	p.indent--
	p.writeLine("")
}

func (p *Printer) printBlock(b *BasicBlock) {
	p.writeLine("%s:", b.Label)
	p.indent++
	for _, inst := range b.Instructions {
		p.printInstr(inst)
	}
	p.indent--
}

func (p *Printer) printInstr(i *Instr) {
	lhs := ""
	if i.Result != nil {
		lhs = i.Result.String() + " = "
	}
	ops := make([]string, len(i.Operands))
	for idx, o := range i.Operands {
		ops[idx] = o.String()
	}
	extra := ""
	switch i.Op {
	case OpCall, OpInvoke:
		name := i.CalleeName
		if name == "" && i.Callee != nil {
			name = i.Callee.String()
		}
		extra = fmt.Sprintf(" @%s(%s)", name, strings.Join(ops, ", "))
		ops = nil
	case OpBr:
		if i.Cond != nil {
			extra = fmt.Sprintf(" %s, label %s, label %s", i.Cond, i.Successors[0].Label, i.Successors[1].Label)
		} else {
			extra = fmt.Sprintf(" label %s", i.Successors[0].Label)
		}
	case OpPHI:
		parts := make([]string, len(i.Operands))
		for idx := range i.Operands {
			parts[idx] = fmt.Sprintf("[%s, %%%s]", i.Operands[idx], i.PhiBlocks[idx].Label)
		}
		extra = " " + strings.Join(parts, ", ")
		ops = nil
	case OpLoad:
		extra = fmt.Sprintf(" %s", i.Operands[0])
		ops = nil
		if i.Volatile {
			lhs = "volatile " + lhs
		}
	case OpStore:
		extra = fmt.Sprintf(" %s, %s", i.Operands[0], i.Operands[1])
		ops = nil
		if i.Volatile {
			extra = " volatile" + extra
		}
	}
	comment := ""
	if i.Comment != "" {
		comment = " ; " + i.Comment
	}
	if len(ops) > 0 {
		p.writeLine("%s%s %s%s%s", lhs, i.Op, strings.Join(ops, ", "), extra, comment)
	} else {
		p.writeLine("%s%s%s%s", lhs, i.Op, extra, comment)
	}
}

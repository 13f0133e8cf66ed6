// Package main is the cmd/harden CLI driver: it runs the ILR and TX
// passes over a module and prints the before/after IR. There is no IR
// text format to parse (spec.md §1 keeps that out of scope), so the
// only module source today is --demo's named scenario; a future
// front-end that decodes a real host's IR would plug in right where
// loadScenario below calls fixture.LoadScenario.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"kanso/internal/diag"
	"kanso/internal/fixture"
	"kanso/internal/ilr"
	"kanso/internal/ir"
	"kanso/internal/tx"
)

// stringSet collects a repeatable flag (--called-from-outside) into a
// set of names, mirroring tx.cpp's command-line handling (spec §6).
type stringSet map[string]bool

func (s stringSet) String() string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	return strings.Join(names, ",")
}

func (s stringSet) Set(value string) error {
	s[value] = true
	return nil
}

func main() {
	calledFromOutside := stringSet{}
	funcExplicitTrans := flag.Bool("func-explicit-trans", false, "treat every function as called from outside the module")
	funcPointersKnown := flag.Bool("func-pointers-known", false, "treat an indirect call as local rather than conservatively outside")
	demo := flag.String("demo", "", "run a named scenario instead of reading a module (seq, arraywrite, pthreadtest)")
	flag.Var(calledFromOutside, "called-from-outside", "name of a function invoked from outside the module (repeatable)")
	flag.Parse()

	if *demo == "" {
		fmt.Println("Usage: harden --demo <seq|arraywrite|pthreadtest> [--func-explicit-trans] [--func-pointers-known] [--called-from-outside NAME]...")
		os.Exit(1)
	}

	prog, names, err := loadScenario(*demo)
	if err != nil {
		color.Red("unknown scenario %q: %s", *demo, err)
		os.Exit(1)
	}
	for _, n := range names {
		calledFromOutside[n] = true
	}

	color.Cyan("-- before --")
	fmt.Println(ir.Print(prog))

	cfg := tx.Config{
		FuncExplicitTrans: *funcExplicitTrans,
		CalledFromOutside: calledFromOutside,
		FuncPointersKnown: *funcPointersKnown,
	}
	if err := harden(prog, cfg); err != nil {
		if bug, ok := diag.FromError("harden", err); ok {
			fmt.Println(diag.NewReporter().Format(bug))
		} else {
			color.Red("harden: %s", err)
		}
		os.Exit(1)
	}

	color.Cyan("-- after --")
	fmt.Println(ir.Print(prog))
	color.Green("hardened %s (%d function(s))", *demo, len(prog.Functions))
}

// harden runs ILR over every defined function, then TX over the whole
// program (tx.Run already skips declarations and helper functions).
func harden(prog *ir.Program, cfg tx.Config) error {
	m, err := ilr.NewModule(prog)
	if err != nil {
		return err
	}
	defer m.Close()

	for _, fn := range prog.Functions {
		if fn.Declaration {
			continue
		}
		if _, err := ilr.NewTransformer(m, fn).Run(); err != nil {
			return err
		}
	}
	return tx.Run(prog, cfg)
}

// loadScenario resolves a --demo name to one of internal/fixture's
// named scenarios (spec §8) plus the functions an event loop outside
// the module would call directly, for seeding --called-from-outside.
func loadScenario(name string) (*ir.Program, []string, error) {
	switch name {
	case "seq":
		prog, err := fixture.LoadScenario(fixture.Seq)
		return prog, []string{"seq"}, err
	case "arraywrite":
		prog, err := fixture.LoadScenario(fixture.ArrayWrite)
		return prog, []string{"arraywrite"}, err
	case "pthreadtest":
		prog, err := fixture.LoadScenario(fixture.PthreadTest)
		return prog, []string{"pthreadtest1", "pthreadtest3"}, err
	default:
		return nil, nil, fmt.Errorf("no such scenario")
	}
}

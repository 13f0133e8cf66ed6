// SPDX-License-Identifier: Apache-2.0

// Package repl is an interactive inspector over the Helper Registry's
// classification (spec §4.1): given a loaded scenario, it answers
// "what is callee X" the way ilr.cpp's SwiftHelpers would, without
// running a full pass. Adapted from the teacher's repl/repl.go, which
// read Kanso source and printed its AST; this module has no source
// language to read (spec.md §1), so the REPL instead loads one of
// internal/fixture's named scenarios and queries its Registry.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"kanso/internal/fixture"
	"kanso/internal/helpers"
)

const PROMPT = ">> "

var scenarios = map[string]string{
	"seq":         fixture.Seq,
	"arraywrite":  fixture.ArrayWrite,
	"pthreadtest": fixture.PthreadTest,
}

// Start runs the inspector loop against in, writing prompts and
// results to out. Commands:
//
//	load <scenario>     load seq, arraywrite, or pthreadtest
//	classify <name>     print the callee's Class (outside/duplicated/ignored)
//	checker <tag>       print the check_<tag> helper, if resolved
//	mover <tag>         print the move_<tag> helper, if resolved
//	tx <name>           print a tx_* primitive, if resolved
//	lookup <name>       print any in-module function by name
//	help, exit
func Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	var reg *helpers.Registry

	for {
		fmt.Fprint(out, PROMPT)
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "exit", "quit":
			return
		case "help":
			fmt.Fprintln(out, "load <scenario> | classify <name> | checker <tag> | mover <tag> | tx <name> | lookup <name> | help | exit")
		case "load":
			if len(args) != 1 {
				fmt.Fprintln(out, "usage: load <seq|arraywrite|pthreadtest>")
				continue
			}
			r, err := loadRegistry(args[0])
			if err != nil {
				fmt.Fprintf(out, "error: %s\n", err)
				continue
			}
			reg = r
			fmt.Fprintf(out, "loaded %s\n", args[0])
		case "classify":
			if len(args) != 1 {
				fmt.Fprintln(out, "usage: classify <name>")
				continue
			}
			fmt.Fprintln(out, helpers.Classify(args[0]))
		case "checker", "mover", "tx", "lookup":
			if reg == nil {
				fmt.Fprintln(out, "no scenario loaded; run 'load <scenario>' first")
				continue
			}
			if len(args) != 1 {
				fmt.Fprintf(out, "usage: %s <name>\n", cmd)
				continue
			}
			printLookup(out, reg, cmd, args[0])
		default:
			fmt.Fprintf(out, "unknown command %q (try 'help')\n", cmd)
		}
	}
}

func printLookup(out io.Writer, reg *helpers.Registry, cmd, arg string) {
	switch cmd {
	case "checker":
		fn, ok := reg.Checker(arg)
		report(out, fn, ok)
	case "mover":
		fn, ok := reg.Mover(arg)
		report(out, fn, ok)
	case "tx":
		fn, ok := reg.TxPrimitive(arg)
		report(out, fn, ok)
	case "lookup":
		fn, ok := reg.Lookup(arg)
		if !ok {
			fmt.Fprintln(out, "not found")
			return
		}
		fmt.Fprintf(out, "%s -> %s\n", arg, fn.Name)
	}
}

func report(out io.Writer, fn *helpers.Func, ok bool) {
	if !ok {
		fmt.Fprintln(out, "not resolved")
		return
	}
	fmt.Fprintf(out, "%s: %s -> %s\n", fn.Name, fn.ParamTypes, fn.ReturnType)
}

func loadRegistry(name string) (*helpers.Registry, error) {
	source, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("no such scenario %q", name)
	}
	prog, err := fixture.LoadScenario(source)
	if err != nil {
		return nil, err
	}
	return helpers.New(prog)
}

package fixture

import "kanso/internal/ir"

// Seq mirrors original_source's seq.c (spec §8's "seq" scenario): a
// straight-line chain of arithmetic and two out-of-module calls, no
// control flow at all. Exercises ILR's basic duplicate-and-check path
// and TX's call-boundary wrapping with nothing else in the way.
const Seq = `
fn seq(x: i32) -> i32 {
entry:
  %t1 = call i32 @foo(%x)
  %t2 = add i32 %t1, 1
  %t3 = call i32 @bar(%t2)
  %t4 = add i32 %t3, 2
  ret %t4
}
`

// ArrayWrite mirrors original_source's arraywrite.c: a single
// induction-variable loop counting down to zero, storing into an
// array on every iteration. Exercises ILR's loop-header check
// insertion and TX's longest-path-per-latch accumulation; the Store
// inside the loop body disqualifies §4.11's tight-loop optimization
// (a Store is one of the disqualifying instruction kinds), so this
// fixture is deliberately NOT the one used to test that optimization.
const ArrayWrite = `
fn arraywrite(size: i32, arr: ptr) {
entry:
  %i0 = sub i32 %size, 1
  br header
header:
  %i = phi i32 [ %i0, entry ], [ %inext, body ]
  %cond = icmp sge %i, 0
  br %cond, body, exit
body:
  store %i, %arr
  %inext = sub i32 %i, 1
  br header
exit:
  ret
}
`

// PthreadTest mirrors original_source's pthreadtest.c: pthreadtest1 (a
// lock/increment/unlock single block, the shape §4.11's tiny-critical-
// section optimization targets directly) and pthreadtest3 (lock,
// branch, increment-or-decrement, unlock in each arm, exercising
// findCriticalSectionEnds' "immediate successors" search).
const PthreadTest = `
fn pthreadtest1(counter: ptr, mutex: ptr) {
entry:
  call @pthread_mutex_lock(%mutex)
  %v = load i32 %counter
  %v2 = add i32 %v, 1
  store %v2, %counter
  call @pthread_mutex_unlock(%mutex)
  ret
}

fn pthreadtest3(flag: i32, counter: ptr, mutex: ptr) {
entry:
  call @pthread_mutex_lock(%mutex)
  %cond = icmp ne %flag, 0
  br %cond, inc, dec
inc:
  %v = load i32 %counter
  %v2 = add i32 %v, 1
  store %v2, %counter
  call @pthread_mutex_unlock(%mutex)
  br after
dec:
  %w = load i32 %counter
  %w2 = sub i32 %w, 1
  store %w2, %counter
  call @pthread_mutex_unlock(%mutex)
  br after
after:
  ret
}
`

// LoadScenario parses one of the named constants above (or any script
// in the same notation) into its functions, declaring the bare
// external callees (foo, bar) referenced by Seq as declarations so a
// Helper Registry/Module constructed over the result has a complete
// symbol table.
func LoadScenario(source string) (*ir.Program, error) {
	fns, err := Parse(source)
	if err != nil {
		return nil, err
	}
	prog := &ir.Program{Functions: fns}
	declareExternal(prog, "foo", ir.I32)
	declareExternal(prog, "bar", ir.I32)
	declareExternal(prog, "pthread_mutex_lock", &ir.VoidType{})
	declareExternal(prog, "pthread_mutex_unlock", &ir.VoidType{})
	declareRuntimeHelpers(prog)
	return prog, nil
}

// declareRuntimeHelpers declares the full check_*/move_*/detected/tx_*
// ABI (spec §4.1/§6) so a Helper Registry built over a loaded scenario
// always resolves — every fixture is meant to run through both ILR and
// TX, and both require the complete helper set to exist up front.
func declareRuntimeHelpers(prog *ir.Program) {
	for _, tag := range []string{"i8", "i16", "i32", "i64", "ptr", "float", "double", "ps", "pd", "dq"} {
		declareExternal(prog, "check_"+tag, &ir.VoidType{})
		declareExternal(prog, "move_"+tag, ir.I32)
	}
	declareExternal(prog, "detected", &ir.VoidType{})
	declareExternal(prog, "tx_start", &ir.VoidType{})
	declareExternal(prog, "tx_end", &ir.VoidType{})
	declareExternal(prog, "tx_cond_start", &ir.VoidType{})
	declareExternal(prog, "tx_abort", &ir.VoidType{})
	declareExternal(prog, "tx_threshold_exceeded", ir.I32)
	declareExternal(prog, "tx_increment", &ir.VoidType{})
	declareExternal(prog, "tx_pthread_mutex_lock", &ir.VoidType{})
	declareExternal(prog, "tx_pthread_mutex_unlock", &ir.VoidType{})
}

func declareExternal(prog *ir.Program, name string, ret ir.Type) {
	for _, fn := range prog.Functions {
		if fn.Name == name {
			return
		}
	}
	prog.Functions = append(prog.Functions, &ir.Function{Name: name, Declaration: true, ReturnType: ret})
}

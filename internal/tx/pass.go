package tx

import "kanso/internal/ir"

// Run transactifies every eligible function in prog: declarations, the
// runtime's own check_*/move_*/detected/tx_* helpers, and any function
// carrying the shadow-prefix marker are skipped (tx.cpp's
// TransactifyPass::runOnFunction: "skip our helper functions"),
// matching the function-level granularity ILR and the original
// FunctionPass both operate at (spec §5: "one function at a time").
func Run(prog *ir.Program, cfg Config) error {
	m, err := NewModule(prog, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	for _, fn := range prog.Functions {
		if fn.Declaration || m.isInternalFunc(fn.Name) {
			continue
		}
		fn.CalledFromOutside = fn.CalledFromOutside || cfg.IsCalledFromOutside(fn.Name)
		t := NewTransformer(m, fn)
		if err := t.Run(); err != nil {
			return err
		}
	}
	return nil
}

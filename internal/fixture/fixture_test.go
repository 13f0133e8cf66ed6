package fixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanso/internal/ilr"
	"kanso/internal/ir"
	"kanso/internal/tx"
)

func TestSeqParsesExpectedShape(t *testing.T) {
	prog, err := LoadScenario(Seq)
	require.NoError(t, err)

	fn := findFunc(t, prog, "seq")
	require.Len(t, fn.Blocks, 1)
	assert.Equal(t, "entry", fn.Blocks[0].Label)
	assert.Len(t, fn.Blocks[0].Instructions, 5)
	assert.Equal(t, ir.OpRet, fn.Blocks[0].Instructions[4].Op)
}

func TestArrayWriteParsesExpectedShape(t *testing.T) {
	prog, err := LoadScenario(ArrayWrite)
	require.NoError(t, err)

	fn := findFunc(t, prog, "arraywrite")
	require.Len(t, fn.Blocks, 4)
	labels := []string{fn.Blocks[0].Label, fn.Blocks[1].Label, fn.Blocks[2].Label, fn.Blocks[3].Label}
	assert.Equal(t, []string{"entry", "header", "body", "exit"}, labels)

	header := fn.Blocks[1]
	phi := header.Instructions[0]
	assert.Equal(t, ir.OpPHI, phi.Op)
	assert.Len(t, phi.Operands, 2)
	assert.Len(t, phi.PhiBlocks, 2)
}

func TestPthreadTestParsesExpectedShape(t *testing.T) {
	prog, err := LoadScenario(PthreadTest)
	require.NoError(t, err)

	fn1 := findFunc(t, prog, "pthreadtest1")
	require.Len(t, fn1.Blocks, 1)
	assert.Len(t, fn1.Blocks[0].Instructions, 6)

	fn3 := findFunc(t, prog, "pthreadtest3")
	require.Len(t, fn3.Blocks, 4)
}

func TestLoadScenarioDeclaresCompleteHelperSet(t *testing.T) {
	prog, err := LoadScenario(Seq)
	require.NoError(t, err)

	_, err = ilr.NewModule(prog)
	assert.NoError(t, err, "helper registry must resolve over a loaded scenario")
}

func TestSeqSurvivesFullPipeline(t *testing.T) {
	prog, err := LoadScenario(Seq)
	require.NoError(t, err)
	require.NoError(t, runILRThenTX(t, prog, "seq"))
}

func TestArrayWriteSurvivesFullPipeline(t *testing.T) {
	prog, err := LoadScenario(ArrayWrite)
	require.NoError(t, err)
	require.NoError(t, runILRThenTX(t, prog, "arraywrite"))
}

func TestPthreadTestSurvivesFullPipeline(t *testing.T) {
	prog, err := LoadScenario(PthreadTest)
	require.NoError(t, err)
	require.NoError(t, runILRThenTX(t, prog, "pthreadtest1", "pthreadtest3"))
}

// runILRThenTX chains the two passes over prog the way cmd/harden does:
// ILR runs function-by-function (there is no package-level ilr.Run), then
// tx.Run drives TX over the whole program. calledFromOutside names the
// functions an event loop outside the module would invoke directly.
func runILRThenTX(t *testing.T, prog *ir.Program, calledFromOutside ...string) error {
	t.Helper()

	m, err := ilr.NewModule(prog)
	require.NoError(t, err)
	defer m.Close()

	for _, fn := range prog.Functions {
		if fn.Declaration {
			continue
		}
		tr := ilr.NewTransformer(m, fn)
		if _, err := tr.Run(); err != nil {
			return err
		}
	}

	outside := map[string]bool{}
	for _, name := range calledFromOutside {
		outside[name] = true
	}
	return tx.Run(prog, tx.Config{CalledFromOutside: outside})
}

func findFunc(t *testing.T, prog *ir.Program, name string) *ir.Function {
	t.Helper()
	for _, fn := range prog.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %q not found in program", name)
	return nil
}

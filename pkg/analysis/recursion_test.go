package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rsolene/jonm-fuzzer/pkg/analysis"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
)

func TestMayDivergeFlagsSelfCallBeforeReturn(t *testing.T) {
	// function f() { f(); }
	fn := il.Variable{Name: "f", ID: 1}
	p := il.NewProgram([]il.Instruction{
		{Op: il.OpPlainFunctionHead, Outputs: []il.Variable{fn}},
		{Op: il.OpCallFunction, Inputs: []il.Variable{fn}, Outputs: []il.Variable{{Name: "t", ID: 2}}},
		{Op: il.OpSubroutineTail},
	})

	a := analysis.NewRecursionAnalyzer()
	assert.True(t, a.MayDiverge(p))
}

func TestMayDivergeAllowsSelfCallAfterReturn(t *testing.T) {
	// function f() { if (cond) return; f(); } -- self-call guarded by an
	// earlier return at the same nesting level is still flagged by the
	// linear heuristic unless the return precedes it; here we construct the
	// opposite: the return comes first, so the call is dead and shouldn't
	// even be reached by a terminating walk, but the heuristic is linear and
	// stops scanning once it sees the return.
	fn := il.Variable{Name: "f", ID: 1}
	p := il.NewProgram([]il.Instruction{
		{Op: il.OpPlainFunctionHead, Outputs: []il.Variable{fn}},
		{Op: il.OpReturn},
		{Op: il.OpCallFunction, Inputs: []il.Variable{fn}, Outputs: []il.Variable{{Name: "t", ID: 2}}},
		{Op: il.OpSubroutineTail},
	})

	a := analysis.NewRecursionAnalyzer()
	assert.False(t, a.MayDiverge(p))
}

func TestMayDivergeIgnoresCallsToOtherFunctions(t *testing.T) {
	f := il.Variable{Name: "f", ID: 1}
	g := il.Variable{Name: "g", ID: 2}
	p := il.NewProgram([]il.Instruction{
		{Op: il.OpPlainFunctionHead, Outputs: []il.Variable{f}},
		{Op: il.OpCallFunction, Inputs: []il.Variable{g}, Outputs: []il.Variable{{Name: "t", ID: 3}}},
		{Op: il.OpReturn},
		{Op: il.OpSubroutineTail},
	})

	a := analysis.NewRecursionAnalyzer()
	assert.False(t, a.MayDiverge(p))
}

func TestMayDivergeSkipsNestedSubroutineBodiesWholesale(t *testing.T) {
	// Outer function contains a nested function that self-recurses; the
	// heuristic only examines each subroutine's own body, so nested
	// recursion is caught when FindAllSubroutines reaches the inner
	// function directly, not "leaked" into the outer scan.
	outer := il.Variable{Name: "outer", ID: 1}
	inner := il.Variable{Name: "inner", ID: 2}
	p := il.NewProgram([]il.Instruction{
		{Op: il.OpPlainFunctionHead, Outputs: []il.Variable{outer}},
		{Op: il.OpPlainFunctionHead, Outputs: []il.Variable{inner}},
		{Op: il.OpCallFunction, Inputs: []il.Variable{inner}, Outputs: []il.Variable{{Name: "t", ID: 3}}},
		{Op: il.OpSubroutineTail},
		{Op: il.OpReturn},
		{Op: il.OpSubroutineTail},
	})

	a := analysis.NewRecursionAnalyzer()
	assert.True(t, a.MayDiverge(p), "inner's self-call should still be detected via its own subroutine scan")
}

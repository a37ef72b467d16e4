package jonm_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/jonm"
)

// buildFunctionCalledOutsideLoop builds: function f(x){ return x; } f(1);
func buildFunctionCalledOutsideLoop() *il.Program {
	b := il.NewBuilder("")
	fn := b.BuildPlainFunction("f", []string{"x"}, func(c *il.BuilderContext, params []il.Variable) {
		c.DoReturn(&params[0])
	})
	one := b.LoadInt(1)
	b.CallFunction(fn, one)
	return b.Build()
}

// buildFunctionCalledInsideLoop builds: function f(x){ return x; } for(i<5){ f(1); }
func buildFunctionCalledInsideLoop() *il.Program {
	b := il.NewBuilder("")
	fn := b.BuildPlainFunction("f", []string{"x"}, func(c *il.BuilderContext, params []il.Variable) {
		c.DoReturn(&params[0])
	})
	b.BuildRepeatLoop(5, func(c *il.BuilderContext, _ il.Variable) {
		one := c.LoadInt(1)
		c.CallFunction(fn, one)
	})
	return b.Build()
}

func assertDistinctContributorSuperset(t *testing.T, seed, mutant *il.Program, name string) {
	t.Helper()
	require.NotNil(t, mutant)
	assert.NotSame(t, seed, mutant)
	assert.True(t, mutant.HasContributor(name))
	for k := range seed.Contributors {
		assert.True(t, mutant.HasContributor(k), "mutant must retain every contributor of its parent")
	}
}

func TestNeutralLoopAppliesInsideSubroutineBody(t *testing.T) {
	b := il.NewBuilder("")
	b.BuildPlainFunction("f", nil, func(c *il.BuilderContext, _ []il.Variable) {
		c.LoadInt(1)
	})
	seed := b.Build()

	m := jonm.NewNeutralLoop()
	require.True(t, m.CanMutate(seed))

	mutant, err := m.Mutate(seed, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assertDistinctContributorSuperset(t, seed, mutant, jonm.NameNeutralLoop)
	assert.Greater(t, mutant.Len(), seed.Len())
}

func TestNeutralLoopCanMutateFalseOnEmptyProgram(t *testing.T) {
	seed := il.NewProgram(nil)
	m := jonm.NewNeutralLoop()
	assert.False(t, m.CanMutate(seed))

	mutant, err := m.Mutate(seed, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Nil(t, mutant)
}

func TestSingleExecWrapAppliesToEligibleInstruction(t *testing.T) {
	b := il.NewBuilder("")
	b.BuildPlainFunction("f", nil, func(c *il.BuilderContext, _ []il.Variable) {
		c.LoadInt(1)
	})
	seed := b.Build()

	m := jonm.NewSingleExecWrap()
	require.True(t, m.CanMutate(seed))

	mutant, err := m.Mutate(seed, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	assertDistinctContributorSuperset(t, seed, mutant, jonm.NameSingleExecWrap)
	assert.Greater(t, mutant.Len(), seed.Len())
}

func TestSingleExecWrapVetoesCallInstructions(t *testing.T) {
	b := il.NewBuilder("")
	fn := b.BuildPlainFunction("f", nil, func(c *il.BuilderContext, _ []il.Variable) {
		c.LoadInt(1)
	})
	b.BuildPlainFunction("g", nil, func(c *il.BuilderContext, _ []il.Variable) {
		c.CallFunction(fn)
	})
	seed := b.Build()

	m := jonm.NewSingleExecWrap()
	// g's body only has a call instruction, which is not wrappable; f's body
	// has a LoadInt, which is. CanMutate should still be true overall.
	assert.True(t, m.CanMutate(seed))
}

func TestWarmupPreCallRequiresAFunctionWithACallSite(t *testing.T) {
	seed := buildFunctionCalledOutsideLoop()
	m := jonm.NewWarmupPreCall()
	require.True(t, m.CanMutate(seed))

	mutant, err := m.Mutate(seed, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assertDistinctContributorSuperset(t, seed, mutant, jonm.NameWarmupPreCall)
	assert.Greater(t, mutant.Len(), seed.Len())
}

func TestWarmupPreCallFalseWhenNoCandidateFunction(t *testing.T) {
	seed := il.NewProgram([]il.Instruction{{Op: il.OpLoadInt}})
	m := jonm.NewWarmupPreCall()
	assert.False(t, m.CanMutate(seed))
}

func TestDeoptPreCallRequiresCallInsideALoop(t *testing.T) {
	outside := buildFunctionCalledOutsideLoop()
	deopt := jonm.NewDeoptPreCall()
	assert.False(t, deopt.CanMutate(outside), "deopt pre-call only fires when the existing call sits inside a loop")

	inside := buildFunctionCalledInsideLoop()
	require.True(t, deopt.CanMutate(inside))

	mutant, err := deopt.Mutate(inside, rand.New(rand.NewSource(4)))
	require.NoError(t, err)
	assertDistinctContributorSuperset(t, inside, mutant, jonm.NameDeoptPreCall)
}

func TestRegistryReturnsAllFourJoNMutatorsWithDistinctNames(t *testing.T) {
	reg := jonm.Registry()
	require.Len(t, reg, 4)
	names := map[string]bool{}
	for _, m := range reg {
		names[m.Name()] = true
	}
	assert.Len(t, names, 4)
}

func TestArgShapeInferAndMismatchKinds(t *testing.T) {
	fn := il.Variable{Name: "f", ID: 1}
	intVar := il.Variable{Name: "i", ID: 2}
	strVar := il.Variable{Name: "s", ID: 3}
	p := il.NewProgram([]il.Instruction{
		{Op: il.OpLoadInt, Outputs: []il.Variable{intVar}},
		{Op: il.OpLoadString, Outputs: []il.Variable{strVar}},
	})
	call := il.Instruction{Op: il.OpCallFunction, Inputs: []il.Variable{fn, intVar, strVar}}

	kinds := jonm.InferArgKinds(p, call)
	assert.Equal(t, []string{"int", "string"}, kinds)

	mismatched := jonm.MismatchKinds(kinds)
	assert.Equal(t, []string{"string", "int"}, mismatched)
}

func TestBuildArgsProducesOneVariablePerKind(t *testing.T) {
	b := il.NewBuilder("")
	vars := jonm.BuildArgs(b, []string{"int", "bool", "string", "other"}, rand.New(rand.NewSource(5)))
	assert.Len(t, vars, 4)
}

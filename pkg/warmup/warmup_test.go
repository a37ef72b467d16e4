package warmup_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/warmup"
)

func buildCallWithArgs() *il.Program {
	b := il.NewBuilder("")
	fn := b.BuildPlainFunction("f", []string{"x"}, func(c *il.BuilderContext, params []il.Variable) {
		c.DoReturn(&params[0])
	})
	one := b.LoadInt(1)
	b.CallFunction(fn, one)
	return b.Build()
}

func assertMutantIsNewAndTagged(t *testing.T, seed, mutant *il.Program, name string) {
	t.Helper()
	require.NotNil(t, mutant)
	assert.NotSame(t, seed, mutant)
	assert.True(t, mutant.HasContributor(name))
	assert.Greater(t, mutant.Len(), seed.Len())
}

func TestSubroutineLoopPrependsLoopToSubroutineBody(t *testing.T) {
	b := il.NewBuilder("")
	b.BuildPlainFunction("f", nil, func(c *il.BuilderContext, _ []il.Variable) {
		c.LoadInt(1)
	})
	seed := b.Build()

	m := warmup.NewSubroutineLoop()
	require.True(t, m.CanMutate(seed))

	mutant, err := m.Mutate(seed, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assertMutantIsNewAndTagged(t, seed, mutant, warmup.NameSubroutineLoop)
	assert.Equal(t, il.OpPlainFunctionHead, mutant.Instructions[0].Op)
	assert.Equal(t, il.OpLoopHead, mutant.Instructions[1].Op)
}

func TestSubroutineLoopFalseWithoutAnySubroutine(t *testing.T) {
	seed := il.NewProgram([]il.Instruction{{Op: il.OpLoadInt}})
	m := warmup.NewSubroutineLoop()
	assert.False(t, m.CanMutate(seed))
}

func TestCallInLoopWrapsAnyCall(t *testing.T) {
	seed := buildCallWithArgs()
	m := warmup.NewCallInLoop()
	require.True(t, m.CanMutate(seed))

	mutant, err := m.Mutate(seed, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	assertMutantIsNewAndTagged(t, seed, mutant, warmup.NameCallInLoop)
}

func TestCallInLoopFalseWithoutAnyCall(t *testing.T) {
	seed := il.NewProgram([]il.Instruction{{Op: il.OpLoadInt}})
	m := warmup.NewCallInLoop()
	assert.False(t, m.CanMutate(seed))
}

func TestCallDeoptRequiresACallWithArguments(t *testing.T) {
	seed := buildCallWithArgs()
	m := warmup.NewCallDeopt()
	require.True(t, m.CanMutate(seed))

	mutant, err := m.Mutate(seed, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assertMutantIsNewAndTagged(t, seed, mutant, warmup.NameCallDeopt)
}

func TestCallDeoptFalseOnZeroArgCall(t *testing.T) {
	fn := il.Variable{Name: "f", ID: 1}
	seed := il.NewProgram([]il.Instruction{
		{Op: il.OpPlainFunctionHead, Outputs: []il.Variable{fn}},
		{Op: il.OpSubroutineTail},
		{Op: il.OpCallFunction, Inputs: []il.Variable{fn}}, // no arguments, just the callee
	})
	m := warmup.NewCallDeopt()
	assert.False(t, m.CanMutate(seed))
}

func TestCallDeoptRecompileRequiresACallWithArguments(t *testing.T) {
	seed := buildCallWithArgs()
	m := warmup.NewCallDeoptRecompile()
	require.True(t, m.CanMutate(seed))

	mutant, err := m.Mutate(seed, rand.New(rand.NewSource(4)))
	require.NoError(t, err)
	assertMutantIsNewAndTagged(t, seed, mutant, warmup.NameCallDeoptRecompile)
}

func TestRegistryReturnsAllFourFallbackMutatorsWithDistinctNames(t *testing.T) {
	reg := warmup.Registry()
	require.Len(t, reg, 4)
	names := map[string]bool{}
	for _, m := range reg {
		names[m.Name()] = true
	}
	assert.Len(t, names, 4)
}

package checksum_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsolene/jonm-fuzzer/pkg/checksum"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
)

func countContainerLoads(p *il.Program) int {
	n := 0
	for _, instr := range p.Instructions {
		if instr.Op == il.OpLoadChecksumContainer {
			n++
		}
	}
	return n
}

func buildSimpleSeed() *il.Program {
	b := il.NewBuilder("")
	a := b.LoadInt(1)
	b.StoreNamedVariable("a", a)
	return b.Build()
}

func TestPreprocessInjectsExactlyOneLoadAtIndexZero(t *testing.T) {
	seed := buildSimpleSeed()
	rng := rand.New(rand.NewSource(1))

	out := checksum.Preprocess(seed, rng, checksum.Modest, checksum.DefaultUpdateProbability, checksum.DefaultMaxUpdatesPerSubroutine)

	require.NotEmpty(t, out.Instructions)
	assert.Equal(t, il.OpLoadChecksumContainer, out.Instructions[0].Op)
	assert.Equal(t, 1, countContainerLoads(out))
}

func TestPreprocessScrubsStaleContainerLoadsFromSplicing(t *testing.T) {
	// Simulate a program that already has a (stale, spliced) container load
	// not at index 0.
	stale := il.Variable{Name: "stale", ID: 99}
	seed := il.NewProgram([]il.Instruction{
		{Op: il.OpLoadInt},
		{Op: il.OpLoadChecksumContainer, Outputs: []il.Variable{stale}},
		{Op: il.OpGetElement, Inputs: []il.Variable{stale}, Attrs: map[string]interface{}{"index": 0}},
	})
	rng := rand.New(rand.NewSource(2))

	out := checksum.Preprocess(seed, rng, checksum.Conservative, 0, checksum.DefaultMaxUpdatesPerSubroutine)

	assert.Equal(t, il.OpLoadChecksumContainer, out.Instructions[0].Op)
	assert.Equal(t, 1, countContainerLoads(out), "the stale mid-stream load must be replaced, not duplicated")
}

func TestPreprocessIsIdempotentOnContainerLoadCount(t *testing.T) {
	seed := buildSimpleSeed()
	rng := rand.New(rand.NewSource(3))

	once := checksum.Preprocess(seed, rng, checksum.Aggressive, checksum.DefaultUpdateProbability, checksum.DefaultMaxUpdatesPerSubroutine)
	twice := checksum.Preprocess(once, rng, checksum.Aggressive, checksum.DefaultUpdateProbability, checksum.DefaultMaxUpdatesPerSubroutine)

	assert.Equal(t, 1, countContainerLoads(once))
	assert.Equal(t, 1, countContainerLoads(twice))
}

func TestPreprocessNeverReturnsEmptyProgram(t *testing.T) {
	empty := il.NewProgram(nil)
	rng := rand.New(rand.NewSource(4))
	out := checksum.Preprocess(empty, rng, checksum.Modest, checksum.DefaultUpdateProbability, checksum.DefaultMaxUpdatesPerSubroutine)
	require.NotNil(t, out)
	assert.NotZero(t, out.Len())
}

func TestPostprocessNoOpWhenNoLoadAtIndexZero(t *testing.T) {
	p := il.NewProgram([]il.Instruction{{Op: il.OpLoadInt}})
	out := checksum.Postprocess(p)
	assert.Same(t, p, out)
}

func TestPostprocessKeepsIndexZeroLoadAndScrubsOthers(t *testing.T) {
	root := il.Variable{Name: "root", ID: 1}
	stray := il.Variable{Name: "stray", ID: 2}
	p := il.NewProgram([]il.Instruction{
		{Op: il.OpLoadChecksumContainer, Outputs: []il.Variable{root}},
		{Op: il.OpLoadInt},
		{Op: il.OpLoadChecksumContainer, Outputs: []il.Variable{stray}}, // spliced in by a downstream mutator
	})

	out := checksum.Postprocess(p)

	assert.Equal(t, il.OpLoadChecksumContainer, out.Instructions[0].Op)
	assert.Equal(t, 1, countContainerLoads(out))
	assert.True(t, out.HasContributor("checksum.postprocess"))
}

func TestPostprocessNoOpWhenAlreadyClean(t *testing.T) {
	root := il.Variable{Name: "root", ID: 1}
	p := il.NewProgram([]il.Instruction{
		{Op: il.OpLoadChecksumContainer, Outputs: []il.Variable{root}},
		{Op: il.OpLoadInt},
	})
	out := checksum.Postprocess(p)
	assert.Same(t, p, out)
}

func TestConservativePolicyNeverUpdatesInsideSubroutines(t *testing.T) {
	b := il.NewBuilder("")
	b.BuildPlainFunction("f", nil, func(c *il.BuilderContext, _ []il.Variable) {
		c.LoadInt(1)
	})
	seed := b.Build()
	rng := rand.New(rand.NewSource(5))

	// probability 1 so every eligible site gets an update attempt.
	out := checksum.Preprocess(seed, rng, checksum.Conservative, 1.0, checksum.DefaultMaxUpdatesPerSubroutine)

	subs := out.FindAllSubroutines(nil)
	require.Len(t, subs, 1)
	// Every slot after the head, including the one right after it, is inside
	// the body and must never carry an update under Conservative.
	for i := subs[0].HeadIndex + 1; i < subs[0].TailIndex; i++ {
		assert.NotEqual(t, il.OpUpdateElement, out.Instructions[i].Op, "conservative policy must not update inside a subroutine body")
	}
}

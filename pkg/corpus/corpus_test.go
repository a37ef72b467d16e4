package corpus_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsolene/jonm-fuzzer/pkg/corpus"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
)

func TestAddAndGetRoundTrip(t *testing.T) {
	c := corpus.New(0)
	p := il.NewProgram([]il.Instruction{{Op: il.OpLoadInt}})
	c.Add(p)

	got := c.Get(p.ID)
	require.NotNil(t, got)
	assert.Same(t, p, got)
	assert.Equal(t, 1, c.Size())
}

func TestGetMissingReturnsNil(t *testing.T) {
	c := corpus.New(0)
	assert.Nil(t, c.Get("does-not-exist"))
}

func TestAddIsNoOpForDuplicateID(t *testing.T) {
	c := corpus.New(0)
	p := il.NewProgram(nil)
	c.Add(p)
	c.Add(p)
	assert.Equal(t, 1, c.Size())
}

func TestMarkExecutedIncrementsCounter(t *testing.T) {
	c := corpus.New(2)
	p := il.NewProgram(nil)
	other := il.NewProgram(nil)
	c.Add(p)
	c.Add(other)
	c.MarkExecuted(p.ID)
	c.MarkExecuted(p.ID)
	// No direct accessor for Executions: the counter is observed through
	// eviction, where each execution lowers an entry's removal score, so the
	// executed program is the one dropped when the corpus overflows.
	c.Add(il.NewProgram(nil))
	assert.Nil(t, c.Get(p.ID))
	assert.NotNil(t, c.Get(other.ID))
	// An unknown ID is ignored rather than panicking.
	c.MarkExecuted("unknown-id")
}

func TestGetFreeOfExcludesTaintedContributors(t *testing.T) {
	c := corpus.New(0)
	clean := il.NewProgram(nil)
	tainted := il.NewProgram(nil)
	tainted.Contributors["jonm.NeutralLoop"] = struct{}{}
	c.Add(clean)
	c.Add(tainted)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		got := c.GetFreeOf(rng, "jonm.NeutralLoop")
		require.NotNil(t, got)
		assert.Same(t, clean, got)
	}
}

func TestGetFreeOfReturnsNilWhenAllTainted(t *testing.T) {
	c := corpus.New(0)
	tainted := il.NewProgram(nil)
	tainted.Contributors["jonm.NeutralLoop"] = struct{}{}
	c.Add(tainted)

	rng := rand.New(rand.NewSource(2))
	assert.Nil(t, c.GetFreeOf(rng, "jonm.NeutralLoop"))
}

func TestGetFreeOfOnEmptyCorpusReturnsNil(t *testing.T) {
	c := corpus.New(0)
	rng := rand.New(rand.NewSource(3))
	assert.Nil(t, c.GetFreeOf(rng))
}

func TestAllReturnsEveryStoredProgram(t *testing.T) {
	c := corpus.New(0)
	a := il.NewProgram(nil)
	b := il.NewProgram(nil)
	c.Add(a)
	c.Add(b)
	all := c.All()
	assert.Len(t, all, 2)
}

func TestCleanupEvictsDownToHalfWhenFull(t *testing.T) {
	c := corpus.New(4)
	var ids []string
	for i := 0; i < 4; i++ {
		p := il.NewProgram(nil)
		ids = append(ids, p.ID)
		c.Add(p)
	}
	require.Equal(t, 4, c.Size())

	// Adding a fifth program while at maxSize triggers cleanup first, which
	// evicts len(entries)/2 == 2, then the new program is inserted.
	fifth := il.NewProgram(nil)
	c.Add(fifth)

	assert.LessOrEqual(t, c.Size(), 3)
	assert.NotNil(t, c.Get(fifth.ID), "the newly added program must survive its own insertion's cleanup")
}

func TestCleanupPrefersKeepingHigherContributorCountAndLowerExecutions(t *testing.T) {
	c := corpus.New(2)

	lowValue := il.NewProgram(nil) // no contributors, will be resampled heavily
	c.Add(lowValue)

	highValue := il.NewProgram(nil)
	highValue.Contributors["checksum"] = struct{}{}
	highValue.Contributors["jonm.NeutralLoop"] = struct{}{}
	c.Add(highValue)

	for i := 0; i < 50; i++ {
		c.MarkExecuted(lowValue.ID)
	}

	// Triggers cleanupLocked at maxSize=2.
	c.Add(il.NewProgram(nil))

	assert.NotNil(t, c.Get(highValue.ID), "a heavily-contributed, rarely-resampled program should survive eviction")
}

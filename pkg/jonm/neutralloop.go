/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: neutralloop.go
Description: Neutral-loop insertion (spec.md §4.4.1): inserts a fresh
unrelated small program containing a bounded for(i<N) loop wrapped in
try/catch with an empty handler, at a mutable position inside a subroutine.
Triggers on-stack-replacement JIT compilation of the enclosing subroutine
without altering state visible to the outer program.
*/

package jonm

import (
	"math/rand"

	"github.com/rsolene/jonm-fuzzer/pkg/analysis"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/mutate"
)

// NameNeutralLoop is the contributor name recorded on every program this
// mutator produces (spec.md §4.6 step 1 excludes seeds carrying it).
const NameNeutralLoop = "jonm.NeutralLoop"

// NeutralLoop implements mutate.Kind.
type NeutralLoop struct {
	stats mutate.Stats
}

// NewNeutralLoop constructs a ready-to-use NeutralLoop mutator.
func NewNeutralLoop() *NeutralLoop { return &NeutralLoop{} }

func (m *NeutralLoop) sampler(p *il.Program) mutate.SubroutineSampler {
	ctx := analysis.NewContextAnalyzer(p)
	dead := analysis.NewDeadCodeAnalyzer(p)
	return mutate.SubroutineSampler{
		CanMutate: func(p *il.Program, headIdx, i int) bool {
			return !commonVeto(ctx, dead, i)
		},
	}
}

// CanMutate reports whether p has at least one candidate insertion point.
func (m *NeutralLoop) CanMutate(p *il.Program) bool {
	return len(m.sampler(p).Candidates(p)) > 0
}

// Mutate picks a mutable interior position inside a randomly chosen outmost
// subroutine and inserts the neutral loop immediately after it.
func (m *NeutralLoop) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, error) {
	sampler := m.sampler(p)
	blk, body, mask, ok := sampler.Sample(p, rng)
	if !ok {
		return nil, nil
	}

	var positions []int
	for k, can := range mask {
		if can {
			positions = append(positions, k)
		}
	}
	if len(positions) == 0 {
		return nil, nil
	}
	pos := positions[rng.Intn(len(positions))]

	mutant := sampler.Rebuild(p, blk, NameNeutralLoop, func(b *il.Builder) {
		for k, instr := range body {
			b.Replicate(instr)
			if k == pos {
				emitNeutralLoopFragment(b, rng)
			}
		}
	})
	m.stats.AddInstructions(mutant.Len() - p.Len())
	return mutant, nil
}

// Name returns this mutator's contributor name.
func (m *NeutralLoop) Name() string { return NameNeutralLoop }

// Stats returns the failedToGenerate/addedInstructions counters.
func (m *NeutralLoop) Stats() *mutate.Stats { return &m.stats }

// emitNeutralLoopFragment emits the fresh unrelated program containing the
// bounded loop, wrapped in try/catch with an empty handler.
func emitNeutralLoopFragment(b *il.Builder, rng *rand.Rand) {
	b.BuildTryCatchFinally(func(ctx *il.BuilderContext) {
		ctx.BuildRepeatLoop(DefaultMaxLoopTripCountInJIT, func(ctx *il.BuilderContext, _ il.Variable) {
			EmitFreshProgram(ctx, rng)
		})
	}, func(ctx *il.BuilderContext) {
		// empty handler
	}, nil)
}

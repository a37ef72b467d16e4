/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: callinloop.go
Description: Call-in-loop (spec.md §4.5): wraps an existing call instruction
in a warmup loop — N-1 discarded warmup calls followed by the original call,
which keeps its original output binding. Non-semantic-preserving.
*/

package warmup

import (
	"math/rand"

	"github.com/rsolene/jonm-fuzzer/pkg/analysis"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/jonm"
	"github.com/rsolene/jonm-fuzzer/pkg/mutate"
)

// NameCallInLoop is this mutator's contributor name.
const NameCallInLoop = "warmup.CallInLoop"

// CallInLoop implements mutate.Kind.
type CallInLoop struct {
	stats mutate.Stats
}

// NewCallInLoop constructs a ready-to-use CallInLoop mutator.
func NewCallInLoop() *CallInLoop { return &CallInLoop{} }

func (m *CallInLoop) sampler(p *il.Program) mutate.InstructionSampler {
	dead := analysis.NewDeadCodeAnalyzer(p)
	return mutate.InstructionSampler{
		CanMutate: func(p *il.Program, i int) bool {
			return p.Instructions[i].Op.IsCall() && !dead.IsDead(i)
		},
	}
}

// CanMutate reports whether p has at least one call instruction to wrap.
func (m *CallInLoop) CanMutate(p *il.Program) bool {
	return len(m.sampler(p).Candidates(p)) > 0
}

// Mutate picks one call instruction at random and wraps it in a warmup loop.
func (m *CallInLoop) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, error) {
	sampler := m.sampler(p)
	sites := sampler.Sample(p, rng, 1)
	if len(sites) == 0 {
		return nil, nil
	}

	mutant := sampler.Rebuild(p, sites, NameCallInLoop, func(b *il.Builder, instr il.Instruction) {
		emitWarmupLoop(b, jonm.DefaultMaxLoopTripCountInJIT-1, rng)
		b.Replicate(instr)
	})
	m.stats.AddInstructions(mutant.Len() - p.Len())
	return mutant, nil
}

// Name returns this mutator's contributor name.
func (m *CallInLoop) Name() string { return NameCallInLoop }

// Stats returns the failedToGenerate/addedInstructions counters.
func (m *CallInLoop) Stats() *mutate.Stats { return &m.stats }

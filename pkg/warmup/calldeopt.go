/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: calldeopt.go
Description: Call+de-opt (spec.md §4.5): same shape as call-in-loop, plus a
discarded follow-up call using type-divergent arguments, attempting to
deoptimize the path the warmup loop just compiled. Non-semantic-preserving.
*/

package warmup

import (
	"math/rand"

	"github.com/rsolene/jonm-fuzzer/pkg/analysis"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/jonm"
	"github.com/rsolene/jonm-fuzzer/pkg/mutate"
)

// NameCallDeopt is this mutator's contributor name.
const NameCallDeopt = "warmup.CallDeopt"

// CallDeopt implements mutate.Kind.
type CallDeopt struct {
	stats mutate.Stats
}

// NewCallDeopt constructs a ready-to-use CallDeopt mutator.
func NewCallDeopt() *CallDeopt { return &CallDeopt{} }

func (m *CallDeopt) sampler(p *il.Program) mutate.InstructionSampler {
	dead := analysis.NewDeadCodeAnalyzer(p)
	return mutate.InstructionSampler{
		CanMutate: func(p *il.Program, i int) bool {
			instr := p.Instructions[i]
			return instr.Op.IsCall() && len(instr.Inputs) > 1 && !dead.IsDead(i)
		},
	}
}

// CanMutate reports whether p has at least one call with arguments to
// deoptimize against.
func (m *CallDeopt) CanMutate(p *il.Program) bool {
	return len(m.sampler(p).Candidates(p)) > 0
}

// Mutate picks one candidate call, wraps it in a warmup loop, and appends a
// discarded follow-up call with mismatched argument types.
func (m *CallDeopt) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, error) {
	sampler := m.sampler(p)
	sites := sampler.Sample(p, rng, 1)
	if len(sites) == 0 {
		return nil, nil
	}

	mutant := sampler.Rebuild(p, sites, NameCallDeopt, func(b *il.Builder, instr il.Instruction) {
		kinds := jonm.MismatchKinds(jonm.InferArgKinds(p, instr))
		fnVar := instr.Inputs[0]

		emitWarmupLoop(b, jonm.DefaultMaxLoopTripCountInJIT-1, rng)
		b.Replicate(instr)
		args := jonm.BuildArgs(b, kinds, rng)
		deoptCall := b.CallFunction(fnVar, args...)
		b.Hide(deoptCall)
	})
	m.stats.AddInstructions(mutant.Len() - p.Len())
	return mutant, nil
}

// Name returns this mutator's contributor name.
func (m *CallDeopt) Name() string { return NameCallDeopt }

// Stats returns the failedToGenerate/addedInstructions counters.
func (m *CallDeopt) Stats() *mutate.Stats { return &m.stats }

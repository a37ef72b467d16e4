/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: calldeoptrecompile.go
Description: Call+de-opt+recompile (spec.md §4.5): the call-deopt shape plus
a second warmup loop wrapping a matching-type call, attempting to force
recompilation of the path the de-opt call just invalidated.
Non-semantic-preserving.
*/

package warmup

import (
	"math/rand"

	"github.com/rsolene/jonm-fuzzer/pkg/analysis"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/jonm"
	"github.com/rsolene/jonm-fuzzer/pkg/mutate"
)

// NameCallDeoptRecompile is this mutator's contributor name.
const NameCallDeoptRecompile = "warmup.CallDeoptRecompile"

// CallDeoptRecompile implements mutate.Kind.
type CallDeoptRecompile struct {
	stats mutate.Stats
}

// NewCallDeoptRecompile constructs a ready-to-use CallDeoptRecompile mutator.
func NewCallDeoptRecompile() *CallDeoptRecompile { return &CallDeoptRecompile{} }

func (m *CallDeoptRecompile) sampler(p *il.Program) mutate.InstructionSampler {
	dead := analysis.NewDeadCodeAnalyzer(p)
	return mutate.InstructionSampler{
		CanMutate: func(p *il.Program, i int) bool {
			instr := p.Instructions[i]
			return instr.Op.IsCall() && len(instr.Inputs) > 1 && !dead.IsDead(i)
		},
	}
}

// CanMutate reports whether p has at least one call with arguments to
// deoptimize and recompile against.
func (m *CallDeoptRecompile) CanMutate(p *il.Program) bool {
	return len(m.sampler(p).Candidates(p)) > 0
}

// Mutate picks one candidate call and applies warmup -> call ->
// mismatched-type deopt call -> second warmup loop wrapping a
// matching-type call.
func (m *CallDeoptRecompile) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, error) {
	sampler := m.sampler(p)
	sites := sampler.Sample(p, rng, 1)
	if len(sites) == 0 {
		return nil, nil
	}

	mutant := sampler.Rebuild(p, sites, NameCallDeoptRecompile, func(b *il.Builder, instr il.Instruction) {
		kinds := jonm.InferArgKinds(p, instr)
		mismatched := jonm.MismatchKinds(kinds)
		fnVar := instr.Inputs[0]

		emitWarmupLoop(b, jonm.DefaultMaxLoopTripCountInJIT-1, rng)
		b.Replicate(instr)

		deoptArgs := jonm.BuildArgs(b, mismatched, rng)
		deoptCall := b.CallFunction(fnVar, deoptArgs...)
		b.Hide(deoptCall)

		b.BuildRepeatLoop(jonm.DefaultMaxLoopTripCountInJIT-1, func(ctx *il.BuilderContext, _ il.Variable) {
			recompileArgs := jonm.BuildArgs(ctx, kinds, rng)
			recompileCall := ctx.CallFunction(fnVar, recompileArgs...)
			ctx.Hide(recompileCall)
		})
	})
	m.stats.AddInstructions(mutant.Len() - p.Len())
	return mutant, nil
}

// Name returns this mutator's contributor name.
func (m *CallDeoptRecompile) Name() string { return NameCallDeoptRecompile }

// Stats returns the failedToGenerate/addedInstructions counters.
func (m *CallDeoptRecompile) Stats() *mutate.Stats { return &m.stats }

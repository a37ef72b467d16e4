/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sampler.go
Description: The two base mutation patterns from spec.md §4.3: a
per-instruction candidate sampler and a per-outmost-subroutine candidate
sampler. Both only pick candidate sites/blocks; re-emitting the mutated
program (adoption of unchanged instructions interleaved with the concrete
mutator's replacement) is left to Rebuild, since only the concrete mutator
knows what to build at the chosen site.
*/

package mutate

import (
	"math/rand"

	"github.com/rsolene/jonm-fuzzer/pkg/il"
)

// InstructionSampler is the per-instruction base pattern: candidates are
// single instructions for which CanMutate is true.
type InstructionSampler struct {
	CanMutate func(p *il.Program, i int) bool
}

// Candidates returns every instruction index satisfying CanMutate, in
// program order.
func (s InstructionSampler) Candidates(p *il.Program) []int {
	var out []int
	for i := range p.Instructions {
		if s.CanMutate(p, i) {
			out = append(out, i)
		}
	}
	return out
}

// Sample draws up to maxSites distinct candidate indices uniformly at
// random, or nil if no candidate exists (spec.md §4.3: "return null iff no
// candidate exists").
func (s InstructionSampler) Sample(p *il.Program, rng *rand.Rand, maxSites int) []int {
	candidates := s.Candidates(p)
	if len(candidates) == 0 {
		return nil
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if maxSites > len(candidates) {
		maxSites = len(candidates)
	}
	chosen := candidates[:maxSites]
	return chosen
}

// Rebuild re-emits p, calling mutate at each of sites instead of adopting
// the original instruction there, and adopting every other instruction
// unchanged. The returned program's contributor set is p's union
// {mutatorTag}.
func (s InstructionSampler) Rebuild(p *il.Program, sites []int, mutatorTag string, mutate func(b *il.Builder, instr il.Instruction)) *il.Program {
	chosen := make(map[int]struct{}, len(sites))
	for _, i := range sites {
		chosen[i] = struct{}{}
	}
	b := il.NewBuilder(mutatorTag)
	for i, instr := range p.Instructions {
		if _, ok := chosen[i]; ok {
			mutate(b, instr)
			continue
		}
		b.Replicate(instr)
	}
	return b.Finalize(p)
}

// SubroutineSampler is the per-outmost-subroutine base pattern: candidates
// are outmost subroutine blocks whose interior contains at least one
// instruction for which CanMutate(headIdx, i) is true.
type SubroutineSampler struct {
	CanMutate func(p *il.Program, headIdx, i int) bool
}

// Candidates returns every outmost subroutine block with at least one
// mutable interior instruction.
func (s SubroutineSampler) Candidates(p *il.Program) []il.Block {
	var out []il.Block
	for _, blk := range p.OutmostSubroutines() {
		for i := blk.HeadIndex + 1; i < blk.TailIndex; i++ {
			if s.CanMutate(p, blk.HeadIndex, i) {
				out = append(out, blk)
				break
			}
		}
	}
	return out
}

// Sample draws one candidate block uniformly at random and returns its
// instructions (head through tail, inclusive) alongside a mutableMask the
// same length as body, where mask[k] reports whether code may be inserted
// after body[k] (spec.md §4.3). ok is false iff no candidate exists.
func (s SubroutineSampler) Sample(p *il.Program, rng *rand.Rand) (blk il.Block, body []il.Instruction, mask []bool, ok bool) {
	candidates := s.Candidates(p)
	if len(candidates) == 0 {
		return il.Block{}, nil, nil, false
	}
	chosen := candidates[rng.Intn(len(candidates))]
	body = p.Instructions[chosen.HeadIndex : chosen.TailIndex+1]
	mask = make([]bool, len(body))
	for k := 1; k < len(body)-1; k++ {
		mask[k] = s.CanMutate(p, chosen.HeadIndex, chosen.HeadIndex+k)
	}
	return chosen, body, mask, true
}

// Rebuild re-emits p, adopting every instruction outside blk unchanged and
// delegating the replacement of blk's own instruction range to buildBody,
// which receives the builder to emit the mutated subroutine into.
func (s SubroutineSampler) Rebuild(p *il.Program, blk il.Block, mutatorTag string, buildBody func(b *il.Builder)) *il.Program {
	b := il.NewBuilder(mutatorTag)
	for i := 0; i < blk.HeadIndex; i++ {
		b.Replicate(p.Instructions[i])
	}
	buildBody(b)
	for i := blk.TailIndex + 1; i < len(p.Instructions); i++ {
		b.Replicate(p.Instructions[i])
	}
	return b.Finalize(p)
}

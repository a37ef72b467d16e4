/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: subroutineloop.go
Description: Subroutine-loop insertion (spec.md §4.5): prepends a warmup
loop to an outmost subroutine's body. Non-semantic-preserving — used only as
the JoNM engine's last-attempt fallback when every JoN mutator fails
(spec.md §4.6 step 5), and natively by the sister mutation engine this
package is grounded on (out of scope beyond this completeness listing).
*/

package warmup

import (
	"math/rand"

	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/jonm"
	"github.com/rsolene/jonm-fuzzer/pkg/mutate"
)

// NameSubroutineLoop is this mutator's contributor name.
const NameSubroutineLoop = "warmup.SubroutineLoop"

// SubroutineLoop implements mutate.Kind.
type SubroutineLoop struct {
	stats mutate.Stats
}

// NewSubroutineLoop constructs a ready-to-use SubroutineLoop mutator.
func NewSubroutineLoop() *SubroutineLoop { return &SubroutineLoop{} }

// CanMutate reports whether p has at least one outmost subroutine.
func (m *SubroutineLoop) CanMutate(p *il.Program) bool {
	return len(p.OutmostSubroutines()) > 0
}

// Mutate picks one outmost subroutine at random and prepends a warmup loop
// to its body, immediately after the head.
func (m *SubroutineLoop) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, error) {
	subs := p.OutmostSubroutines()
	if len(subs) == 0 {
		return nil, nil
	}
	blk := subs[rng.Intn(len(subs))]

	b := il.NewBuilder(NameSubroutineLoop)
	for i := 0; i < blk.HeadIndex; i++ {
		b.Replicate(p.Instructions[i])
	}
	b.Replicate(p.Instructions[blk.HeadIndex])
	b.BuildRepeatLoop(jonm.DefaultMaxLoopTripCountInJIT, func(ctx *il.BuilderContext, _ il.Variable) {
		emitWarmupBody(ctx, rng)
	})
	for i := blk.HeadIndex + 1; i < len(p.Instructions); i++ {
		b.Replicate(p.Instructions[i])
	}

	mutant := b.Finalize(p)
	m.stats.AddInstructions(mutant.Len() - p.Len())
	return mutant, nil
}

// Name returns this mutator's contributor name.
func (m *SubroutineLoop) Name() string { return NameSubroutineLoop }

// Stats returns the failedToGenerate/addedInstructions counters.
func (m *SubroutineLoop) Stats() *mutate.Stats { return &m.stats }

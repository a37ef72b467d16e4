/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: deoptprecall.go
Description: De-optimization pre-call (spec.md §4.4.4), the inverse of
JIT-warmup pre-call: targets a function already called inside a loop,
attaches the same flag-guarded prologue, but the injected call uses
argument types that deliberately differ from the existing call and fires
only once the loop counter passes the midpoint, aiming to deoptimize a
previously compiled path.
*/

package jonm

import (
	"fmt"
	"math/rand"

	"github.com/rsolene/jonm-fuzzer/pkg/analysis"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/mutate"
)

// NameDeoptPreCall is this mutator's contributor name.
const NameDeoptPreCall = "jonm.DeoptPreCall"

// DeoptPreCall implements mutate.Kind.
type DeoptPreCall struct {
	stats mutate.Stats
}

// NewDeoptPreCall constructs a ready-to-use DeoptPreCall mutator.
func NewDeoptPreCall() *DeoptPreCall { return &DeoptPreCall{} }

func (m *DeoptPreCall) candidates(p *il.Program) []funcCandidate {
	ctx := analysis.NewContextAnalyzer(p)
	dead := analysis.NewDeadCodeAnalyzer(p)
	return findFunctionCandidates(p, ctx, dead, true)
}

// CanMutate reports whether p has a plain/arrow function already called
// inside a loop.
func (m *DeoptPreCall) CanMutate(p *il.Program) bool { return len(m.candidates(p)) > 0 }

// Mutate picks one candidate function and applies the de-optimization
// pre-call shape.
func (m *DeoptPreCall) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, error) {
	candidates := m.candidates(p)
	if len(candidates) == 0 {
		return nil, nil
	}
	c := candidates[rng.Intn(len(candidates))]
	call := p.Instructions[c.callIdx]
	kinds := MismatchKinds(InferArgKinds(p, call))

	salt := rng.Intn(1 << 30)
	flagName := fmt.Sprintf("__jonm_deoptflag_%d", salt)

	b := il.NewBuilder(NameDeoptPreCall)
	for i := 0; i < c.head; i++ {
		b.Replicate(p.Instructions[i])
	}

	falseVar := b.LoadBool(false)
	b.DefineNamedVariable(flagName, falseVar)

	head := p.Instructions[c.head]
	b.AdoptAndDefine(head)
	flagVal := b.LoadNamedVariable(flagName)
	b.BuildIf(flagVal, func(ctx *il.BuilderContext) {
		EmitFreshProgram(ctx, rng)
		nullVar := ctx.LoadNull()
		ctx.DoReturn(&nullVar)
	}, nil)
	for i := c.head + 1; i <= c.tail; i++ {
		b.Replicate(p.Instructions[i])
	}

	for i := c.tail + 1; i < len(p.Instructions); i++ {
		if i == c.callIdx {
			emitDeoptCallLoop(b, flagName, call, kinds, rng)
		}
		b.Replicate(p.Instructions[i])
	}

	mutant := b.Finalize(p)
	m.stats.AddInstructions(mutant.Len() - p.Len())
	return mutant, nil
}

// Name returns this mutator's contributor name.
func (m *DeoptPreCall) Name() string { return NameDeoptPreCall }

// Stats returns the failedToGenerate/addedInstructions counters.
func (m *DeoptPreCall) Stats() *mutate.Stats { return &m.stats }

// emitDeoptCallLoop emits:
//
//	flag = true
//	try { for i<N { ...fresh code...; if i >= N/2 { f(args') } } } catch {}
//	finally { flag = false }
//
// where args' deliberately diverge in type from the existing call.
func emitDeoptCallLoop(b *il.Builder, flagName string, call il.Instruction, kinds []string, rng *rand.Rand) {
	trueVar := b.LoadBool(true)
	b.StoreNamedVariable(flagName, trueVar)
	fnVar := call.Inputs[0]
	midpoint := DefaultMaxLoopTripCountInJIT / 2

	b.BuildTryCatchFinally(func(ctx *il.BuilderContext) {
		ctx.BuildRepeatLoop(DefaultMaxLoopTripCountInJIT, func(ctx *il.BuilderContext, counter il.Variable) {
			EmitFreshProgram(ctx, rng)
			half := ctx.LoadInt(midpoint)
			pastMidpoint := ctx.Compare("GreaterThanOrEqual", counter, half)
			ctx.BuildIf(pastMidpoint, func(ctx *il.BuilderContext) {
				args := BuildArgs(ctx, kinds, rng)
				ctx.CallFunction(fnVar, args...)
			}, nil)
		})
	}, func(ctx *il.BuilderContext) {
		// empty handler
	}, func(ctx *il.BuilderContext) {
		offVar := ctx.LoadBool(false)
		ctx.StoreNamedVariable(flagName, offVar)
	})
}

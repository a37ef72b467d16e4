/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: warmupprecall.go
Description: JIT-warmup pre-call (spec.md §4.4.3): applicable only to plain
and arrow functions. Inserts a flag-guarded early-return prologue into the
function body, and, before the function's first call site, a warmup loop
that repeatedly calls it with argument types matching that first call so the
JIT specializes on the same shape.
*/

package jonm

import (
	"fmt"
	"math/rand"

	"github.com/rsolene/jonm-fuzzer/pkg/analysis"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/mutate"
)

// NameWarmupPreCall is this mutator's contributor name.
const NameWarmupPreCall = "jonm.WarmupPreCall"

// WarmupPreCall implements mutate.Kind.
type WarmupPreCall struct {
	stats mutate.Stats
}

// NewWarmupPreCall constructs a ready-to-use WarmupPreCall mutator.
func NewWarmupPreCall() *WarmupPreCall { return &WarmupPreCall{} }

func (m *WarmupPreCall) candidates(p *il.Program) []funcCandidate {
	ctx := analysis.NewContextAnalyzer(p)
	dead := analysis.NewDeadCodeAnalyzer(p)
	return findFunctionCandidates(p, ctx, dead, false)
}

// CanMutate reports whether p has a plain/arrow function with a call site
// to warm up.
func (m *WarmupPreCall) CanMutate(p *il.Program) bool { return len(m.candidates(p)) > 0 }

// Mutate picks one candidate function and applies the warmup pre-call shape.
func (m *WarmupPreCall) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, error) {
	candidates := m.candidates(p)
	if len(candidates) == 0 {
		return nil, nil
	}
	c := candidates[rng.Intn(len(candidates))]
	call := p.Instructions[c.callIdx]
	kinds := InferArgKinds(p, call)

	salt := rng.Intn(1 << 30)
	flagName := fmt.Sprintf("__jonm_warmflag_%d", salt)

	b := il.NewBuilder(NameWarmupPreCall)
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
			emitWarmupCallLoop(b, flagName, call, kinds, rng)
		}
		b.Replicate(p.Instructions[i])
	}

	mutant := b.Finalize(p)
	m.stats.AddInstructions(mutant.Len() - p.Len())
	return mutant, nil
}

// Name returns this mutator's contributor name.
func (m *WarmupPreCall) Name() string { return NameWarmupPreCall }

// Stats returns the failedToGenerate/addedInstructions counters.
func (m *WarmupPreCall) Stats() *mutate.Stats { return &m.stats }

// emitWarmupCallLoop emits:
//
//	flag = true
//	try { for N { ...fresh code...; f(args') } } catch {}
//	finally { flag = false }
func emitWarmupCallLoop(b *il.Builder, flagName string, call il.Instruction, kinds []string, rng *rand.Rand) {
	trueVar := b.LoadBool(true)
	b.StoreNamedVariable(flagName, trueVar)
	fnVar := call.Inputs[0]

	b.BuildTryCatchFinally(func(ctx *il.BuilderContext) {
		ctx.BuildRepeatLoop(DefaultMaxLoopTripCountInJIT, func(ctx *il.BuilderContext, _ il.Variable) {
			EmitFreshProgram(ctx, rng)
			args := BuildArgs(ctx, kinds, rng)
			ctx.CallFunction(fnVar, args...)
		})
	}, func(ctx *il.BuilderContext) {
		// empty handler
	}, func(ctx *il.BuilderContext) {
		offVar := ctx.LoadBool(false)
		ctx.StoreNamedVariable(flagName, offVar)
	})
}

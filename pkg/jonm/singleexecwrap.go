/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: singleexecwrap.go
Description: Single-execution wrap (spec.md §4.4.2): wraps a qualifying
interior instruction in a flag-guarded try/for/catch/finally shape that
provokes JIT compilation of the surrounding loop while guaranteeing the
wrapped instruction still executes exactly once, and rebinds its output (if
any) to the construct's "saved" variable.
*/

package jonm

import (
	"fmt"
	"math/rand"

	"github.com/rsolene/jonm-fuzzer/pkg/analysis"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/mutate"
)

// NameSingleExecWrap is this mutator's contributor name.
const NameSingleExecWrap = "jonm.SingleExecWrap"

// SingleExecWrap implements mutate.Kind.
type SingleExecWrap struct {
	stats mutate.Stats
}

// NewSingleExecWrap constructs a ready-to-use SingleExecWrap mutator.
func NewSingleExecWrap() *SingleExecWrap { return &SingleExecWrap{} }

// eligibleInstruction reports whether instr itself qualifies as a
// single-execution-wrap target, per the opcode exclusion list in spec.md
// §4.4.2.
func eligibleInstruction(instr il.Instruction) bool {
	op := instr.Op
	if op.IsJump() || op.IsBlockStart() || op.IsBlockEnd() || op.IsCall() || op.IsGuarded() {
		return false
	}
	switch op {
	case il.OpEval, il.OpAwait,
		il.OpLoadNamedVariable, il.OpStoreNamedVariable, il.OpDefineNamedVariable,
		il.OpLoadBuiltin,
		il.OpConfigureElement, il.OpConfigureProperty,
		il.OpGetComputedProperty, il.OpSetComputedProperty:
		return false
	}
	return instr.NumOutputs() <= 1
}

func (m *SingleExecWrap) sampler(p *il.Program) mutate.SubroutineSampler {
	ctx := analysis.NewContextAnalyzer(p)
	dead := analysis.NewDeadCodeAnalyzer(p)
	return mutate.SubroutineSampler{
		CanMutate: func(p *il.Program, headIdx, i int) bool {
			if commonVeto(ctx, dead, i) {
				return false
			}
			return eligibleInstruction(p.Instructions[i])
		},
	}
}

// CanMutate reports whether p has at least one wrappable instruction.
func (m *SingleExecWrap) CanMutate(p *il.Program) bool {
	return len(m.sampler(p).Candidates(p)) > 0
}

// Mutate picks one eligible interior instruction inside a randomly chosen
// outmost subroutine and wraps it.
func (m *SingleExecWrap) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, error) {
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
	target := body[pos]

	hasOutput := len(target.Outputs) == 1
	var oldID int
	if hasOutput {
		oldID = target.Outputs[0].ID
	}

	mutant := sampler.Rebuild(p, blk, NameSingleExecWrap, func(b *il.Builder) {
		var saved il.Variable
		for k, instr := range body {
			if k == pos {
				saved = emitSingleExecWrap(b, instr, rng)
				continue
			}
			if hasOutput {
				instr = remapInput(instr, oldID, saved)
			}
			b.Replicate(instr)
		}
	})
	m.stats.AddInstructions(mutant.Len() - p.Len())
	return mutant, nil
}

// Name returns this mutator's contributor name.
func (m *SingleExecWrap) Name() string { return NameSingleExecWrap }

// Stats returns the failedToGenerate/addedInstructions counters.
func (m *SingleExecWrap) Stats() *mutate.Stats { return &m.stats }

// emitSingleExecWrap builds the wrap construct around instr and returns the
// Variable downstream consumers of instr's original output should be
// rebound to.
//
//	flag=false, saved=null
//	try { for N { ...fresh program...; if !flag { saved = <instr>; flag = true } } }
//	catch {}
//	finally { if !flag { flag = true; saved = <instr> } }
func emitSingleExecWrap(b *il.Builder, instr il.Instruction, rng *rand.Rand) il.Variable {
	salt := rng.Intn(1 << 30)
	flagName := fmt.Sprintf("__jonm_flag_%d", salt)
	savedName := fmt.Sprintf("__jonm_saved_%d", salt)

	hasOutput := len(instr.Outputs) == 1

	// storeThenFlag implements the try-loop arm's documented shape:
	// saved = <instr>; flag = true.
	storeThenFlag := func(ctx *il.BuilderContext) {
		ctx.Replicate(instr)
		if hasOutput {
			ctx.StoreNamedVariable(savedName, instr.Outputs[0])
		}
		trueVar := ctx.LoadBool(true)
		ctx.StoreNamedVariable(flagName, trueVar)
	}

	// flagThenStore implements the finally arm's documented shape:
	// flag = true; saved = <instr>.
	flagThenStore := func(ctx *il.BuilderContext) {
		trueVar := ctx.LoadBool(true)
		ctx.StoreNamedVariable(flagName, trueVar)
		ctx.Replicate(instr)
		if hasOutput {
			ctx.StoreNamedVariable(savedName, instr.Outputs[0])
		}
	}

	falseVar := b.LoadBool(false)
	b.DefineNamedVariable(flagName, falseVar)
	nullVar := b.LoadNull()
	b.DefineNamedVariable(savedName, nullVar)

	b.BuildTryCatchFinally(func(ctx *il.BuilderContext) {
		ctx.BuildRepeatLoop(DefaultMaxLoopTripCountInJIT, func(ctx *il.BuilderContext, _ il.Variable) {
			EmitFreshProgram(ctx, rng)
			flag := ctx.LoadNamedVariable(flagName)
			notFlag := ctx.Unary("LogicNot", flag)
			ctx.BuildIf(notFlag, storeThenFlag, nil)
		})
	}, func(ctx *il.BuilderContext) {
		// empty handler
	}, func(ctx *il.BuilderContext) {
		flag := ctx.LoadNamedVariable(flagName)
		notFlag := ctx.Unary("LogicNot", flag)
		ctx.BuildIf(notFlag, flagThenStore, nil)
	})

	return b.LoadNamedVariable(savedName)
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: common.go
Description: Shared veto logic and small IL-construction helpers used by all
four JoN mutators (spec.md §4.4): the common veto set ("not inside .loop,
not inside .codeString, not inside dead code, must be inside .javascript.
None may touch object-literal bodies"), a minimal unrelated "fresh program"
fragment used wherever the spec says "...fresh program..." / "...fresh
code...", and a downstream-use remapper for the single-execution-wrap
mutator's output rebinding.
*/

package jonm

import (
	"math/rand"

	"github.com/rsolene/jonm-fuzzer/pkg/analysis"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
)

// DefaultMaxLoopTripCountInJIT is the bounded loop trip count used by every
// JoN mutator that inserts a warmup/neutral loop, named exactly as in
// spec.md §4.4.1.
const DefaultMaxLoopTripCountInJIT int64 = 921

// commonVeto reports whether instruction index i fails the common veto set
// shared by all four JoN mutators.
func commonVeto(ctx *analysis.ContextAnalyzer, dead *analysis.DeadCodeAnalyzer, i int) bool {
	c := ctx.CurrentAt(i)
	if !c.Has(il.CtxJavaScript) {
		return true
	}
	if c.Has(il.CtxLoop) {
		return true
	}
	if c.Has(il.CtxCodeString) {
		return true
	}
	if c.Has(il.CtxObjectLiteral) {
		return true
	}
	return dead.IsDead(i)
}

// Emitter is satisfied by both *il.Builder and *il.BuilderContext, letting
// EmitFreshProgram run at top level or nested inside an if/try/loop body
// without duplicating it per caller shape. Exported so pkg/warmup's
// fallback mutators can reuse the same filler.
type Emitter interface {
	LoadInt(int64) il.Variable
	Binary(operator string, lhs, rhs il.Variable) il.Variable
	Hide(v il.Variable)
}

// EmitFreshProgram emits a minimal, semantically inert instruction sequence
// standing in for the spec's "...fresh program..." / "...fresh code..."
// filler: it touches no variable visible to the surrounding program and its
// result is immediately hidden from def-use analysis.
func EmitFreshProgram(e Emitter, rng *rand.Rand) {
	a := e.LoadInt(rng.Int63n(1000) + 1)
	b := e.LoadInt(rng.Int63n(1000) + 1)
	sum := e.Binary("Add", a, b)
	e.Hide(sum)
}

// remapInput returns a copy of instr with every input whose Variable.ID
// equals oldID replaced by replacement. Used by single-execution-wrap to
// rebind downstream consumers of a wrapped instruction's original output to
// the wrap's "saved" variable.
func remapInput(instr il.Instruction, oldID int, replacement il.Variable) il.Instruction {
	if len(instr.Inputs) == 0 {
		return instr
	}
	next := instr
	next.Inputs = append([]il.Variable(nil), instr.Inputs...)
	changed := false
	for i, v := range next.Inputs {
		if v.ID == oldID {
			next.Inputs[i] = replacement
			changed = true
		}
	}
	if !changed {
		return instr
	}
	return next
}

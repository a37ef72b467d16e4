/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: common.go
Description: Shared helpers for the non-semantic-preserving warmup mutators
(spec.md §4.5), reusing pkg/jonm's fresh-program filler and argument-shape
inference rather than re-deriving them — these fallback mutators sit one
layer above the JoN mutators in the same veto/shape vocabulary, just without
the semantic-preservation guarantees.
*/

package warmup

import (
	"math/rand"

	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/jonm"
)

func emitWarmupBody(ctx *il.BuilderContext, rng *rand.Rand) {
	jonm.EmitFreshProgram(ctx, rng)
}

// emitWarmupLoop wraps n iterations of the fresh-program filler around a
// single call to fn, used to pad the call-wrapping mutators' warmup phase.
func emitWarmupLoop(b *il.Builder, n int64, rng *rand.Rand) {
	b.BuildRepeatLoop(n, func(ctx *il.BuilderContext, _ il.Variable) {
		emitWarmupBody(ctx, rng)
	})
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: argshape.go
Description: Argument-shape inference for the JIT-warmup and de-optimization
pre-call mutators: classifies a call's existing argument-producing
instructions into coarse kinds, and materializes matching or deliberately
mismatched literal arguments from those kinds (spec.md §4.4.3's "args'
reuses the argument types inferred from the program's first call to f" and
§4.4.4's deliberately type-divergent arguments). Exported so pkg/warmup's
call-wrapping fallback mutators can reuse the same classification instead of
re-deriving it.
*/

package jonm

import (
	"fmt"
	"math/rand"

	"github.com/rsolene/jonm-fuzzer/pkg/il"
)

// InferArgKinds classifies each of call's arguments (Inputs[1:], since
// Inputs[0] is the callee) by the opcode of its defining instruction.
func InferArgKinds(p *il.Program, call il.Instruction) []string {
	defOf := make(map[int]il.Opcode, len(p.Instructions))
	for _, instr := range p.Instructions {
		for _, out := range instr.Outputs {
			defOf[out.ID] = instr.Op
		}
	}

	kinds := make([]string, 0, len(call.Inputs)-1)
	for _, in := range call.Inputs[1:] {
		op, ok := defOf[in.ID]
		if !ok {
			kinds = append(kinds, "other")
			continue
		}
		switch op {
		case il.OpLoadInt:
			kinds = append(kinds, "int")
		case il.OpLoadBool:
			kinds = append(kinds, "bool")
		case il.OpLoadString:
			kinds = append(kinds, "string")
		default:
			kinds = append(kinds, "other")
		}
	}
	return kinds
}

// MismatchKinds maps each kind to a deliberately different one, used by the
// de-optimization pre-call mutator to force a different compiled shape.
func MismatchKinds(kinds []string) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		switch k {
		case "int":
			out[i] = "string"
		case "string":
			out[i] = "int"
		case "bool":
			out[i] = "string"
		default:
			out[i] = "int"
		}
	}
	return out
}

// ValueEmitter is satisfied by both *il.Builder and *il.BuilderContext.
type ValueEmitter interface {
	LoadInt(int64) il.Variable
	LoadBool(bool) il.Variable
	LoadString(string) il.Variable
	LoadNull() il.Variable
}

// BuildArgs materializes one fresh literal per entry in kinds.
func BuildArgs(e ValueEmitter, kinds []string, rng *rand.Rand) []il.Variable {
	out := make([]il.Variable, len(kinds))
	for i, k := range kinds {
		switch k {
		case "int":
			out[i] = e.LoadInt(rng.Int63n(1000))
		case "bool":
			out[i] = e.LoadBool(rng.Intn(2) == 0)
		case "string":
			out[i] = e.LoadString(fmt.Sprintf("w%d", rng.Intn(1000)))
		default:
			out[i] = e.LoadNull()
		}
	}
	return out
}

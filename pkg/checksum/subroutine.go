/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: subroutine.go
Description: Per-subroutine bookkeeping for the Modest checksum policy:
which subroutine (if any) encloses a given instruction, the stable string
key derived for it, and whether it is keyed at all (spec.md §4.2's
classification rules).
*/

package checksum

import (
	"fmt"

	"github.com/rsolene/jonm-fuzzer/pkg/analysis"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
)

// EnclosingSubroutines forwards to il.Program.EnclosingSubroutines; kept as
// a package-level function here since every other helper in this file
// takes p explicitly rather than as a receiver.
func EnclosingSubroutines(p *il.Program) []int {
	return p.EnclosingSubroutines()
}

// SubroutineKey derives the stable string key used to bucket checksum
// updates for the subroutine headed at headIdx.
func SubroutineKey(p *il.Program, headIdx int) string {
	head := p.Instructions[headIdx]
	name, _ := head.Attrs["name"].(string)
	if name == "" {
		name = "anon"
	}
	return fmt.Sprintf("%s:%s@%d", head.Op, name, headIdx)
}

// IsModestKeyed reports whether the subroutine headed at headIdx is
// assigned a checksum-update key under the Modest policy (spec.md §4.2):
//
//   - getters/setters (object-literal or class) are always keyed;
//   - class constructors, async functions, computed object-literal
//     methods, and toString/valueOf methods are always excluded;
//   - plain/arrow/generator functions, constructors, non-computed object-
//     literal methods, and non-constructor class methods are keyed only if
//     their def-use analysis shows no higher-order usage.
func IsModestKeyed(p *il.Program, ctx *analysis.ContextAnalyzer, du *analysis.DefUseAnalyzer, headIdx int) bool {
	head := p.Instructions[headIdx]
	name, _ := head.Attrs["name"].(string)
	computed, _ := head.Attrs["computed"].(bool)

	switch head.Op {
	case il.OpObjectLiteralGetterHead, il.OpObjectLiteralSetterHead,
		il.OpClassGetterHead, il.OpClassSetterHead:
		return true
	case il.OpClassConstructorHead:
		return false
	case il.OpObjectLiteralMethodHead:
		if computed || name == "toString" || name == "valueOf" {
			return false
		}
	case il.OpClassMethodHead:
		if name == "toString" || name == "valueOf" {
			return false
		}
	case il.OpPlainFunctionHead, il.OpArrowFunctionHead, il.OpConstructorHead:
		// fall through to the higher-order/async check below
	default:
		return false
	}

	if ctx.AggregateAt(headIdx + 1).Has(il.CtxAsyncFunction) {
		return false
	}
	return !du.IsPassedHigherOrder(p, headIdx)
}

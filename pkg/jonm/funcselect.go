/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: funcselect.go
Description: Candidate selection shared by the JIT-warmup and
de-optimization pre-call mutators (spec.md §4.4.3, §4.4.4): outmost plain or
arrow functions that pass the common veto set and have a qualifying call
site somewhere later in the program.
*/

package jonm

import (
	"github.com/rsolene/jonm-fuzzer/pkg/analysis"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
)

// funcCandidate names a function definition block plus the program index of
// the call site the mutator will act against.
type funcCandidate struct {
	head, tail int
	callIdx    int
}

// findFunctionCandidates scans every outmost plain/arrow function definition
// and, for each, looks for the first later call to it. When requireLoopCall
// is true (de-optimization pre-call), only a call sitting inside a .loop
// context qualifies.
func findFunctionCandidates(p *il.Program, ctx *analysis.ContextAnalyzer, dead *analysis.DeadCodeAnalyzer, requireLoopCall bool) []funcCandidate {
	var out []funcCandidate
	for _, blk := range p.OutmostSubroutines() {
		head := p.Instructions[blk.HeadIndex]
		if head.Op != il.OpPlainFunctionHead && head.Op != il.OpArrowFunctionHead {
			continue
		}
		if commonVeto(ctx, dead, blk.HeadIndex) {
			continue
		}
		if len(head.Outputs) == 0 {
			continue
		}
		fnID := head.Outputs[0].ID

		callIdx := -1
		for i := blk.TailIndex + 1; i < len(p.Instructions); i++ {
			instr := p.Instructions[i]
			if !instr.Op.IsCall() || len(instr.Inputs) == 0 || instr.Inputs[0].ID != fnID {
				continue
			}
			if requireLoopCall && !ctx.CurrentAt(i).Has(il.CtxLoop) {
				continue
			}
			callIdx = i
			break
		}
		if callIdx == -1 {
			continue
		}
		out = append(out, funcCandidate{head: blk.HeadIndex, tail: blk.TailIndex, callIdx: callIdx})
	}
	return out
}

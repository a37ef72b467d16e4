/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: recursion.go
Description: Unbounded-recursion heuristic: for every subroutine definition,
scan its body linearly (skipping nested subroutines); if a self-invocation
is encountered before any return instruction, flag the program as
potentially non-terminating. Intentionally over-approximating; used only as
a determinism pre-filter, never as a correctness oracle.
*/

package analysis

import "github.com/rsolene/jonm-fuzzer/pkg/il"

// RecursionAnalyzer implements the heuristic of spec.md §4.1.
type RecursionAnalyzer struct{}

// NewRecursionAnalyzer returns a stateless analyzer (rebuilt per program per
// the Design Note in spec.md §9, though this one carries no state to reset).
func NewRecursionAnalyzer() *RecursionAnalyzer { return &RecursionAnalyzer{} }

// MayDiverge reports whether any subroutine in p self-invokes before its
// first return instruction.
func (a *RecursionAnalyzer) MayDiverge(p *il.Program) bool {
	for _, sub := range p.FindAllSubroutines(nil) {
		if selfInvokesBeforeReturn(p, sub) {
			return true
		}
	}
	return false
}

// selfInvokesBeforeReturn scans sub's body linearly, skipping any nested
// subroutine bodies wholesale, and reports whether a call matching sub's own
// identity (its own Outputs[0] variable, or a load of its name, used as the
// callee) occurs before any return instruction at sub's own nesting level.
func selfInvokesBeforeReturn(p *il.Program, sub il.Block) bool {
	head := p.Instructions[sub.HeadIndex]
	if len(head.Outputs) == 0 {
		return false
	}
	selfID := head.Outputs[0].ID
	selfName, _ := head.Attrs["name"].(string)
	nameLoads := map[int]bool{}

	i := sub.HeadIndex + 1
	for i < sub.TailIndex {
		instr := p.Instructions[i]

		if instr.Op.IsBlockStart() && instr.Op.IsSubroutineHead() {
			end := p.FindBlockEnd(i)
			if end < 0 {
				return false
			}
			i = end + 1
			continue
		}
		if selfName != "" && instr.Op == il.OpLoadNamedVariable && len(instr.Outputs) > 0 {
			if n, _ := instr.Attrs["name"].(string); n == selfName {
				nameLoads[instr.Outputs[0].ID] = true
			}
		}
		if instr.Op.IsCall() && len(instr.Inputs) > 0 && (instr.Inputs[0].ID == selfID || nameLoads[instr.Inputs[0].ID]) {
			return true
		}
		if instr.Op == il.OpReturn {
			return false
		}
		i++
	}
	return false
}

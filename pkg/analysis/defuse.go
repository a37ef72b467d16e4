/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: defuse.go
Description: Def-use analyzer: maps each variable-defining instruction to
the set of instructions that consume it. Used by the Modest checksum policy
to decide whether a subroutine value is ever passed higher-order (used as a
call argument to something other than invoking it directly), in which case
its invocation count is engine-dependent and it is excluded from checksum
counter keying.
*/

package analysis

import "github.com/rsolene/jonm-fuzzer/pkg/il"

// DefUseAnalyzer builds a map from a variable's defining instruction index to
// the indices of every instruction that consumes it as an input.
type DefUseAnalyzer struct {
	defOf map[int]int   // variable ID -> defining instruction index
	uses  map[int][]int // defining instruction index -> consuming instruction indices
}

// NewDefUseAnalyzer sweeps p once and builds the def-use map.
func NewDefUseAnalyzer(p *il.Program) *DefUseAnalyzer {
	a := &DefUseAnalyzer{defOf: map[int]int{}, uses: map[int][]int{}}
	for i, instr := range p.Instructions {
		for _, out := range instr.Outputs {
			a.defOf[out.ID] = i
		}
	}
	for i, instr := range p.Instructions {
		for _, in := range instr.Inputs {
			if defIdx, ok := a.defOf[in.ID]; ok {
				a.uses[defIdx] = append(a.uses[defIdx], i)
			}
		}
	}
	return a
}

// UsesOf returns the instruction indices that consume the value defined at
// defIndex.
func (a *DefUseAnalyzer) UsesOf(defIndex int) []int { return a.uses[defIndex] }

// IsPassedHigherOrder reports whether the subroutine value defined at
// defIndex is ever used as an input to a call instruction in any position
// other than the callee position (i.e. passed as an argument to another
// call), which makes its own invocation count engine-dependent.
func (a *DefUseAnalyzer) IsPassedHigherOrder(p *il.Program, defIndex int) bool {
	defVars := map[int]struct{}{}
	for _, v := range p.Instructions[defIndex].Outputs {
		defVars[v.ID] = struct{}{}
	}
	for _, useIdx := range a.uses[defIndex] {
		instr := p.Instructions[useIdx]
		if !instr.Op.IsCall() {
			continue
		}
		for argPos, in := range instr.Inputs {
			if argPos == 0 {
				continue // callee position, not "passed" higher-order
			}
			if _, ok := defVars[in.ID]; ok {
				return true
			}
		}
	}
	return false
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: deadcode.go
Description: Dead-code analyzer: tracks whether the traversal cursor sits
past an unconditional jump/return within the current block, used to veto
mutation insertion points that would be unreachable.
*/

package analysis

import "github.com/rsolene/jonm-fuzzer/pkg/il"

// DeadCodeAnalyzer marks, per instruction index, whether it is unreachable
// because an unconditional jump/return already fired earlier in the same
// block.
type DeadCodeAnalyzer struct {
	dead []bool
}

// NewDeadCodeAnalyzer sweeps p once, resetting liveness at every block
// boundary (a jump only kills the remainder of its own block).
func NewDeadCodeAnalyzer(p *il.Program) *DeadCodeAnalyzer {
	a := &DeadCodeAnalyzer{dead: make([]bool, len(p.Instructions))}
	var blockDead []bool
	cur := false
	for i, instr := range p.Instructions {
		if instr.Op.IsBlockStart() {
			blockDead = append(blockDead, cur)
			cur = false
		}
		a.dead[i] = cur
		if instr.Op.IsJump() {
			cur = true
		}
		if instr.Op.IsBlockEnd() && len(blockDead) > 0 {
			cur = blockDead[len(blockDead)-1]
			blockDead = blockDead[:len(blockDead)-1]
		}
	}
	return a
}

// IsDead reports whether instruction index i is unreachable.
func (a *DeadCodeAnalyzer) IsDead(i int) bool {
	if i < 0 || i >= len(a.dead) {
		return false
	}
	return a.dead[i]
}

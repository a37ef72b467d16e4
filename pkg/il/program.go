/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: program.go
Description: Program is an immutable ordered instruction sequence plus
per-program provenance metadata (the contributor set of mutator identities
that have touched it). Mirrors the teacher's core.TestCase, but the
contributor set is a typed first-class invariant rather than a generic
metadata bag, since union-of-contributors is load-bearing for §3/§8.1.
*/

package il

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// Program is an immutable ordered sequence of instructions. Mutators never
// edit a Program in place; they build and return a new one (spec.md §3:
// "mutant !== seed" is required).
type Program struct {
	ID           string
	Instructions []Instruction

	// Contributors is the set of mutator names that participated in
	// producing this program. Seed pick (engine §4.6 step 1) filters out
	// programs whose contributor set already contains any JoN mutator name.
	Contributors map[string]struct{}
}

// NewProgram constructs an empty program with a fresh ID and no contributors.
func NewProgram(instrs []Instruction) *Program {
	return &Program{
		ID:           uuid.NewString(),
		Instructions: instrs,
		Contributors: map[string]struct{}{},
	}
}

// HasContributor reports whether name is in the program's contributor set.
func (p *Program) HasContributor(name string) bool {
	_, ok := p.Contributors[name]
	return ok
}

// HasAnyContributor reports whether any of names is in the contributor set.
func (p *Program) HasAnyContributor(names ...string) bool {
	for _, n := range names {
		if p.HasContributor(n) {
			return true
		}
	}
	return false
}

// WithContributor returns a new Program identical to p except that its
// contributor set is the union of p's contributors and name, and its
// instruction stream is instrs. Per spec.md §3, the union of contributor
// sets is exactly parent ∪ {mutator}; the returned object is always new.
func (p *Program) WithContributor(instrs []Instruction, name string) *Program {
	next := &Program{
		ID:           uuid.NewString(),
		Instructions: instrs,
		Contributors: make(map[string]struct{}, len(p.Contributors)+1),
	}
	for k := range p.Contributors {
		next.Contributors[k] = struct{}{}
	}
	next.Contributors[name] = struct{}{}
	return next
}

// Len returns the number of instructions, used by the engine to compute
// addedInstructions = |mutant| - |seed|.
func (p *Program) Len() int { return len(p.Instructions) }

// Hash returns a content hash of the instruction stream, independent of ID
// and contributor set, used to name crash files in pkg/report (grounded on
// the teacher's coverageHash pattern in core/engine.go).
func (p *Program) Hash() string {
	b, _ := json.Marshal(p.Instructions)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// FindBlockEnd returns the index of the instruction that closes the block
// opened at headIndex, or -1 if headIndex is not a block start or the
// program is malformed. Nesting is tracked with a simple depth counter: an
// IsBlockStart increments depth, an IsBlockEnd decrements it, and the
// matching end is the one that returns depth to zero (spec.md §3: "no
// overlap", "exactly one block end at the same nesting level").
func (p *Program) FindBlockEnd(headIndex int) int {
	if headIndex < 0 || headIndex >= len(p.Instructions) {
		return -1
	}
	if !p.Instructions[headIndex].Op.IsBlockStart() {
		return -1
	}
	depth := 0
	for i := headIndex; i < len(p.Instructions); i++ {
		op := p.Instructions[i].Op
		if op.IsBlockStart() {
			depth++
		}
		if op.IsBlockEnd() {
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// FindAllBlockGroups returns every top-level block group in the program. If
// atDepth is non-nil, only groups whose head occurs at that nesting depth
// are returned.
func (p *Program) FindAllBlockGroups(atDepth *int) []BlockGroup {
	var groups []BlockGroup
	depth := 0
	for i := 0; i < len(p.Instructions); i++ {
		op := p.Instructions[i].Op
		if op.IsBlockStart() {
			if atDepth == nil || depth == *atDepth {
				tail := p.FindBlockEnd(i)
				if tail >= 0 {
					groups = append(groups, BlockGroup{Block: Block{HeadIndex: i, TailIndex: tail}})
				}
			}
			depth++
		}
		if op.IsBlockEnd() {
			depth--
		}
	}
	return groups
}

// FindAllSubroutines returns the (head, tail) block of every subroutine
// definition in the program, restricted to atDepth when non-nil.
func (p *Program) FindAllSubroutines(atDepth *int) []Block {
	var subs []Block
	depth := 0
	for i := 0; i < len(p.Instructions); i++ {
		op := p.Instructions[i].Op
		if op.IsBlockStart() {
			if op.IsSubroutineHead() && (atDepth == nil || depth == *atDepth) {
				if tail := p.FindBlockEnd(i); tail >= 0 {
					subs = append(subs, Block{HeadIndex: i, TailIndex: tail})
				}
			}
			depth++
		}
		if op.IsBlockEnd() {
			depth--
		}
	}
	return subs
}

// EnclosingSubroutines returns, for every instruction index, the index of
// the innermost subroutine head lexically containing it, or -1 if the
// instruction sits outside any subroutine. A subroutine's own head
// instruction is considered to belong to its *outer* scope, not its own
// body, so it can be tested against the same enclosing value as the code
// immediately preceding it. Shared by the Modest checksum policy
// (pkg/checksum) and the outmost-subroutine mutator sampler (pkg/mutate).
func (p *Program) EnclosingSubroutines() []int {
	result := make([]int, len(p.Instructions))

	type frame struct {
		head  int
		isSub bool
	}
	var stack []frame

	for i, instr := range p.Instructions {
		cur := -1
		for j := len(stack) - 1; j >= 0; j-- {
			if stack[j].isSub {
				cur = stack[j].head
				break
			}
		}
		result[i] = cur

		if instr.Op.IsBlockStart() {
			stack = append(stack, frame{head: i, isSub: instr.Op.IsSubroutineHead()})
		}
		if instr.Op.IsBlockEnd() && len(stack) > 0 {
			stack = stack[:len(stack)-1]
		}
	}
	return result
}

// OutmostSubroutines returns every subroutine block not itself nested inside
// another subroutine — the candidate unit sampled by per-outmost-subroutine
// mutators (spec.md §4.3). A subroutine defined inside a loop or an if/try
// body at the top level still counts as outmost; only subroutine-in-
// subroutine nesting disqualifies it.
func (p *Program) OutmostSubroutines() []Block {
	enclosing := p.EnclosingSubroutines()
	var subs []Block
	for _, blk := range p.FindAllSubroutines(nil) {
		if enclosing[blk.HeadIndex] == -1 {
			subs = append(subs, blk)
		}
	}
	return subs
}

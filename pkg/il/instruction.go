/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: instruction.go
Description: Instruction, Variable and Context types for the JoNM IL data
model. An Instruction is a tuple of opcode, ordered input/output operands,
and an attribute payload; Context is the bitset of lexical/dynamic scope
properties a mutator or analyzer may need to veto on.
*/

package il

// Variable is an identifier scoped to a Program. Visibility is derived from
// block nesting, not tracked here; callers consult DefUseAnalyzer for that.
type Variable struct {
	Name string
	ID   int
}

// Instruction is a single IL operation: opcode plus ordered operands and an
// opaque attribute payload the lifter understands but the core does not
// interpret beyond what opcode family predicates expose.
type Instruction struct {
	Op      Opcode
	Inputs  []Variable
	Outputs []Variable
	Attrs   map[string]interface{}
}

// NumOutputs returns len(Outputs); used by mutators that veto on "has ≤1 output".
func (i Instruction) NumOutputs() int { return len(i.Outputs) }

// ContextBit names a single bit in a Context bitset.
type ContextBit uint

const (
	CtxJavaScript ContextBit = 1 << iota
	CtxLoop
	CtxSubroutine
	CtxObjectLiteral
	CtxCodeString
	CtxAsyncFunction
	CtxGeneratorFunction
	CtxClassDefinition
)

// Context is a bitset over lexical/dynamic scope properties. The engine
// tracks two flavors: "current" (restored on block exit) and "aggregate"
// (monotonic within a block, never unset).
type Context uint

// Has reports whether bit is set.
func (c Context) Has(bit ContextBit) bool { return c&Context(bit) != 0 }

// Set returns c with bit set.
func (c Context) Set(bit ContextBit) Context { return c | Context(bit) }

// Clear returns c with bit cleared.
func (c Context) Clear(bit ContextBit) Context { return c &^ Context(bit) }

// Block is a (headIndex, tailIndex) pair identifying a nested block's exact
// structural extent within a Program's instruction stream.
type Block struct {
	HeadIndex int
	TailIndex int
}

// BlockGroup is a block plus any intermediate boundaries it contains, e.g.
// the catch/finally arms of a try statement.
type BlockGroup struct {
	Block
	Intermediates []int
}

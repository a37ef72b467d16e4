/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: context.go
Description: Context analyzer over an il.Program: tracks current (restored on
block exit) and aggregate (monotonic within a block) context bitsets driven
by a stack pushed/popped on block open/close. Rebuilt per program, never a
singleton, per the Design Note in spec.md §9.
*/

package analysis

import "github.com/rsolene/jonm-fuzzer/pkg/il"

// ContextAnalyzer sweeps a program's instructions in order, exposing the
// current and aggregate il.Context at any instruction index. Mutators use it
// as a filter: most require .JavaScript present and .Loop/.CodeString (and
// sometimes .Subroutine) absent.
type ContextAnalyzer struct {
	current   []il.Context // current[i] is the context active entering instruction i
	aggregate []il.Context // aggregate[i] is the union of bits active entering i; bits a block set are dropped when it closes
}

// NewContextAnalyzer sweeps p once and returns a fully populated analyzer.
func NewContextAnalyzer(p *il.Program) *ContextAnalyzer {
	a := &ContextAnalyzer{
		current:   make([]il.Context, len(p.Instructions)),
		aggregate: make([]il.Context, len(p.Instructions)),
	}
	a.rebuild(p)
	return a
}

func (a *ContextAnalyzer) rebuild(p *il.Program) {
	// savedCur/savedAgg are the current/aggregate contexts as they stood the
	// instant before this block was entered; both are restored on block
	// exit so a sibling block never observes bits a previous sibling
	// accumulated (spec.md: aggregate is monotonic "within a block", not
	// across the whole program).
	type frame struct {
		savedCur il.Context
		savedAgg il.Context
	}
	var stack []frame
	var cur il.Context = il.Context(0).Set(il.CtxJavaScript)
	var agg il.Context = cur

	// bitsFor returns every context bit instr's own opcode/attrs contribute
	// to the block it opens. Subroutine heads may carry additional "async"/
	// "generator" attrs (mirroring OpAsyncMarker/OpGeneratorMarker's role in
	// the opcode universe) tagging the whole body they head, not just the
	// head instruction itself — so those bits are folded in here rather
	// than attached to a separate marker instruction, which would only
	// become observable one instruction too late for AggregateAt(headIdx+1)
	// callers such as checksum.IsModestKeyed.
	bitsFor := func(instr il.Instruction) []il.ContextBit {
		op := instr.Op
		switch {
		case op.InFamily(il.FamilyLoop):
			return []il.ContextBit{il.CtxLoop}
		case op.IsSubroutineHead():
			bits := []il.ContextBit{il.CtxSubroutine}
			if async, _ := instr.Attrs["async"].(bool); async {
				bits = append(bits, il.CtxAsyncFunction)
			}
			if generator, _ := instr.Attrs["generator"].(bool); generator {
				bits = append(bits, il.CtxGeneratorFunction)
			}
			return bits
		case op == il.OpObjectLiteralHead:
			return []il.ContextBit{il.CtxObjectLiteral}
		case op == il.OpCodeStringHead:
			return []il.ContextBit{il.CtxCodeString}
		case op == il.OpClassDefinitionHead:
			return []il.ContextBit{il.CtxClassDefinition}
		}
		return nil
	}

	for i, instr := range p.Instructions {
		a.current[i] = cur
		a.aggregate[i] = agg

		if instr.Op.IsBlockStart() {
			stack = append(stack, frame{savedCur: cur, savedAgg: agg})
			for _, bit := range bitsFor(instr) {
				cur = cur.Set(bit)
				agg = agg.Set(bit)
			}
		}
		if instr.Op.IsBlockEnd() && len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cur = top.savedCur
			agg = top.savedAgg // scope aggregate to the closed block, not the whole program
		}
	}
}

// CurrentAt returns the "current" context active entering instruction index i.
func (a *ContextAnalyzer) CurrentAt(i int) il.Context {
	if i < 0 || i >= len(a.current) {
		return 0
	}
	return a.current[i]
}

// AggregateAt returns the "aggregate" context at instruction index i.
func (a *ContextAnalyzer) AggregateAt(i int) il.Context {
	if i < 0 || i >= len(a.aggregate) {
		return 0
	}
	return a.aggregate[i]
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: builder.go
Description: The IL builder capability set required from the host
environment (spec.md §6). Body callbacks for control-flow constructs take an
explicit *BuilderContext parameter rather than capturing mutable builder
state in a lexical closure, per the Design Note in spec.md §9.
*/

package il

import (
	"fmt"
	"sync/atomic"
)

// lastVarID is shared by every Builder so that a variable created by one
// builder never reuses the ID of a variable replicated from another program.
var lastVarID int64

// BuilderContext is the explicit, passable state a body callback needs to
// keep emitting instructions into the same builder without closing over it.
type BuilderContext struct {
	b *Builder
}

// Emit appends instr to the builder's current instruction stream. It is the
// one primitive every other BuilderContext/Builder method is built from.
func (c *BuilderContext) Emit(instr Instruction) {
	c.b.instrs = append(c.b.instrs, instr)
}

// The methods below forward to the same underlying *Builder a body callback
// was handed, so nested control-flow bodies (if/try/loop) can keep emitting
// structured operations instead of hand-building Instruction values, without
// closing over mutable builder state from the caller's own lexical scope
// (spec.md §9 Design Note).

func (c *BuilderContext) LoadNamedVariable(name string) Variable { return c.b.LoadNamedVariable(name) }
func (c *BuilderContext) StoreNamedVariable(name string, value Variable) {
	c.b.StoreNamedVariable(name, value)
}
func (c *BuilderContext) DefineNamedVariable(name string, value Variable) {
	c.b.DefineNamedVariable(name, value)
}
func (c *BuilderContext) CreateArray(elems ...Variable) Variable     { return c.b.CreateArray(elems...) }
func (c *BuilderContext) CreateIntArray(values ...int64) Variable    { return c.b.CreateIntArray(values...) }
func (c *BuilderContext) CreateObject() Variable                     { return c.b.CreateObject() }
func (c *BuilderContext) LoadChecksumContainer() Variable            { return c.b.LoadChecksumContainer() }
func (c *BuilderContext) GetElement(array Variable, index int) Variable {
	return c.b.GetElement(array, index)
}
func (c *BuilderContext) SetElement(array Variable, index int, value Variable) {
	c.b.SetElement(array, index, value)
}
func (c *BuilderContext) UpdateElement(array Variable, index int, operator string, value Variable) {
	c.b.UpdateElement(array, index, operator, value)
}
func (c *BuilderContext) GetComputedProperty(object, key Variable) Variable {
	return c.b.GetComputedProperty(object, key)
}
func (c *BuilderContext) SetComputedProperty(object, key, value Variable) {
	c.b.SetComputedProperty(object, key, value)
}
func (c *BuilderContext) LoadInt(v int64) Variable       { return c.b.LoadInt(v) }
func (c *BuilderContext) LoadBool(v bool) Variable        { return c.b.LoadBool(v) }
func (c *BuilderContext) LoadString(v string) Variable    { return c.b.LoadString(v) }
func (c *BuilderContext) LoadNull() Variable              { return c.b.LoadNull() }
func (c *BuilderContext) LoadUndefined() Variable         { return c.b.LoadUndefined() }
func (c *BuilderContext) LoadBuiltin(name string) Variable { return c.b.LoadBuiltin(name) }
func (c *BuilderContext) Binary(operator string, lhs, rhs Variable) Variable {
	return c.b.Binary(operator, lhs, rhs)
}
func (c *BuilderContext) Compare(operator string, lhs, rhs Variable) Variable {
	return c.b.Compare(operator, lhs, rhs)
}
func (c *BuilderContext) Unary(operator string, operand Variable) Variable {
	return c.b.Unary(operator, operand)
}
func (c *BuilderContext) CallFunction(callee Variable, args ...Variable) Variable {
	return c.b.CallFunction(callee, args...)
}
func (c *BuilderContext) CallMethod(receiver Variable, name string, args ...Variable) Variable {
	return c.b.CallMethod(receiver, name, args...)
}
func (c *BuilderContext) BuildIf(cond Variable, then func(*BuilderContext), els func(*BuilderContext)) {
	c.b.BuildIf(cond, then, els)
}
func (c *BuilderContext) BuildTryCatchFinally(tryBody, catchBody, finallyBody func(*BuilderContext)) {
	c.b.BuildTryCatchFinally(tryBody, catchBody, finallyBody)
}
func (c *BuilderContext) BuildRepeatLoop(tripCount int64, body func(*BuilderContext, Variable)) {
	c.b.BuildRepeatLoop(tripCount, body)
}
func (c *BuilderContext) DoReturn(value *Variable) { c.b.DoReturn(value) }
func (c *BuilderContext) Replicate(instr Instruction) { c.b.Replicate(instr) }
func (c *BuilderContext) Append(p *Program)           { c.b.Append(p) }
func (c *BuilderContext) Hide(v Variable)             { c.b.Hide(v) }

// Builder accumulates instructions for a new Program. It never mutates an
// existing Program in place; Adopt/Append copy instructions from a source
// program into the builder's own stream.
type Builder struct {
	instrs     []Instruction
	nextVarID  int
	hidden     map[int]struct{}
	mutatorTag string
}

// NewBuilder creates a builder whose finalized Program will list mutatorTag
// in its contributor set (empty string for a builder not attributed to any
// mutator, e.g. the lifter's scratch builder for fresh subprograms).
func NewBuilder(mutatorTag string) *Builder {
	return &Builder{hidden: map[int]struct{}{}, mutatorTag: mutatorTag}
}

func (b *Builder) ctx() *BuilderContext { return &BuilderContext{b: b} }

func (b *Builder) freshVar(name string) Variable {
	b.nextVarID = int(atomic.AddInt64(&lastVarID, 1))
	if name == "" {
		name = fmt.Sprintf("t%d", b.nextVarID)
	}
	return Variable{Name: name, ID: b.nextVarID}
}

// Adopt copies a single instruction by index from src into the builder
// unchanged.
func (b *Builder) Adopt(src *Program, index int) {
	b.instrs = append(b.instrs, src.Instructions[index])
}

// AdoptAndDefine appends instr to the builder unchanged; like Replicate, it
// records nothing else about instr's outputs.
func (b *Builder) AdoptAndDefine(instr Instruction) {
	b.instrs = append(b.instrs, instr)
}

// Adopting opens an "adopting" scope against src: fn may call Adopt/Append
// against the builder while semantically reading from src. The scope exists
// to make provenance explicit in mutator code; the builder itself is
// scope-agnostic.
func (b *Builder) Adopting(src *Program, fn func(*BuilderContext, *Program)) {
	fn(b.ctx(), src)
}

// Append copies every instruction of p into the builder, in order.
func (b *Builder) Append(p *Program) {
	b.instrs = append(b.instrs, p.Instructions...)
}

// Replicate appends a structural copy of instr (same opcode/operands/attrs).
func (b *Builder) Replicate(instr Instruction) {
	cp := instr
	cp.Inputs = append([]Variable(nil), instr.Inputs...)
	cp.Outputs = append([]Variable(nil), instr.Outputs...)
	b.instrs = append(b.instrs, cp)
}

// Finalize produces the built Program. If parent is non-nil, the result's
// contributor set is parent's union {mutator tag}, satisfying spec.md §3's
// union invariant; otherwise a fresh, contributor-less Program is returned
// (used for scratch subprograms that get spliced into a real mutant, never
// executed standalone).
func (b *Builder) Finalize(parent *Program) *Program {
	if parent == nil {
		return NewProgram(b.instrs)
	}
	if b.mutatorTag == "" {
		next := NewProgram(b.instrs)
		for k := range parent.Contributors {
			next.Contributors[k] = struct{}{}
		}
		return next
	}
	return parent.WithContributor(b.instrs, b.mutatorTag)
}

// Hide marks v as no longer externally observable (used so a mutator-local
// temporary does not appear in def-use results for the surrounding program).
func (b *Builder) Hide(v Variable) { b.hidden[v.ID] = struct{}{} }

// IsHidden reports whether v was previously passed to Hide.
func (b *Builder) IsHidden(v Variable) bool {
	_, ok := b.hidden[v.ID]
	return ok
}

// --- operand-producing primitives ---

// LoadNamedVariable emits a load of a named variable and returns its value.
func (b *Builder) LoadNamedVariable(name string) Variable {
	out := b.freshVar(name + "$v")
	b.instrs = append(b.instrs, Instruction{Op: OpLoadNamedVariable, Outputs: []Variable{out}, Attrs: map[string]interface{}{"name": name}})
	return out
}

// StoreNamedVariable emits a store of value into the named variable.
func (b *Builder) StoreNamedVariable(name string, value Variable) {
	b.instrs = append(b.instrs, Instruction{Op: OpStoreNamedVariable, Inputs: []Variable{value}, Attrs: map[string]interface{}{"name": name}})
}

// DefineNamedVariable emits a fresh binding of name to value.
func (b *Builder) DefineNamedVariable(name string, value Variable) {
	b.instrs = append(b.instrs, Instruction{Op: OpDefineNamedVariable, Inputs: []Variable{value}, Attrs: map[string]interface{}{"name": name}})
}

// CreateArray emits a literal array from elems and returns its value.
func (b *Builder) CreateArray(elems ...Variable) Variable {
	out := b.freshVar("arr")
	b.instrs = append(b.instrs, Instruction{Op: OpCreateArray, Inputs: elems, Outputs: []Variable{out}})
	return out
}

// CreateIntArray emits a literal array of integer constants and returns its
// value.
func (b *Builder) CreateIntArray(values ...int64) Variable {
	out := b.freshVar("iarr")
	b.instrs = append(b.instrs, Instruction{Op: OpCreateIntArray, Outputs: []Variable{out}, Attrs: map[string]interface{}{"values": values}})
	return out
}

// CreateObject emits an empty object literal and returns its value. Used for
// the checksum container's index-1 per-subroutine update-count map.
func (b *Builder) CreateObject() Variable {
	out := b.freshVar("obj")
	b.instrs = append(b.instrs, Instruction{Op: OpCreateObject, Outputs: []Variable{out}})
	return out
}

// LoadChecksumContainer emits a reference to the wire preamble's checksum
// container. Valid only at instruction index 0 of a program; any other
// occurrence is stale (spec.md §4.2).
func (b *Builder) LoadChecksumContainer() Variable {
	out := b.freshVar("checksum")
	b.instrs = append(b.instrs, Instruction{Op: OpLoadChecksumContainer, Outputs: []Variable{out}})
	return out
}

// GetElement emits array[index] and returns the value.
func (b *Builder) GetElement(array Variable, index int) Variable {
	out := b.freshVar("elem")
	b.instrs = append(b.instrs, Instruction{Op: OpGetElement, Inputs: []Variable{array}, Outputs: []Variable{out}, Attrs: map[string]interface{}{"index": index}})
	return out
}

// SetElement emits array[index] = value.
func (b *Builder) SetElement(array Variable, index int, value Variable) {
	b.instrs = append(b.instrs, Instruction{Op: OpSetElement, Inputs: []Variable{array, value}, Attrs: map[string]interface{}{"index": index}})
}

// UpdateElement emits array[index] = array[index] <op> value, used by the
// checksum update operation against the container's index-0 slot.
func (b *Builder) UpdateElement(array Variable, index int, operator string, value Variable) {
	b.instrs = append(b.instrs, Instruction{Op: OpUpdateElement, Inputs: []Variable{array, value}, Attrs: map[string]interface{}{"index": index, "operator": operator}})
}

// GetComputedProperty emits object[key] and returns the value.
func (b *Builder) GetComputedProperty(object, key Variable) Variable {
	out := b.freshVar("prop")
	b.instrs = append(b.instrs, Instruction{Op: OpGetComputedProperty, Inputs: []Variable{object, key}, Outputs: []Variable{out}})
	return out
}

// SetComputedProperty emits object[key] = value.
func (b *Builder) SetComputedProperty(object, key, value Variable) {
	b.instrs = append(b.instrs, Instruction{Op: OpSetComputedProperty, Inputs: []Variable{object, key, value}})
}

func (b *Builder) load(op Opcode, attrKey string, attrVal interface{}) Variable {
	out := b.freshVar("lit")
	attrs := map[string]interface{}{}
	if attrKey != "" {
		attrs[attrKey] = attrVal
	}
	b.instrs = append(b.instrs, Instruction{Op: op, Outputs: []Variable{out}, Attrs: attrs})
	return out
}

// LoadInt emits an integer literal load.
func (b *Builder) LoadInt(v int64) Variable { return b.load(OpLoadInt, "value", v) }

// LoadBool emits a boolean literal load.
func (b *Builder) LoadBool(v bool) Variable { return b.load(OpLoadBool, "value", v) }

// LoadString emits a string literal load.
func (b *Builder) LoadString(v string) Variable { return b.load(OpLoadString, "value", v) }

// LoadNull emits a null literal load.
func (b *Builder) LoadNull() Variable { return b.load(OpLoadNull, "", nil) }

// LoadUndefined emits an undefined literal load.
func (b *Builder) LoadUndefined() Variable { return b.load(OpLoadUndefined, "", nil) }

// LoadBuiltin emits a load of a named builtin (e.g. "console", "print").
func (b *Builder) LoadBuiltin(name string) Variable { return b.load(OpLoadBuiltin, "name", name) }

// Binary emits a binary operator application and returns the result.
func (b *Builder) Binary(operator string, lhs, rhs Variable) Variable {
	out := b.freshVar("bin")
	b.instrs = append(b.instrs, Instruction{Op: OpBinary, Inputs: []Variable{lhs, rhs}, Outputs: []Variable{out}, Attrs: map[string]interface{}{"operator": operator}})
	return out
}

// Compare emits a comparison operator application and returns the boolean result.
func (b *Builder) Compare(operator string, lhs, rhs Variable) Variable {
	out := b.freshVar("cmp")
	b.instrs = append(b.instrs, Instruction{Op: OpCompare, Inputs: []Variable{lhs, rhs}, Outputs: []Variable{out}, Attrs: map[string]interface{}{"operator": operator}})
	return out
}

// Unary emits a unary operator application and returns the result.
func (b *Builder) Unary(operator string, operand Variable) Variable {
	out := b.freshVar("un")
	b.instrs = append(b.instrs, Instruction{Op: OpUnary, Inputs: []Variable{operand}, Outputs: []Variable{out}, Attrs: map[string]interface{}{"operator": operator}})
	return out
}

// CallFunction emits a call to callee(args...) and returns the result.
func (b *Builder) CallFunction(callee Variable, args ...Variable) Variable {
	out := b.freshVar("call")
	b.instrs = append(b.instrs, Instruction{Op: OpCallFunction, Inputs: append([]Variable{callee}, args...), Outputs: []Variable{out}})
	return out
}

// CallMethod emits a call to receiver.name(args...) and returns the result.
func (b *Builder) CallMethod(receiver Variable, name string, args ...Variable) Variable {
	out := b.freshVar("mcall")
	b.instrs = append(b.instrs, Instruction{Op: OpCallMethod, Inputs: append([]Variable{receiver}, args...), Outputs: []Variable{out}, Attrs: map[string]interface{}{"name": name}})
	return out
}

// BuildIf emits an if/else construct; then and els (els may be nil) are
// invoked with an explicit *BuilderContext bound to the same builder.
func (b *Builder) BuildIf(cond Variable, then func(*BuilderContext), els func(*BuilderContext)) {
	b.instrs = append(b.instrs, Instruction{Op: OpIf, Inputs: []Variable{cond}, Attrs: map[string]interface{}{"arm": "head"}})
	b.instrs = append(b.instrs, Instruction{Op: OpBlockStart})
	then(b.ctx())
	b.instrs = append(b.instrs, Instruction{Op: OpBlockEnd})
	if els != nil {
		b.instrs = append(b.instrs, Instruction{Op: OpBlockStart, Attrs: map[string]interface{}{"arm": "else"}})
		els(b.ctx())
		b.instrs = append(b.instrs, Instruction{Op: OpBlockEnd})
	}
}

// BuildTryCatchFinally emits a try/catch/finally construct. catchBody and
// finallyBody may be nil (an empty handler/finalizer is still emitted when
// either is provided as a non-nil no-op, per the JoN mutator shapes in
// spec.md §4.4.2/§4.4.3 that require an *empty* catch).
func (b *Builder) BuildTryCatchFinally(tryBody func(*BuilderContext), catchBody func(*BuilderContext), finallyBody func(*BuilderContext)) {
	b.instrs = append(b.instrs, Instruction{Op: OpTryHead})
	tryBody(b.ctx())
	b.instrs = append(b.instrs, Instruction{Op: OpCatchHead})
	if catchBody != nil {
		catchBody(b.ctx())
	}
	if finallyBody != nil {
		b.instrs = append(b.instrs, Instruction{Op: OpFinallyHead})
		finallyBody(b.ctx())
	}
	b.instrs = append(b.instrs, Instruction{Op: OpTryTail})
}

// BuildRepeatLoop emits a bounded `for (i = 0; i < tripCount; i++)` loop.
// body receives the explicit builder context and the loop counter variable.
func (b *Builder) BuildRepeatLoop(tripCount int64, body func(*BuilderContext, Variable)) {
	counter := b.freshVar("i")
	b.instrs = append(b.instrs, Instruction{Op: OpLoopHead, Outputs: []Variable{counter}, Attrs: map[string]interface{}{"tripCount": tripCount}})
	body(b.ctx(), counter)
	b.instrs = append(b.instrs, Instruction{Op: OpLoopTail})
}

// BuildPlainFunction emits a named or anonymous plain function definition.
// body is invoked with the explicit builder context and the function's
// parameter variables (one per entry in paramNames).
func (b *Builder) BuildPlainFunction(name string, paramNames []string, body func(*BuilderContext, []Variable)) Variable {
	params := make([]Variable, len(paramNames))
	for i, n := range paramNames {
		params[i] = b.freshVar(n)
	}
	fn := b.freshVar(name)
	b.instrs = append(b.instrs, Instruction{Op: OpPlainFunctionHead, Outputs: []Variable{fn}, Inputs: params, Attrs: map[string]interface{}{"name": name}})
	body(b.ctx(), params)
	b.instrs = append(b.instrs, Instruction{Op: OpSubroutineTail})
	return fn
}

// DoReturn emits a return instruction carrying an optional value.
func (b *Builder) DoReturn(value *Variable) {
	instr := Instruction{Op: OpReturn}
	if value != nil {
		instr.Inputs = []Variable{*value}
	}
	b.instrs = append(b.instrs, instr)
}

// BuildValues emits a sequence of literal loads for a heterogeneous value
// list and returns them in order.
func (b *Builder) BuildValues(kinds []string, vals []interface{}) []Variable {
	out := make([]Variable, len(kinds))
	for i, k := range kinds {
		switch k {
		case "int":
			out[i] = b.LoadInt(vals[i].(int64))
		case "bool":
			out[i] = b.LoadBool(vals[i].(bool))
		case "string":
			out[i] = b.LoadString(vals[i].(string))
		case "null":
			out[i] = b.LoadNull()
		default:
			out[i] = b.LoadUndefined()
		}
	}
	return out
}

// Build finalizes the builder's pending stream into a standalone,
// parent-less Program (e.g. for a fresh neutral subprogram before splicing).
func (b *Builder) Build() *Program { return b.Finalize(nil) }

// BuildPrefix prepends instrs to the builder's current stream, used when a
// mutator needs to emit setup instructions (flag/saved locals) ahead of
// instructions already adopted.
func (b *Builder) BuildPrefix(instrs []Instruction) {
	b.instrs = append(append([]Instruction(nil), instrs...), b.instrs...)
}

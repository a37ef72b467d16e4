/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: container.go
Description: The checksum container: a two-slot value ([runningChecksum,
perSubroutineUpdateCounts]) referenced by il.OpLoadChecksumContainer and
seeded 0xAB0110 in the wire preamble (spec.md §4.2, §6). Helpers here build
the IL fragments that read/update slot 0 and the per-subroutine map in
slot 1, shared by the preprocess/postprocess passes and the insert-ops
mutator.
*/

package checksum

import "github.com/rsolene/jonm-fuzzer/pkg/il"

// SeedValue is the checksum container's initial integer value, 0xAB0110
// (decimal 11206928), emitted by the wire preamble.
const SeedValue int64 = 0xAB0110

// GlobalKey is the checksum-update key used for code outside any subroutine.
// The Modest policy's capped helper updates unconditionally when handed this
// key (spec.md §4.2).
const GlobalKey = "global"

// BuildLocalContainer emits a freshly-allocated local two-slot array
// [0, {}] via b, structurally identical to the real global container but
// unaliased to it. Used by preprocess/postprocess to neutralize stale
// "load checksum container" instructions reintroduced by corpus splicing.
func BuildLocalContainer(b *il.Builder) il.Variable {
	zero := b.LoadInt(0)
	counts := b.CreateObject()
	return b.CreateArray(zero, counts)
}

// emitGlobalUpdate appends an unconditional update of container[0] using a
// random commutative/associative-ish operator and literal.
func emitGlobalUpdate(b *il.Builder, container il.Variable, op string, literal int64) {
	lit := b.LoadInt(literal)
	b.UpdateElement(container, 0, op, lit)
}

// emitCappedUpdate appends the Modest policy's per-subroutine capped update
// helper: look up container[1][key]; if undefined, initialize to 0; if the
// count is below cap, update the checksum and increment the count
// (spec.md §4.2's "Modest" policy helper).
func emitCappedUpdate(b *il.Builder, container il.Variable, key string, cap int, op string, literal int64) {
	counts := b.GetElement(container, 1)
	keyVar := b.LoadString(key)
	cur := b.GetComputedProperty(counts, keyVar)
	undef := b.LoadUndefined()
	isUndef := b.Compare("StrictEquals", cur, undef)
	b.BuildIf(isUndef, func(ctx *il.BuilderContext) {
		zero := ctx.LoadInt(0)
		ctx.SetComputedProperty(counts, keyVar, zero)
	}, nil)

	cur2 := b.GetComputedProperty(counts, keyVar)
	capVar := b.LoadInt(int64(cap))
	underCap := b.Compare("LessThan", cur2, capVar)
	b.BuildIf(underCap, func(ctx *il.BuilderContext) {
		lit := ctx.LoadInt(literal)
		ctx.UpdateElement(container, 0, op, lit)
		count := ctx.GetComputedProperty(counts, keyVar)
		one := ctx.LoadInt(1)
		next := ctx.Binary("Add", count, one)
		ctx.SetComputedProperty(counts, keyVar, next)
	}, nil)
}

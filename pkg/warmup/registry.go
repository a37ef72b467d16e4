/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: registry.go
Description: Mutator is an alias for mutate.Kind scoped to this package's
vocabulary, and Registry builds the ordered list of the four
non-semantic-preserving fallback mutators (spec.md §4.5) the JoNM engine
falls back to once the JoN mutators repeatedly fail to apply (spec.md §4.6
step 5).
*/

package warmup

import "github.com/rsolene/jonm-fuzzer/pkg/mutate"

// Mutator is the contract every fallback mutator in this package satisfies.
type Mutator = mutate.Kind

// Registry returns a fresh set of the four warmup/fallback mutators, in the
// order they are introduced by spec.md §4.5.
func Registry() []Mutator {
	return []Mutator{
		NewSubroutineLoop(),
		NewCallInLoop(),
		NewCallDeopt(),
		NewCallDeoptRecompile(),
	}
}

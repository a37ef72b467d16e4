/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: registry.go
Description: Mutator is an alias for mutate.Kind scoped to this package's
vocabulary, and Registry builds the canonical ordered list of the four
semantic-preserving JoN mutators (spec.md §4.4) the JoNM engine draws from
uniformly at random during its mutation loop (spec.md §4.6 step 5).
*/

package jonm

import "github.com/rsolene/jonm-fuzzer/pkg/mutate"

// Mutator is the contract every JoN mutator in this package satisfies.
type Mutator = mutate.Kind

// Registry returns a fresh set of the four JoN mutators, in the order they
// are introduced by spec.md §4.4.1-4.4.4.
func Registry() []Mutator {
	return []Mutator{
		NewNeutralLoop(),
		NewSingleExecWrap(),
		NewWarmupPreCall(),
		NewDeoptPreCall(),
	}
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: kind.go
Description: Kind is the tagged-union mutator contract every JoN and warmup
mutator satisfies, grounded on the teacher's interfaces.Mutator (Mutate,
Name, Description) plus the Stats accessor spec.md §3's "Mutator" invariant
names.
*/

package mutate

import (
	"math/rand"

	"github.com/rsolene/jonm-fuzzer/pkg/il"
)

// Kind is satisfied by every concrete mutator (pkg/jonm, pkg/warmup). Mutate
// returns (nil, nil) — not an error — when no candidate site exists,
// mirroring the base patterns' "both return null iff no candidate exists"
// contract in spec.md §4.3; an error return is reserved for a mutation that
// began but could not be completed.
type Kind interface {
	CanMutate(p *il.Program) bool
	Mutate(p *il.Program, rng *rand.Rand) (*il.Program, error)
	Name() string
	Stats() *Stats
}

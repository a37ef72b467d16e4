/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: stats.go
Description: Per-mutator counters, grounded on the teacher's FuzzerStats
atomic-counter pattern (pkg/core/types.go) generalized to the two counters
spec.md §3's "Mutator" invariant names: failedToGenerate and
addedInstructions. Safe for concurrent use across workers sharing a
read-only mutator registry (spec.md §5).
*/

package mutate

import "sync/atomic"

// Stats holds the two counters every concrete mutator must expose.
type Stats struct {
	failedToGenerate  int64
	addedInstructions int64
}

// FailedToGenerate records one failed mutation attempt.
func (s *Stats) FailedToGenerate() {
	atomic.AddInt64(&s.failedToGenerate, 1)
}

// AddInstructions records that a successful mutation added n instructions
// (mutant.Len() - seed.Len()); n may be negative for a mutator that removes
// more than it inserts.
func (s *Stats) AddInstructions(n int) {
	atomic.AddInt64(&s.addedInstructions, int64(n))
}

// Snapshot returns the current counter values without resetting them.
func (s *Stats) Snapshot() (failedToGenerate, addedInstructions int64) {
	return atomic.LoadInt64(&s.failedToGenerate), atomic.LoadInt64(&s.addedInstructions)
}

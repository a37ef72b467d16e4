/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: corpus.go
Description: Thread-safe storage and contributor-set-aware sampling of
il.Program seeds and mutants, grounded on the teacher's core.Corpus
(map + sync.RWMutex, size-bounded with a priority-scored cleanup pass).
*/

package corpus

import (
	"math/rand"
	"sync"

	"github.com/rsolene/jonm-fuzzer/pkg/il"
)

// Entry wraps a stored program with the bookkeeping the corpus needs for
// size-bounded retention, independent of anything the engine tracks.
type Entry struct {
	Program    *il.Program
	Executions int64
	Generation int
}

// Corpus manages the collection of seed/mutant programs available to the
// JoNM engine's seed-pick step. All operations are safe for concurrent use.
type Corpus struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	maxSize int
}

// New creates an empty corpus bounded to maxSize entries. A maxSize <= 0
// means unbounded.
func New(maxSize int) *Corpus {
	return &Corpus{
		entries: make(map[string]*Entry),
		maxSize: maxSize,
	}
}

// Add stores p, generating a fresh Entry at generation 0. Re-adding a
// program with an ID already present is a no-op, mirroring the teacher's
// "already exists, no error" semantics.
func (c *Corpus) Add(p *il.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[p.ID]; exists {
		return
	}
	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.cleanupLocked()
	}
	c.entries[p.ID] = &Entry{Program: p}
}

// Get retrieves a program by ID, or nil if absent.
func (c *Corpus) Get(id string) *il.Program {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	if !ok {
		return nil
	}
	return e.Program
}

// MarkExecuted increments id's execution counter, used by the removal
// scorer to bias cleanup away from heavily-resampled seeds.
func (c *Corpus) MarkExecuted(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[id]; ok {
		e.Executions++
	}
}

// GetFreeOf returns a uniformly random program whose contributor set
// contains none of excludeContributors, or nil if no such program exists
// (spec.md §4.6 step 1: "does not list any JoN mutator in its contributor
// set", preventing recursive amplification).
func (c *Corpus) GetFreeOf(rng *rand.Rand, excludeContributors ...string) *il.Program {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var candidates []*il.Program
	for _, e := range c.entries {
		if e.Program.HasAnyContributor(excludeContributors...) {
			continue
		}
		candidates = append(candidates, e.Program)
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[rng.Intn(len(candidates))]
}

// Size returns the number of programs currently stored.
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// All returns every stored program, in no particular order.
func (c *Corpus) All() []*il.Program {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*il.Program, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Program)
	}
	return out
}

// cleanupLocked evicts the lowest-scoring half of the corpus when it has
// grown to maxSize. Caller must hold c.mu for writing.
func (c *Corpus) cleanupLocked() {
	type scored struct {
		id    string
		score int
	}
	all := make([]scored, 0, len(c.entries))
	for id, e := range c.entries {
		all = append(all, scored{id: id, score: removalScore(e)})
	}
	for i := 0; i < len(all)-1; i++ {
		for j := i + 1; j < len(all); j++ {
			if all[i].score < all[j].score {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	toRemove := len(all) / 2
	for i := len(all) - toRemove; i < len(all); i++ {
		delete(c.entries, all[i].id)
	}
}

// removalScore favors keeping programs that have been resampled less and
// that carry a larger contributor history (more mutation steps survived).
func removalScore(e *Entry) int {
	score := len(e.Program.Contributors) * 10
	score -= int(e.Executions)
	if e.Generation == 0 {
		score += 500
	}
	return score
}

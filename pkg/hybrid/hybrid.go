/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: hybrid.go
Description: Driver holds a weighted list of child engines and delegates
one round to a uniformly-weighted draw (spec.md §4.7). Grounded on the
teacher's core.Engine child-dispatch idiom, generalized to a registry of
RoundRunner implementations instead of one hardcoded engine.
*/

package hybrid

import (
	"context"
	"math/rand"
)

// RoundRunner is satisfied by any child engine the Hybrid Driver can draw:
// the JoNM engine (pkg/engine.Engine.RunRound has this exact shape) and the
// two sister-engine stubs below.
type RoundRunner interface {
	RunRound(ctx context.Context) (interface{}, error)
}

// weightedChild pairs a RoundRunner with its draw weight.
type weightedChild struct {
	name   string
	runner RoundRunner
	weight int
}

// Driver draws one child per round with probability proportional to its
// weight and delegates to it. No state is shared across rounds or between
// children (spec.md §4.7, §5: "no inter-engine state").
type Driver struct {
	children []weightedChild
	rng      *rand.Rand
}

// New constructs an empty Driver seeded for its own weighted draws.
func New(seed int64) *Driver {
	return &Driver{rng: rand.New(rand.NewSource(seed))}
}

// Register adds a child engine with the given draw weight. Weight <= 0 is
// rejected silently (the child is simply never reachable), mirroring the
// spec's "weighted list" without requiring normalization.
func (d *Driver) Register(name string, runner RoundRunner, weight int) {
	if weight <= 0 {
		return
	}
	d.children = append(d.children, weightedChild{name: name, runner: runner, weight: weight})
}

// RunRound draws one child weighted by its registered weight and delegates
// one round to it, returning the child's name alongside its result so a
// caller can attribute reports back to the engine that produced them.
func (d *Driver) RunRound(ctx context.Context) (childName string, result interface{}, err error) {
	child := d.pick()
	if child == nil {
		return "", nil, nil
	}
	result, err = child.runner.RunRound(ctx)
	return child.name, result, err
}

func (d *Driver) pick() *weightedChild {
	total := 0
	for _, c := range d.children {
		total += c.weight
	}
	if total == 0 {
		return nil
	}
	draw := d.rng.Intn(total)
	for i := range d.children {
		if draw < d.children[i].weight {
			return &d.children[i]
		}
		draw -= d.children[i].weight
	}
	return nil
}

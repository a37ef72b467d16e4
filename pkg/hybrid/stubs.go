/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: stubs.go
Description: MutationEngineStub and GenerativeEngineStub are documented
no-op RoundRunners standing in for the sister mutation and generative
engines named in spec.md §1/§4.7 but out of scope for this repository.
Their presence in the Hybrid Driver's weighted draw is in scope even
though their internals are not: a round drawn against either simply
returns immediately, exercising the weighted-draw mechanics end to end.
EngineAdapter closes the gap between pkg/engine.Engine's typed
RunRound(ctx) (*Report, error) and the Driver's RoundRunner contract.
*/

package hybrid

import (
	"context"

	"github.com/rsolene/jonm-fuzzer/pkg/engine"
)

// EngineAdapter wraps a *engine.Engine so it satisfies RoundRunner.
type EngineAdapter struct {
	Engine *engine.Engine
}

func (a *EngineAdapter) RunRound(ctx context.Context) (interface{}, error) {
	return a.Engine.RunRound(ctx)
}

// MutationEngineStub stands in for the sister mutation engine (spec.md §1:
// out of scope beyond its presence in the weighted draw).
type MutationEngineStub struct {
	Rounds int
}

func (s *MutationEngineStub) RunRound(ctx context.Context) (interface{}, error) {
	s.Rounds++
	return nil, nil
}

// GenerativeEngineStub stands in for the sister generative (templated)
// engine, same contract as MutationEngineStub.
type GenerativeEngineStub struct {
	Rounds int
}

func (s *GenerativeEngineStub) RunRound(ctx context.Context) (interface{}, error) {
	s.Rounds++
	return nil, nil
}

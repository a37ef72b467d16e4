/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Engine implements the JoNM outer fuzzing loop (spec.md §4.6):
seed pick, checksum preprocess, determinism gate, referee capture, and the
consecutive-mutation differential loop. Grounded on the teacher's
core.Engine/core.Corpus/core.Worker triad, restructured from an infinite
goroutine loop into one synchronous RunRound call so the Hybrid Driver
(pkg/hybrid) can interleave it with sister engines.
*/

package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rsolene/jonm-fuzzer/pkg/analysis"
	"github.com/rsolene/jonm-fuzzer/pkg/checksum"
	"github.com/rsolene/jonm-fuzzer/pkg/corpus"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/jonm"
	"github.com/rsolene/jonm-fuzzer/pkg/lift"
	"github.com/rsolene/jonm-fuzzer/pkg/logging"
	"github.com/rsolene/jonm-fuzzer/pkg/runner"
	"github.com/rsolene/jonm-fuzzer/pkg/warmup"
	"github.com/rsolene/jonm-fuzzer/pkg/wire"
)

// FatalError marks an invariant breach (spec.md §7's "invariant breach
// [fatal]" category): a failed checksum preprocess, or a rebuilt mutant
// that is not a distinct object from its seed. RunRound recovers these at
// its own boundary and returns them as an error rather than propagating a
// panic to the caller.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string { return "jonm engine: fatal: " + e.Reason }

// Miscompilation is one confirmed divergence: a mutant that executed to
// completion with stdout differing from the referee's (spec.md §4.6 step 5).
type Miscompilation struct {
	Seed        *il.Program
	Mutant      *il.Program
	RefereeOut  []byte
	MutantOut   []byte
	ExecTime    time.Duration
	MutatorName string
}

// Report summarizes one RunRound call.
type Report struct {
	SeedID           string
	Iterations       int
	Miscompilations  []Miscompilation
	DeterminismFault bool
	SeedRejected     bool
}

// MiscompilationReporter is notified of every confirmed miscompilation.
// pkg/report provides the default logging+record implementation; a live
// dashboard (pkg/dashboard) may additionally implement it.
type MiscompilationReporter interface {
	ReportMiscompilation(m Miscompilation)
}

// CrashReporter is notified whenever a mutant or referee execution crashes.
// Crashes never count as miscompilations (spec.md §4.6).
type CrashReporter interface {
	ReportCrash(p *il.Program, exec *runner.Execution)
}

// Engine owns one corpus, the four JoN mutators, the four warmup fallback
// mutators, one execution runner, and one logger — the unit the Hybrid
// Driver schedules one round of at a time.
type Engine struct {
	Corpus *corpus.Corpus
	Runner *runner.Runner
	Logger *logging.Logger

	JoNMutators   []jonm.Mutator
	WarmupFallback []warmup.Mutator

	ChecksumPolicy          checksum.Policy
	ChecksumUpdateProb      float64
	ChecksumMaxUpdatesPerSubrt int

	NumConsecutiveMutations int
	MaxMutationAttempts     int
	DeterminismGateRepeats  int
	ExecutionTimeout        time.Duration
	UseStdin                bool

	MiscompilationReporter MiscompilationReporter
	CrashReporter          CrashReporter

	rng *rand.Rand
}

// New constructs an Engine with spec.md §6 defaults for anything the caller
// leaves at its zero value, except the required collaborators (corpus,
// runner) which must be supplied.
func New(c *corpus.Corpus, r *runner.Runner, logger *logging.Logger, seed int64) *Engine {
	return &Engine{
		Corpus:                     c,
		Runner:                     r,
		Logger:                     logger,
		JoNMutators:                jonm.Registry(),
		WarmupFallback:             warmup.Registry(),
		ChecksumPolicy:             checksum.Modest,
		ChecksumUpdateProb:         checksum.DefaultUpdateProbability,
		ChecksumMaxUpdatesPerSubrt: checksum.DefaultMaxUpdatesPerSubroutine,
		NumConsecutiveMutations:    5,
		MaxMutationAttempts:        3,
		DeterminismGateRepeats:     3,
		ExecutionTimeout:           5 * time.Second,
		rng:                        rand.New(rand.NewSource(seed)),
	}
}

// jonMutatorNames excludes programs that already bear any JoN mutator's
// taint from seed pick (spec.md §4.6 step 1: "prevents recursive
// amplification").
func (e *Engine) jonMutatorNames() []string {
	names := make([]string, 0, len(e.JoNMutators))
	for _, m := range e.JoNMutators {
		names = append(names, m.Name())
	}
	return names
}

// RunRound runs exactly one fuzzing round (spec.md §4.6's six steps) and
// recovers any FatalError raised along the way, returning it as a regular
// error rather than letting it escape as a panic (spec.md §7).
func (e *Engine) RunRound(ctx context.Context) (report *Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*FatalError); ok {
				if e.Logger != nil {
					e.Logger.Error("jonm engine: fatal error in round", map[string]interface{}{
						"reason": fe.Reason,
					})
				}
				err = fe
				return
			}
			panic(r)
		}
	}()

	return e.runRound(ctx)
}

func (e *Engine) runRound(ctx context.Context) (*Report, error) {
	// Step 1: seed pick.
	seed := e.Corpus.GetFreeOf(e.rng, e.jonMutatorNames()...)
	if seed == nil {
		return &Report{SeedRejected: true}, nil
	}

	// Step 2: preprocess. Failure to inject is fatal per spec.md §4.6 step 2.
	instrumented := checksum.Preprocess(seed, e.rng, e.ChecksumPolicy, e.ChecksumUpdateProb, e.ChecksumMaxUpdatesPerSubrt)
	if instrumented == nil || instrumented.Len() == 0 {
		panic(&FatalError{Reason: "checksum preprocess produced an empty program"})
	}

	report := &Report{SeedID: instrumented.ID}

	// Step 3: determinism gate.
	if analysis.NewRecursionAnalyzer().MayDiverge(instrumented) {
		report.DeterminismFault = true
		return report, nil
	}
	refereeOut, refereeTime, ok := e.checkDeterminism(ctx, instrumented)
	if !ok {
		report.DeterminismFault = true
		return report, nil
	}

	// Step 4: referee captured in refereeOut/refereeTime above.
	_ = refereeTime

	// Step 5: mutation loop.
	for i := 0; i < e.NumConsecutiveMutations; i++ {
		mutant, mutatorName := e.mutateOnce(instrumented)
		if mutant == nil {
			continue
		}
		if mutant.ID == instrumented.ID {
			panic(&FatalError{Reason: "mutant is not a distinct object from its seed"})
		}
		report.Iterations++

		exec, execErr := e.execute(ctx, mutant, runner.PurposeMutant)
		if execErr != nil || exec == nil {
			continue
		}
		if !exec.Succeeded() {
			// Only signal-terminated crashes are reported; a Failed target
			// (non-zero exit, no signal) rejected its own input and is
			// ignored by the differential oracle, per spec.md.
			if exec.Status == runner.StatusCrashed && e.CrashReporter != nil {
				e.CrashReporter.ReportCrash(mutant, exec)
			}
			continue
		}
		if !bytesEqual(exec.Stdout, refereeOut) {
			mis := Miscompilation{
				Seed:        seed,
				Mutant:      mutant,
				RefereeOut:  refereeOut,
				MutantOut:   exec.Stdout,
				ExecTime:    exec.Duration,
				MutatorName: mutatorName,
			}
			report.Miscompilations = append(report.Miscompilations, mis)
			if e.MiscompilationReporter != nil {
				e.MiscompilationReporter.ReportMiscompilation(mis)
			}
			if e.Logger != nil {
				e.Logger.LogMiscompilation(seed.ID, mutant.ID, map[string]interface{}{
					"mutator": mutatorName,
				})
			}
		}
	}

	// Step 6: the seed is never advanced mid-round; instrumented is reused
	// unchanged across every iteration above, by construction.
	return report, nil
}

// checkDeterminism runs instrumented e.DeterminismGateRepeats times,
// requiring every run to succeed with byte-identical stdout (spec.md §4.6
// step 3). Returns the shared stdout and the last run's duration on
// success.
func (e *Engine) checkDeterminism(ctx context.Context, instrumented *il.Program) ([]byte, time.Duration, bool) {
	var first []byte
	var lastDuration time.Duration
	for i := 0; i < e.DeterminismGateRepeats; i++ {
		exec, err := e.execute(ctx, instrumented, runner.PurposeDeterminism)
		if err != nil || exec == nil || !exec.Succeeded() {
			return nil, 0, false
		}
		if i == 0 {
			first = exec.Stdout
		} else if !bytesEqual(exec.Stdout, first) {
			return nil, 0, false
		}
		lastDuration = exec.Duration
	}
	return first, lastDuration, true
}

// mutateOnce picks a JoN mutator uniformly, retries up to
// e.MaxMutationAttempts times, and on exhaustion falls back to the first
// warmup mutator, in e.WarmupFallback order, that produces a mutant
// (spec.md §4.6 step 5). Returns nil if both registries
// fail to produce a mutant.
func (e *Engine) mutateOnce(seed *il.Program) (*il.Program, string) {
	for attempt := 0; attempt < e.MaxMutationAttempts; attempt++ {
		k := e.JoNMutators[e.rng.Intn(len(e.JoNMutators))]
		if !k.CanMutate(seed) {
			k.Stats().FailedToGenerate()
			continue
		}
		mutant, err := k.Mutate(seed, e.rng)
		if err != nil || mutant == nil {
			k.Stats().FailedToGenerate()
			continue
		}
		mutant = checksum.Postprocess(mutant)
		if e.Logger != nil {
			e.Logger.LogMutation(seed.ID, mutant.ID, k.Name(), nil)
		}
		return mutant, k.Name()
	}

	for _, k := range e.WarmupFallback {
		if !k.CanMutate(seed) {
			continue
		}
		mutant, err := k.Mutate(seed, e.rng)
		if err != nil || mutant == nil {
			k.Stats().FailedToGenerate()
			continue
		}
		mutant = checksum.Postprocess(mutant)
		if e.Logger != nil {
			e.Logger.LogMutation(seed.ID, mutant.ID, k.Name(), nil)
		}
		return mutant, k.Name()
	}
	return nil, ""
}

func (e *Engine) execute(ctx context.Context, p *il.Program, purpose runner.Purpose) (*runner.Execution, error) {
	source := liftAndWrap(p)
	exec, err := e.Runner.Run(ctx, source, runner.RunOptions{
		Purpose:  purpose,
		Timeout:  e.ExecutionTimeout,
		UseStdin: e.UseStdin,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: execute %s: %w", p.ID, err)
	}
	e.Corpus.MarkExecuted(p.ID)
	if e.Logger != nil {
		if exec.Status == runner.StatusTimedOut {
			e.Logger.LogTimeout(p.ID, exec.Duration, map[string]interface{}{"purpose": string(purpose)})
		} else {
			e.Logger.LogExecution(p.ID, exec.Duration, exec.Status.String(), map[string]interface{}{"purpose": string(purpose)})
		}
	}
	return exec, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// liftAndWrap turns p into the exact source text a runner feeds the target
// engine: pkg/lift's minimal printer, wrapped in pkg/wire's bit-exact
// preamble (spec.md §6).
func liftAndWrap(p *il.Program) []byte {
	return []byte(wire.Wrap(wire.IndentGeneratedCode(lift.Source(p))))
}

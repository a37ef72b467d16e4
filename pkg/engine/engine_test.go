package engine_test

import (
	"context"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsolene/jonm-fuzzer/pkg/checksum"
	"github.com/rsolene/jonm-fuzzer/pkg/corpus"
	"github.com/rsolene/jonm-fuzzer/pkg/engine"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/jonm"
	"github.com/rsolene/jonm-fuzzer/pkg/lift"
	"github.com/rsolene/jonm-fuzzer/pkg/mutate"
	"github.com/rsolene/jonm-fuzzer/pkg/runner"
	"github.com/rsolene/jonm-fuzzer/pkg/wire"
)

// requireNode skips the test unless a real JS engine binary is reachable on
// PATH; these tests exercise the full checksum/lift/wire/runner pipeline
// against a real interpreter rather than a stand-in.
func requireNode(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("node")
	if err != nil {
		t.Skip("node not found on PATH, skipping end-to-end engine test")
	}
	return path
}

// writeSlowScript writes a shell script that ignores its input and sleeps,
// standing in for a target that never terminates within a round's timeout.
func writeSlowScript(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "slow.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nsleep 5\n"), 0o755))
	return path
}

// buildPrintOneProgram builds: var a = 1; print(a);
func buildPrintOneProgram() *il.Program {
	b := il.NewBuilder("")
	one := b.LoadInt(1)
	b.DefineNamedVariable("a", one)
	loaded := b.LoadNamedVariable("a")
	printFn := b.LoadBuiltin("__compat_out__")
	b.CallFunction(printFn, loaded)
	return b.Build()
}

// buildSelfRecursiveProgram builds: function f(){ f(); }
func buildSelfRecursiveProgram() *il.Program {
	b := il.NewBuilder("")
	b.BuildPlainFunction("f", nil, func(c *il.BuilderContext, _ []il.Variable) {
		fn := c.LoadNamedVariable("f")
		c.CallFunction(fn)
	})
	return b.Build()
}

func liftAndWrap(p *il.Program) []byte {
	return []byte(wire.Wrap(wire.IndentGeneratedCode(lift.Source(p))))
}

// Scenario 1 (spec.md §8): a checksum-wrapped `var a=1; print(a);` prints
// "1" then "Checksum: 11206928" when the checksum update probability is
// zero, so the container's seeded value is never perturbed.
func TestScenarioChecksumWrappedPrintRoundTrip(t *testing.T) {
	node := requireNode(t)
	seed := buildPrintOneProgram()

	instrumented := checksum.Preprocess(seed, rand.New(rand.NewSource(1)), checksum.Modest, 0, checksum.DefaultMaxUpdatesPerSubroutine)
	source := liftAndWrap(instrumented)

	r := runner.New(node)
	result, err := r.Run(context.Background(), source, runner.RunOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	require.True(t, result.Succeeded(), "stderr: %s", result.Stderr)
	assert.Equal(t, "1\nChecksum: 11206928\n", string(result.Stdout))
}

// Scenario 2 (spec.md §8): a JIT-warmup pre-call mutation must preserve the
// seed's observable stdout exactly, since it is one of the four
// semantic-preserving JoN mutators.
func TestScenarioWarmupPreCallPreservesStdout(t *testing.T) {
	node := requireNode(t)

	b := il.NewBuilder("")
	fn := b.BuildPlainFunction("f", []string{"x"}, func(c *il.BuilderContext, params []il.Variable) {
		one := c.LoadInt(1)
		sum := c.Binary("Add", params[0], one)
		c.DoReturn(&sum)
	})
	one := b.LoadInt(1)
	result := b.CallFunction(fn, one)
	printFn := b.LoadBuiltin("__compat_out__")
	b.CallFunction(printFn, result)
	seed := b.Build()

	m := jonm.NewWarmupPreCall()
	require.True(t, m.CanMutate(seed))
	mutant, err := m.Mutate(seed, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	require.NotNil(t, mutant)

	r := runner.New(node)
	seedExec, err := r.Run(context.Background(), liftAndWrap(seed), runner.RunOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	require.True(t, seedExec.Succeeded(), "stderr: %s", seedExec.Stderr)

	mutantExec, err := r.Run(context.Background(), liftAndWrap(mutant), runner.RunOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	require.True(t, mutantExec.Succeeded(), "stderr: %s", mutantExec.Stderr)

	assert.Equal(t, string(seedExec.Stdout), string(mutantExec.Stdout))
}

// Scenario 3 (spec.md §8): `function f(){ f(); }` is flagged by the
// recursion heuristic at the determinism gate, so the round is aborted
// before any mutation or execution happens.
func TestScenarioSelfRecursiveSeedAbortsBeforeMutation(t *testing.T) {
	c := corpus.New(0)
	c.Add(buildSelfRecursiveProgram())

	e := engine.New(c, runner.New("/bin/true"), nil, 3)
	report, err := e.RunRound(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, report.DeterminismFault)
	assert.Equal(t, 0, report.Iterations)
	assert.Empty(t, report.Miscompilations)
}

// Scenario 4 (spec.md §8): a target that never returns within the
// execution timeout fails the determinism gate rather than hanging the
// round.
func TestScenarioSlowTargetFailsDeterminismGate(t *testing.T) {
	c := corpus.New(0)
	c.Add(buildPrintOneProgram())

	e := engine.New(c, runner.New(writeSlowScript(t)), nil, 4)
	e.ExecutionTimeout = 100 * time.Millisecond

	report, err := e.RunRound(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, report.DeterminismFault)
}

// Scenario 5 (spec.md §8): splicing two checksum-container loads into one
// program and running it through Preprocess then Postprocess must not
// change its observable output versus a single clean load.
func TestScenarioSplicedContainerLoadsPostprocessedWithoutObservableChange(t *testing.T) {
	node := requireNode(t)

	clean := buildPrintOneProgram()
	instrumented := checksum.Preprocess(clean, rand.New(rand.NewSource(5)), checksum.Modest, 0, checksum.DefaultMaxUpdatesPerSubroutine)

	spliced := append([]il.Instruction(nil), instrumented.Instructions...)
	spliced = append(spliced, il.Instruction{Op: il.OpLoadChecksumContainer, Outputs: []il.Variable{{Name: "stray", ID: 9001}}})
	withStray := il.NewProgram(spliced)

	postprocessed := checksum.Postprocess(withStray)

	r := runner.New(node)
	cleanExec, err := r.Run(context.Background(), liftAndWrap(instrumented), runner.RunOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	require.True(t, cleanExec.Succeeded(), "stderr: %s", cleanExec.Stderr)

	postExec, err := r.Run(context.Background(), liftAndWrap(postprocessed), runner.RunOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	require.True(t, postExec.Succeeded(), "stderr: %s", postExec.Stderr)

	assert.Equal(t, string(cleanExec.Stdout), string(postExec.Stdout))
}

// alwaysMiscompares is a test-only mutate.Kind that always produces a
// distinct mutant with an extra print call, guaranteeing a stdout
// divergence against the referee for scenario 6.
type alwaysMiscompares struct {
	stats mutate.Stats
}

func (m *alwaysMiscompares) CanMutate(p *il.Program) bool { return true }

func (m *alwaysMiscompares) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, error) {
	b := il.NewBuilder("test.alwaysMiscompares")
	for _, instr := range p.Instructions {
		b.Replicate(instr)
	}
	printFn := b.LoadBuiltin("__compat_out__")
	extra := b.LoadString("unexpected")
	b.CallFunction(printFn, extra)
	return b.Finalize(p), nil
}

func (m *alwaysMiscompares) Name() string    { return "test.alwaysMiscompares" }
func (m *alwaysMiscompares) Stats() *mutate.Stats { return &m.stats }

type miscompilationSpy struct {
	records []engine.Miscompilation
}

func (s *miscompilationSpy) ReportMiscompilation(m engine.Miscompilation) {
	s.records = append(s.records, m)
}

// alwaysFailsWithoutSignal is a test-only mutate.Kind producing a mutant
// that calls a non-function value, an uncaught TypeError that makes the
// target exit non-zero with no signal (spec.md's Failed outcome) rather
// than crash.
type alwaysFailsWithoutSignal struct {
	stats mutate.Stats
}

func (m *alwaysFailsWithoutSignal) CanMutate(p *il.Program) bool { return true }

func (m *alwaysFailsWithoutSignal) Mutate(p *il.Program, rng *rand.Rand) (*il.Program, error) {
	b := il.NewBuilder("test.alwaysFailsWithoutSignal")
	for _, instr := range p.Instructions {
		b.Replicate(instr)
	}
	notAFunction := b.LoadInt(1)
	b.CallFunction(notAFunction)
	return b.Finalize(p), nil
}

func (m *alwaysFailsWithoutSignal) Name() string         { return "test.alwaysFailsWithoutSignal" }
func (m *alwaysFailsWithoutSignal) Stats() *mutate.Stats { return &m.stats }

type crashSpy struct {
	records []*runner.Execution
}

func (s *crashSpy) ReportCrash(p *il.Program, exec *runner.Execution) {
	s.records = append(s.records, exec)
}

// A mutant that fails (non-zero exit, no signal) rather than crashes must
// never reach the crash reporter, per spec.md's "Failed outcome ... ignored
// by the differential oracle."
func TestFailedMutantExecutionIsNotReportedAsCrash(t *testing.T) {
	node := requireNode(t)

	c := corpus.New(0)
	c.Add(buildPrintOneProgram())

	spy := &crashSpy{}
	e := engine.New(c, runner.New(node), nil, 6)
	e.NumConsecutiveMutations = 1
	e.JoNMutators = []jonm.Mutator{&alwaysFailsWithoutSignal{}}
	e.ChecksumUpdateProb = 0
	e.CrashReporter = spy

	report, err := e.RunRound(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Empty(t, spy.records, "a Failed (non-signaled) exit must not be reported as a crash")
}

// Scenario 6 (spec.md §8): with numConsecutiveMutations=3 and a mutator
// that always diverges, exactly 3 mutants are generated and byte-compared
// to the referee, each one reported as a miscompilation.
func TestScenarioThreeConsecutiveMutationsEachMiscompileAndAreReported(t *testing.T) {
	node := requireNode(t)

	c := corpus.New(0)
	c.Add(buildPrintOneProgram())

	spy := &miscompilationSpy{}
	e := engine.New(c, runner.New(node), nil, 6)
	e.NumConsecutiveMutations = 3
	e.JoNMutators = []jonm.Mutator{&alwaysMiscompares{}}
	e.ChecksumUpdateProb = 0
	e.MiscompilationReporter = spy

	report, err := e.RunRound(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.False(t, report.DeterminismFault)
	assert.Equal(t, 3, report.Iterations)
	assert.Len(t, report.Miscompilations, 3)
	assert.Len(t, spy.records, 3)
	for _, m := range report.Miscompilations {
		assert.Equal(t, "test.alwaysMiscompares", m.MutatorName)
		assert.NotEqual(t, string(m.RefereeOut), string(m.MutantOut))
	}
}

func TestFatalErrorIsReturnedNotPanicked(t *testing.T) {
	var fe *engine.FatalError
	err := error(&engine.FatalError{Reason: "test"})
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, err.Error(), "test")
}

func TestRunRoundReturnsSeedRejectedOnEmptyCorpus(t *testing.T) {
	c := corpus.New(0)
	e := engine.New(c, runner.New("/bin/true"), nil, 7)

	report, err := e.RunRound(context.Background())
	require.NoError(t, err)
	assert.True(t, report.SeedRejected)
}

package report_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsolene/jonm-fuzzer/pkg/engine"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/logging"
	"github.com/rsolene/jonm-fuzzer/pkg/report"
	"github.com/rsolene/jonm-fuzzer/pkg/runner"
)

func newTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	l, err := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevelInfo,
		Format:    logging.LogFormatText,
		OutputDir: t.TempDir(),
		MaxFiles:  1,
		MaxSize:   1024 * 1024,
	})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestFileCrashReporterWritesOneFilePerCrashAndIncrementsCount(t *testing.T) {
	dir := t.TempDir()
	r := report.NewFileCrashReporter(filepath.Join(dir, "crashes"), newTestLogger(t))

	p := il.NewProgram([]il.Instruction{{Op: il.OpLoadInt}})
	exec := &runner.Execution{Status: runner.StatusCrashed, Stdout: []byte("boom")}

	r.ReportCrash(p, exec)
	assert.Equal(t, int64(1), r.Count())

	entries, err := os.ReadDir(filepath.Join(dir, "crashes"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "crash_")

	written, err := os.ReadFile(filepath.Join(dir, "crashes", entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "boom", string(written))
}

func TestFileCrashReporterCountAccumulatesAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	r := report.NewFileCrashReporter(dir, newTestLogger(t))

	for i := 0; i < 3; i++ {
		p := il.NewProgram([]il.Instruction{{Op: il.OpLoadInt, Attrs: map[string]interface{}{"value": int64(i)}}})
		r.ReportCrash(p, &runner.Execution{Status: runner.StatusCrashed})
	}
	assert.Equal(t, int64(3), r.Count())
}

func TestLoggingMiscompilationReporterRecordsInOrder(t *testing.T) {
	r := report.NewLoggingMiscompilationReporter(newTestLogger(t))

	seed := il.NewProgram(nil)
	m1 := engine.Miscompilation{Seed: seed, Mutant: il.NewProgram(nil), MutatorName: "jonm.NeutralLoop", ExecTime: time.Millisecond}
	m2 := engine.Miscompilation{Seed: seed, Mutant: il.NewProgram(nil), MutatorName: "warmup.CallInLoop", ExecTime: 2 * time.Millisecond}

	r.ReportMiscompilation(m1)
	r.ReportMiscompilation(m2)

	records := r.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "jonm.NeutralLoop", records[0].MutatorName)
	assert.Equal(t, "warmup.CallInLoop", records[1].MutatorName)
}

func TestRenderStatsTableIncludesEveryMutatorRowAndFooterCounts(t *testing.T) {
	out := report.RenderStatsTable(10, 2, 1, []report.MutatorStat{
		{Name: "jonm.NeutralLoop", FailedToGenerate: 3, AddedInstructions: 40},
		{Name: "warmup.CallDeopt", FailedToGenerate: 0, AddedInstructions: 12},
	})

	assert.Contains(t, out, "jonm.NeutralLoop")
	assert.Contains(t, out, "warmup.CallDeopt")
	assert.Contains(t, out, "Rounds 10")
	assert.Contains(t, out, "Miscomp 2")
	assert.Contains(t, out, "Crashes 1")
}

func TestRenderStatsTableWithNoMutatorStatsStillRendersFooter(t *testing.T) {
	out := report.RenderStatsTable(0, 0, 0, nil)
	assert.Contains(t, out, "Rounds 0")
}

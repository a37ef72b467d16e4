/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report.go
Description: Default CrashReporter and MiscompilationReporter
implementations (spec.md §7's crash/miscompilation routing), plus an
end-of-run stats table. Crash-file naming and directory creation follow the
teacher's Engine.saveCrashFile; the stats table is rendered with
olekukonko/tablewriter the way the gooze example repo's SimpleUI does.
*/

package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/rsolene/jonm-fuzzer/pkg/engine"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/logging"
	"github.com/rsolene/jonm-fuzzer/pkg/runner"
)

// FileCrashReporter writes one file per crash under Dir, named
// crash_<timestamp>_<hash> (spec.md §7), mirroring the teacher's
// Engine.saveCrashFile.
type FileCrashReporter struct {
	Dir    string
	Logger *logging.Logger

	count int64
}

func NewFileCrashReporter(dir string, logger *logging.Logger) *FileCrashReporter {
	return &FileCrashReporter{Dir: dir, Logger: logger}
}

// ReportCrash implements engine.CrashReporter.
func (r *FileCrashReporter) ReportCrash(p *il.Program, exec *runner.Execution) {
	atomic.AddInt64(&r.count, 1)

	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		if r.Logger != nil {
			r.Logger.Error("report: create crash dir", map[string]interface{}{"error": err.Error()})
		}
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("crash_%s_%s", timestamp, p.Hash()[:12])
	path := filepath.Join(r.Dir, filename)

	if err := os.WriteFile(path, exec.Stdout, 0644); err != nil {
		if r.Logger != nil {
			r.Logger.Error("report: write crash file", map[string]interface{}{"error": err.Error()})
		}
		return
	}
	if r.Logger != nil {
		r.Logger.LogCrash(p.ID, exec.Status.String(), map[string]interface{}{"file": path})
	}
}

// Count returns the number of crashes reported so far.
func (r *FileCrashReporter) Count() int64 { return atomic.LoadInt64(&r.count) }

// LoggingMiscompilationReporter logs every confirmed miscompilation and
// keeps an in-memory record, for end-of-run reporting (spec.md §7:
// "logs a structured record and, if a dashboard is attached, pushes it to
// the live view" — the live-view half is pkg/dashboard's concern, reached
// through the same engine.MiscompilationReporter interface).
type LoggingMiscompilationReporter struct {
	Logger *logging.Logger

	records []engine.Miscompilation
}

func NewLoggingMiscompilationReporter(logger *logging.Logger) *LoggingMiscompilationReporter {
	return &LoggingMiscompilationReporter{Logger: logger}
}

// ReportMiscompilation implements engine.MiscompilationReporter.
func (r *LoggingMiscompilationReporter) ReportMiscompilation(m engine.Miscompilation) {
	r.records = append(r.records, m)
	if r.Logger != nil {
		r.Logger.LogMiscompilation(m.Seed.ID, m.Mutant.ID, map[string]interface{}{
			"mutator":   m.MutatorName,
			"exec_time": m.ExecTime.String(),
		})
	}
}

// Records returns every miscompilation reported so far, in report order.
func (r *LoggingMiscompilationReporter) Records() []engine.Miscompilation { return r.records }

// MutatorStat is one row of the end-of-run stats table.
type MutatorStat struct {
	Name              string
	FailedToGenerate  int64
	AddedInstructions int64
}

// RenderStatsTable renders rounds/miscompilations/crashes plus a per-mutator
// breakdown as the teacher's cmd/fuzzer/commands package would print with
// fmt.Printf alignment, but via tablewriter instead.
func RenderStatsTable(rounds, miscompilations, crashes int64, stats []MutatorStat) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Mutator", "Failed", "Added Instructions"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})

	for _, s := range stats {
		table.Append([]string{s.Name, fmt.Sprintf("%d", s.FailedToGenerate), fmt.Sprintf("%d", s.AddedInstructions)})
	}
	table.SetFooter([]string{
		fmt.Sprintf("Rounds %d", rounds),
		fmt.Sprintf("Miscomp %d", miscompilations),
		fmt.Sprintf("Crashes %d", crashes),
	})
	table.Render()
	return buf.String()
}

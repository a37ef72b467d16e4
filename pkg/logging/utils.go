/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Log file analysis for the JoNM differential mutation engine.
Rotation and retention are owned by lumberjack.Logger (see logger.go); this
file keeps only the read-side analysis that has no lumberjack equivalent:
scanning emitted log lines for round/mutation/crash/miscompilation counts.
*/

package logging

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogAnalyzer provides log analysis capabilities over files already rotated
// by lumberjack.
type LogAnalyzer struct {
	logDir string
}

// NewLogAnalyzer creates a new log analyzer
func NewLogAnalyzer(logDir string) *LogAnalyzer {
	return &LogAnalyzer{
		logDir: logDir,
	}
}

// AnalyzeLogs analyzes log files for patterns and statistics
func (la *LogAnalyzer) AnalyzeLogs() (*LogAnalysis, error) {
	files, err := filepath.Glob(filepath.Join(la.logDir, "jonm-fuzzer.log*"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob log files: %w", err)
	}

	analysis := &LogAnalysis{
		StartTime: time.Now(),
		LogFiles:  len(files),
	}

	for _, file := range files {
		if err := la.analyzeFile(file, analysis); err != nil {
			return nil, fmt.Errorf("failed to analyze file %s: %w", file, err)
		}
	}

	return analysis, nil
}

// analyzeFile analyzes a single log file
func (la *LogAnalyzer) analyzeFile(filepath string, analysis *LogAnalysis) error {
	file, err := os.Open(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		la.analyzeLine(scanner.Text(), analysis)
	}

	return scanner.Err()
}

// analyzeLine analyzes a single log line
func (la *LogAnalyzer) analyzeLine(line string, analysis *LogAnalysis) {
	analysis.TotalLines++

	switch {
	case strings.Contains(line, "DEBUG"):
		analysis.DebugCount++
	case strings.Contains(line, "INFO"):
		analysis.InfoCount++
	case strings.Contains(line, "WARN"):
		analysis.WarningCount++
	case strings.Contains(line, "ERROR"):
		analysis.ErrorCount++
	case strings.Contains(line, "FATAL"):
		analysis.FatalCount++
	}

	switch {
	case strings.Contains(line, "Crash detected"):
		analysis.CrashCount++
	case strings.Contains(line, "Execution timed out"):
		analysis.TimeoutCount++
	case strings.Contains(line, "Program executed"):
		analysis.ExecutionCount++
	case strings.Contains(line, "Program mutated"):
		analysis.MutationCount++
	case strings.Contains(line, "Miscompilation detected"):
		analysis.MiscompilationCount++
	}
}

// LogAnalysis holds the results of log analysis
type LogAnalysis struct {
	StartTime            time.Time `json:"start_time"`
	LogFiles             int       `json:"log_files"`
	TotalLines           int64     `json:"total_lines"`
	DebugCount           int64     `json:"debug_count"`
	InfoCount            int64     `json:"info_count"`
	WarningCount         int64     `json:"warning_count"`
	ErrorCount           int64     `json:"error_count"`
	FatalCount           int64     `json:"fatal_count"`
	CrashCount           int64     `json:"crash_count"`
	TimeoutCount         int64     `json:"timeout_count"`
	ExecutionCount       int64     `json:"execution_count"`
	MutationCount        int64     `json:"mutation_count"`
	MiscompilationCount  int64     `json:"miscompilation_count"`
}

// GetLogSummary returns a summary of the log analysis
func (la *LogAnalysis) GetLogSummary() string {
	return fmt.Sprintf(
		"Log Analysis Summary:\n"+
			"  Files: %d\n"+
			"  Total Lines: %d\n"+
			"  Debug: %d\n"+
			"  Info: %d\n"+
			"  Warning: %d\n"+
			"  Error: %d\n"+
			"  Fatal: %d\n"+
			"  Crashes: %d\n"+
			"  Timeouts: %d\n"+
			"  Executions: %d\n"+
			"  Mutations: %d\n"+
			"  Miscompilations: %d",
		la.LogFiles, la.TotalLines, la.DebugCount, la.InfoCount,
		la.WarningCount, la.ErrorCount, la.FatalCount, la.CrashCount,
		la.TimeoutCount, la.ExecutionCount, la.MutationCount, la.MiscompilationCount,
	)
}

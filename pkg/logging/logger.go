/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Structured logging for the JoNM differential mutation engine.
Provides timestamped files, multiple output formats, and round/mutator-aware
log fields. Supports JSON, text, and custom formats; file rotation is backed
by lumberjack rather than hand-rolled size/compress bookkeeping.
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"log/syslog"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warn"
	LogLevelError   LogLevel = "error"
	LogLevelFatal   LogLevel = "fatal"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatJSON   LogFormat = "json"
	LogFormatText   LogFormat = "text"
	LogFormatCustom LogFormat = "custom"
	// LogFormatEngine selects EngineFormatter, which prefixes the Log*
	// methods' fixed messages ("Program executed", "Crash detected", ...)
	// with a short tag (EXEC, CRASH, TIMEOUT, ...) and gives duration/
	// program-id/rounds-per-sec fields engine-aware rendering.
	LogFormatEngine LogFormat = "engine"
)

// LoggerConfig holds the configuration for the logger
// Now includes syslog and journald options
type LoggerConfig struct {
	Level     LogLevel  `json:"level"`
	Format    LogFormat `json:"format"`
	OutputDir string    `json:"output_dir"`
	MaxFiles  int       `json:"max_files"`
	MaxSize   int64     `json:"max_size"` // in bytes
	Timestamp bool      `json:"timestamp"`
	Caller    bool      `json:"caller"`
	Colors    bool      `json:"colors"`
	Compress  bool      `json:"compress"`

	SyslogEnabled   bool   `json:"syslog_enabled"`
	SyslogNetwork   string `json:"syslog_network"`
	SyslogAddress   string `json:"syslog_address"`
	JournaldEnabled bool   `json:"journald_enabled"`
	// GRPCSinkEnabled bool   `json:"grpc_sink_enabled"` // Stub for now
}

// Validate checks the LoggerConfig for invalid or missing values.
// Returns an error if the config is invalid, or nil if valid.
func (c *LoggerConfig) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	if c.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be positive")
	}
	if c.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive")
	}
	switch c.Format {
	case LogFormatJSON, LogFormatText, LogFormatCustom, LogFormatEngine:
		// ok
	default:
		return fmt.Errorf("unsupported log format: %s", c.Format)
	}
	switch c.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelFatal:
		// ok
	default:
		return fmt.Errorf("unsupported log level: %s", c.Level)
	}
	return nil
}

type logEntry struct {
	level  logrus.Level
	msg    string
	fields logrus.Fields
}

// Logger provides comprehensive logging functionality
// Now supports async log queue for high performance
type Logger struct {
	config    *LoggerConfig
	logger    *logrus.Logger
	rotator   *lumberjack.Logger
	startTime time.Time

	logQueue chan logEntry
	quit     chan struct{}
}

// NewLogger creates a new logger instance
func NewLogger(config *LoggerConfig) (*Logger, error) {
	if config == nil {
		config = &LoggerConfig{
			Level:     LogLevelInfo,
			Format:    LogFormatText,
			OutputDir: "./logs",
			MaxFiles:  10,
			MaxSize:   100 * 1024 * 1024, // 100MB
			Timestamp: true,
			Caller:    true,
			Colors:    true,
			Compress:  false,
		}
	}

	l := &Logger{
		config:    config,
		logger:    logrus.New(),
		startTime: time.Now(),
		logQueue:  make(chan logEntry, 1024),
		quit:      make(chan struct{}),
	}

	if err := l.setup(); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	go l.runLogQueue()

	return l, nil
}

// setup configures the logger with the given configuration
func (l *Logger) setup() error {
	// Set log level
	level, err := logrus.ParseLevel(string(l.config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.logger.SetLevel(level)

	// Set formatter
	if err := l.setFormatter(); err != nil {
		return err
	}

	// Setup file output
	if err := l.setupFileOutput(); err != nil {
		return err
	}

	// Setup console output
	l.setupConsoleOutput()

	// Setup syslog sink if enabled
	if l.config.SyslogEnabled {
		writer, err := syslog.Dial(l.config.SyslogNetwork, l.config.SyslogAddress, syslog.LOG_INFO|syslog.LOG_USER, "jonm-fuzzer")
		if err != nil {
			return fmt.Errorf("failed to connect to syslog: %w", err)
		}
		l.logger.SetOutput(io.MultiWriter(l.logger.Out, writer))
	}
	// Setup journald sink if enabled (stub)
	if l.config.JournaldEnabled {
		// TODO: Integrate with go-systemd/journal for journald support
		// For now, just log a warning
		l.logger.Warn("Journald logging enabled, but not implemented yet.")
	}

	return nil
}

// setFormatter configures the log formatter
func (l *Logger) setFormatter() error {
	switch l.config.Format {
	case LogFormatJSON:
		l.logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				filename := filepath.Base(f.File)
				return "", fmt.Sprintf("%s:%d", filename, f.Line)
			},
		})

	case LogFormatText:
		l.logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   l.config.Timestamp,
			TimestampFormat: time.RFC3339,
			ForceColors:     l.config.Colors,
			DisableColors:   !l.config.Colors,
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				filename := filepath.Base(f.File)
				return "", fmt.Sprintf("%s:%d", filename, f.Line)
			},
		})

	case LogFormatCustom:
		l.logger.SetFormatter(&CustomFormatter{
			Timestamp: l.config.Timestamp,
			Caller:    l.config.Caller,
			Colors:    l.config.Colors,
		})

	case LogFormatEngine:
		l.logger.SetFormatter(&EngineFormatter{
			CustomFormatter: CustomFormatter{
				Timestamp: l.config.Timestamp,
				Caller:    l.config.Caller,
				Colors:    l.config.Colors,
			},
			ShowPerformance: true,
			ShowMiscompare:  true,
		})

	default:
		return fmt.Errorf("unsupported log format: %s", l.config.Format)
	}

	return nil
}

// setupFileOutput configures file-based logging. Rotation, retention count,
// and compression are delegated to lumberjack.Logger rather than hand-rolled
// size checks and os.Rename bookkeeping.
func (l *Logger) setupFileOutput() error {
	if l.config.OutputDir == "" {
		return nil
	}

	if err := os.MkdirAll(l.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(l.config.OutputDir, "jonm-fuzzer.log")
	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    int(l.config.MaxSize / (1024 * 1024)), // lumberjack wants megabytes
		MaxBackups: l.config.MaxFiles,
		Compress:   l.config.Compress,
	}
	l.rotator = rotator

	multiWriter := io.MultiWriter(os.Stdout, rotator)
	l.logger.SetOutput(multiWriter)

	l.logger.WithFields(logrus.Fields{
		"start_time": l.startTime.Format(time.RFC3339),
		"log_file":   logPath,
		"level":      l.config.Level,
		"format":     l.config.Format,
	}).Info("JoNM engine logging system initialized")

	return nil
}

// setupConsoleOutput configures console output
func (l *Logger) setupConsoleOutput() {
	// Console output is handled by the multi-writer in setupFileOutput
	// This method can be extended for additional console formatting
}

// runLogQueue flushes log entries from the queue in a background goroutine
func (l *Logger) runLogQueue() {
	for {
		select {
		case entry := <-l.logQueue:
			l.logger.WithFields(entry.fields).Log(entry.level, entry.msg)
		case <-l.quit:
			return
		}
	}
}

// Engine-specific logging methods

// LogExecution logs one program execution against the runner.
func (l *Logger) LogExecution(programID string, duration time.Duration, outcome string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["program_id"] = programID
	fields["duration"] = duration
	fields["outcome"] = outcome
	fields["timestamp"] = time.Now()

	l.logger.WithFields(fields).Info("Program executed")
}

// LogCrash logs a crash detection routed to the crash reporter.
func (l *Logger) LogCrash(programID string, crashType string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["program_id"] = programID
	fields["crash_type"] = crashType
	fields["timestamp"] = time.Now()

	l.logger.WithFields(fields).Error("Crash detected")
}

// LogTimeout logs an execution that exceeded the runner's timeout.
func (l *Logger) LogTimeout(programID string, duration time.Duration, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["program_id"] = programID
	fields["duration"] = duration
	fields["timestamp"] = time.Now()

	l.logger.WithFields(fields).Warning("Execution timed out")
}

// LogMiscompilation logs a confirmed seed/mutant stdout divergence.
func (l *Logger) LogMiscompilation(seedID, mutantID string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["seed_id"] = seedID
	fields["mutant_id"] = mutantID
	fields["timestamp"] = time.Now()

	l.logger.WithFields(fields).Error("Miscompilation detected")
}

// LogMutation logs a mutator application producing a mutant from a parent.
func (l *Logger) LogMutation(parentID string, childID string, mutator string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["parent_id"] = parentID
	fields["child_id"] = childID
	fields["mutator"] = mutator
	fields["timestamp"] = time.Now()

	l.logger.WithFields(fields).Debug("Program mutated")
}

// LogStats logs per-round statistics.
func (l *Logger) LogStats(rounds int64, miscompilations int64, crashes int64, roundsPerSec float64, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["rounds"] = rounds
	fields["miscompilations"] = miscompilations
	fields["crashes"] = crashes
	fields["rounds_per_sec"] = roundsPerSec
	fields["uptime"] = time.Since(l.startTime)
	fields["timestamp"] = time.Now()

	l.logger.WithFields(fields).Info("Round statistics")
}

// Close closes the logger and its rotator.
func (l *Logger) Close() error {
	close(l.quit)
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// GetLogger returns the underlying logrus logger
func (l *Logger) GetLogger() *logrus.Logger {
	return l.logger
}

// Debug logs a debug message (async)
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.logQueue <- logEntry{level: logrus.DebugLevel, msg: msg, fields: fields}
}

// Info logs an info message (async)
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.logQueue <- logEntry{level: logrus.InfoLevel, msg: msg, fields: fields}
}

// Warning logs a warning message (async)
func (l *Logger) Warning(msg string, fields map[string]interface{}) {
	l.logQueue <- logEntry{level: logrus.WarnLevel, msg: msg, fields: fields}
}

// Error logs an error message (async)
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.logQueue <- logEntry{level: logrus.ErrorLevel, msg: msg, fields: fields}
}

// Fatal logs a message at fatal level (async); it does not exit the process
func (l *Logger) Fatal(msg string, fields map[string]interface{}) {
	l.logQueue <- logEntry{level: logrus.FatalLevel, msg: msg, fields: fields}
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: run.go
Description: "run" subcommand: launches N independent Engine+Runner pairs
against a shared read-only mutator registry, coordinated with
golang.org/x/sync/errgroup and shut down on SIGINT/SIGTERM, honoring
"a shutdown signal must be honored between rounds" (spec.md §5 expansion).
*/

package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/rsolene/jonm-fuzzer/pkg/config"
	"github.com/rsolene/jonm-fuzzer/pkg/corpus"
	"github.com/rsolene/jonm-fuzzer/pkg/dashboard"
	"github.com/rsolene/jonm-fuzzer/pkg/engine"
	"github.com/rsolene/jonm-fuzzer/pkg/hybrid"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/logging"
	"github.com/rsolene/jonm-fuzzer/pkg/report"
	"github.com/rsolene/jonm-fuzzer/pkg/runner"
)

// statsCountingCrashReporter forwards to an inner engine.CrashReporter and
// tallies crashes so runWorker can periodically call logger.LogStats.
type statsCountingCrashReporter struct {
	inner   engine.CrashReporter
	crashes *atomic.Int64
}

func (r *statsCountingCrashReporter) ReportCrash(p *il.Program, exec *runner.Execution) {
	r.crashes.Add(1)
	r.inner.ReportCrash(p, exec)
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the JoNM differential mutation fuzzer",
		Long: `Start the fuzzing process against a target scripting engine binary. The
fuzzer continuously seed-picks, preprocesses, determinism-gates, and
differentially mutates, reporting every confirmed miscompilation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuzz(v)
		},
	}
}

func runFuzz(v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("run: load config: %w", err)
	}
	if cfg.TargetPath == "" {
		return fmt.Errorf("run: --target-path is required")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("run: setup logging: %w", err)
	}
	defer logger.Close()

	sharedCorpus := corpus.New(cfg.CorpusMaxSize)

	crashReporter := report.NewFileCrashReporter(cfg.CrashDir, logger)
	miscoReporter := report.NewLoggingMiscompilationReporter(logger)

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash = dashboard.New()
		defer dash.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	for w := 0; w < workers; w++ {
		workerID := w
		group.Go(func() error {
			return runWorker(groupCtx, workerID, cfg, sharedCorpus, crashReporter, miscoReporter, dash, logger)
		})
	}

	return group.Wait()
}

func runWorker(
	ctx context.Context,
	workerID int,
	cfg *config.EngineConfig,
	sharedCorpus *corpus.Corpus,
	crashReporter engine.CrashReporter,
	miscoReporter engine.MiscompilationReporter,
	dash *dashboard.Dashboard,
	logger *logging.Logger,
) error {
	var crashes atomic.Int64
	countingCrashReporter := &statsCountingCrashReporter{inner: crashReporter, crashes: &crashes}

	targetRunner := runner.New(cfg.TargetPath, cfg.TargetArgs...)
	e := engine.New(sharedCorpus, targetRunner, logger, time.Now().UnixNano()+int64(workerID))
	e.ChecksumPolicy = cfg.Policy()
	e.ChecksumUpdateProb = cfg.ChecksumInsertionProbability
	e.ChecksumMaxUpdatesPerSubrt = cfg.MaxNumberOfUpdatesPerSubrt
	e.NumConsecutiveMutations = cfg.NumConsecutiveMutations
	e.MaxMutationAttempts = cfg.MaxMutationAttempts
	e.DeterminismGateRepeats = cfg.DeterminismGateRepeats
	e.ExecutionTimeout = time.Duration(cfg.ExecutionTimeoutMS) * time.Millisecond
	e.UseStdin = cfg.UseStdin
	e.CrashReporter = countingCrashReporter
	e.MiscompilationReporter = miscoReporter

	driver := hybrid.New(time.Now().UnixNano() + int64(workerID) + 1)
	driver.Register("jonm", &hybrid.EngineAdapter{Engine: e}, cfg.WeightJoNMutation)
	driver.Register("mutation", &hybrid.MutationEngineStub{}, cfg.WeightMutation)
	driver.Register("generative", &hybrid.GenerativeEngineStub{}, cfg.WeightJeneration)

	const statsEvery = 100
	started := time.Now()
	var rounds, miscompilations int64

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, result, err := driver.RunRound(ctx)
		if err != nil {
			logger.Error("worker round failed", map[string]interface{}{
				"worker": workerID,
				"error":  err.Error(),
			})
		}
		if rep, ok := result.(*engine.Report); ok {
			miscompilations += int64(len(rep.Miscompilations))
		}
		rounds++
		if dash != nil {
			dash.ReportRound()
		}

		if rounds%statsEvery == 0 {
			elapsed := time.Since(started).Seconds()
			roundsPerSec := 0.0
			if elapsed > 0 {
				roundsPerSec = float64(rounds) / elapsed
			}
			logger.LogStats(rounds, miscompilations, crashes.Load(), roundsPerSec, map[string]interface{}{
				"worker": workerID,
			})
		}
	}
}

func newLogger(cfg *config.EngineConfig) (*logging.Logger, error) {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevel(cfg.LogLevel),
		Format:    logging.LogFormat(cfg.LogFormat),
		OutputDir: cfg.LogDir,
		MaxFiles:  cfg.LogMaxBackups,
		MaxSize:   int64(cfg.LogMaxSizeMB) * 1024 * 1024,
		Timestamp: true,
		Compress:  cfg.LogCompress,
	})
}

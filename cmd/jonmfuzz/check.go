/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: check.go
Description: "check" subcommand: validates target binary existence, crash
and log directory writability, and configuration sanity, mirroring the
teacher's PerformSelfCheck utility trimmed to this domain's prerequisites.
*/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rsolene/jonm-fuzzer/pkg/config"
)

func newCheckCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and runtime prerequisites",
		Long: `Validate that the target binary exists and is executable, that the crash
and log directories are writable, and that the loaded configuration is
internally consistent. Useful for CI integration before a long-running
fuzzing session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(v)
		},
	}
}

type selfCheck struct {
	name string
	fn   func(cfg *config.EngineConfig) error
}

func runCheck(v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("check: load config: %w", err)
	}

	checks := []selfCheck{
		{"target binary", checkTargetBinary},
		{"crash directory", checkWritableDir(func(c *config.EngineConfig) string { return c.CrashDir })},
		{"log directory", checkWritableDir(func(c *config.EngineConfig) string { return c.LogDir })},
		{"configuration sanity", checkConfigSanity},
	}

	failed := 0
	for _, c := range checks {
		fmt.Printf("checking %s... ", c.name)
		if err := c.fn(cfg); err != nil {
			fmt.Printf("FAIL: %v\n", err)
			failed++
			continue
		}
		fmt.Println("ok")
	}

	if failed > 0 {
		return fmt.Errorf("check: %d/%d checks failed", failed, len(checks))
	}
	fmt.Println("all checks passed")
	return nil
}

func checkTargetBinary(cfg *config.EngineConfig) error {
	if cfg.TargetPath == "" {
		return fmt.Errorf("--target-path is not set")
	}
	info, err := os.Stat(cfg.TargetPath)
	if err != nil {
		return fmt.Errorf("stat target: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("target path is a directory")
	}
	if info.Mode()&0111 == 0 {
		return fmt.Errorf("target binary is not executable")
	}
	return nil
}

func checkWritableDir(dir func(*config.EngineConfig) string) func(*config.EngineConfig) error {
	return func(cfg *config.EngineConfig) error {
		path := dir(cfg)
		if path == "" {
			return fmt.Errorf("directory not configured")
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		probe, err := os.CreateTemp(path, ".jonmfuzz-check-*")
		if err != nil {
			return fmt.Errorf("write to %s: %w", path, err)
		}
		probe.Close()
		return os.Remove(probe.Name())
	}
}

func checkConfigSanity(cfg *config.EngineConfig) error {
	if cfg.NumConsecutiveMutations <= 0 {
		return fmt.Errorf("num_consecutive_mutations must be positive")
	}
	if cfg.DeterminismGateRepeats <= 0 {
		return fmt.Errorf("determinism_gate_repeats must be positive")
	}
	if cfg.ChecksumInsertionProbability < 0 || cfg.ChecksumInsertionProbability > 1 {
		return fmt.Errorf("checksum_insertion_probability must be in [0,1]")
	}
	if cfg.WeightMutation+cfg.WeightJeneration+cfg.WeightJoNMutation <= 0 {
		return fmt.Errorf("hybrid driver weights must sum to a positive value")
	}
	return nil
}

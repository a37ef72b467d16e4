/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: EngineConfig carries every tunable named in spec.md §6, loaded
via spf13/viper from a YAML file, environment variables, and cobra flags,
the way the teacher's cmd/fuzzer/main.go binds persistent flags to viper
keys one-to-one.
*/

package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/rsolene/jonm-fuzzer/pkg/checksum"
	"github.com/rsolene/jonm-fuzzer/pkg/jonm"
)

// EngineConfig is the full set of recognized options from spec.md §6.
type EngineConfig struct {
	// NumConsecutiveMutations is the number of mutation-loop iterations run
	// against one instrumented seed per round (spec.md §4.6 step 5).
	NumConsecutiveMutations int `mapstructure:"num_consecutive_mutations"`
	// NumConsecutiveJenerations is the sister generative engine's
	// template-based generation budget; carried here only so the hybrid
	// driver's weighted config stays in one place.
	NumConsecutiveJenerations int `mapstructure:"num_consecutive_jenerations"`

	// WeightMutation, WeightJeneration, WeightJoNMutation are the Hybrid
	// Driver's weighted-draw weights (spec.md §4.7).
	WeightMutation    int `mapstructure:"weight_mutation"`
	WeightJeneration  int `mapstructure:"weight_jeneration"`
	WeightJoNMutation int `mapstructure:"weight_jo_n_mutation"`

	// DefaultMaxLoopTripCountInJIT bounds every synthesized warmup loop
	// (spec.md §4.4.1, §4.5).
	DefaultMaxLoopTripCountInJIT int64 `mapstructure:"default_max_loop_trip_count_in_jit"`
	// DefaultSmallCodeBlockSize bounds the single-execution-wrap mutator's
	// block-size veto (spec.md §4.4.2).
	DefaultSmallCodeBlockSize int `mapstructure:"default_small_code_block_size"`
	// MaxNumberOfUpdatesPerSubrt caps checksum-op injections per subroutine
	// (spec.md §4.2).
	MaxNumberOfUpdatesPerSubrt int `mapstructure:"max_number_of_updates_per_subrt"`
	// ChecksumInsertionProbability is the per-site injection probability
	// the Modest/Aggressive/Conservative policies sample against.
	ChecksumInsertionProbability float64 `mapstructure:"checksum_insertion_probability"`
	// ChecksumPolicy names one of Aggressive/Conservative/Modest.
	ChecksumPolicy string `mapstructure:"checksum_policy"`

	// DeterminismGateRepeats is n in spec.md §4.6 step 3.
	DeterminismGateRepeats int `mapstructure:"determinism_gate_repeats"`
	// MaxMutationAttempts bounds retries per mutation-loop iteration before
	// falling back to a warmup mutator (spec.md §4.6 step 5).
	MaxMutationAttempts int `mapstructure:"max_mutation_attempts"`

	// TargetPath and TargetArgs identify the scripting engine binary the
	// runner drives.
	TargetPath string   `mapstructure:"target_path"`
	TargetArgs []string `mapstructure:"target_args"`
	// ExecutionTimeoutMS bounds one runner.Run call.
	ExecutionTimeoutMS int `mapstructure:"execution_timeout_ms"`
	// UseStdin selects stdin-fed input over a temp-file path argument.
	UseStdin bool `mapstructure:"use_stdin"`

	// CorpusMaxSize bounds pkg/corpus's retained program count.
	CorpusMaxSize int `mapstructure:"corpus_max_size"`

	// CrashDir is where pkg/report's default CrashReporter writes crash
	// files, named crash_<timestamp>_<hash> (spec.md §7).
	CrashDir string `mapstructure:"crash_dir"`

	// LogLevel, LogFormat, LogDir, LogMaxSizeMB, LogMaxBackups, LogCompress
	// configure pkg/logging.Logger, mirroring the teacher's log_level/
	// log_format/log_dir/log_max_files/log_max_size/log_compress flags.
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogDir        string `mapstructure:"log_dir"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
	LogCompress   bool   `mapstructure:"log_compress"`

	// Workers is the number of independent Engine+Runner pairs cmd/jonmfuzz
	// run launches (spec.md §5 expansion).
	Workers int `mapstructure:"workers"`
	// Dashboard enables the bubbletea live TUI (spec.md §9 expansion).
	Dashboard bool `mapstructure:"dashboard"`
}

// Defaults returns the spec.md §6-mandated defaults, applied before any
// file/env/flag layer is read.
func Defaults() EngineConfig {
	return EngineConfig{
		NumConsecutiveMutations:      5,
		NumConsecutiveJenerations:    5,
		WeightMutation:               6,
		WeightJeneration:             2,
		WeightJoNMutation:            2,
		DefaultMaxLoopTripCountInJIT: jonm.DefaultMaxLoopTripCountInJIT,
		DefaultSmallCodeBlockSize:    10,
		MaxNumberOfUpdatesPerSubrt:   checksum.DefaultMaxUpdatesPerSubroutine,
		ChecksumInsertionProbability: checksum.DefaultUpdateProbability,
		ChecksumPolicy:               "modest",
		DeterminismGateRepeats:       3,
		MaxMutationAttempts:          3,
		ExecutionTimeoutMS:           5000,
		UseStdin:                     false,
		CorpusMaxSize:                10000,
		CrashDir:                     "crashes",
		LogLevel:                     "info",
		LogFormat:                    "text",
		LogDir:                       "logs",
		LogMaxSizeMB:                 100,
		LogMaxBackups:                5,
		LogCompress:                  true,
		Workers:                      1,
		Dashboard:                    false,
	}
}

// Policy resolves ChecksumPolicy to a checksum.Policy, defaulting to Modest
// on an unrecognized value (mirrors checksum.ParsePolicy).
func (c *EngineConfig) Policy() checksum.Policy {
	return checksum.ParsePolicy(c.ChecksumPolicy)
}

// Load reads jonmfuzz.yaml (searched in the working directory and
// /etc/jonmfuzz), then JONMFUZZ_-prefixed environment variables, layering
// both over Defaults(). v is the already-flag-bound viper instance built by
// cmd/jonmfuzz (see pkg/config.BindFlags); passing nil builds a fresh one
// with no flag layer, for use by tests and library callers.
func Load(v *viper.Viper) (*EngineConfig, error) {
	if v == nil {
		v = viper.New()
	}

	defaults := Defaults()
	v.SetConfigName("jonmfuzz")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/jonmfuzz")
	v.SetEnvPrefix("JONMFUZZ")
	v.AutomaticEnv()

	setDefaults(v, defaults)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read jonmfuzz.yaml: %w", err)
		}
	}

	cfg := defaults
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d EngineConfig) {
	v.SetDefault("num_consecutive_mutations", d.NumConsecutiveMutations)
	v.SetDefault("num_consecutive_jenerations", d.NumConsecutiveJenerations)
	v.SetDefault("weight_mutation", d.WeightMutation)
	v.SetDefault("weight_jeneration", d.WeightJeneration)
	v.SetDefault("weight_jo_n_mutation", d.WeightJoNMutation)
	v.SetDefault("default_max_loop_trip_count_in_jit", d.DefaultMaxLoopTripCountInJIT)
	v.SetDefault("default_small_code_block_size", d.DefaultSmallCodeBlockSize)
	v.SetDefault("max_number_of_updates_per_subrt", d.MaxNumberOfUpdatesPerSubrt)
	v.SetDefault("checksum_insertion_probability", d.ChecksumInsertionProbability)
	v.SetDefault("checksum_policy", d.ChecksumPolicy)
	v.SetDefault("determinism_gate_repeats", d.DeterminismGateRepeats)
	v.SetDefault("max_mutation_attempts", d.MaxMutationAttempts)
	v.SetDefault("target_path", d.TargetPath)
	v.SetDefault("execution_timeout_ms", d.ExecutionTimeoutMS)
	v.SetDefault("use_stdin", d.UseStdin)
	v.SetDefault("corpus_max_size", d.CorpusMaxSize)
	v.SetDefault("crash_dir", d.CrashDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("log_dir", d.LogDir)
	v.SetDefault("log_max_size_mb", d.LogMaxSizeMB)
	v.SetDefault("log_max_backups", d.LogMaxBackups)
	v.SetDefault("log_compress", d.LogCompress)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("dashboard", d.Dashboard)
}

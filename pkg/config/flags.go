/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: flags.go
Description: BindFlags registers EngineConfig's tunables as cobra persistent
flags and binds each to the matching viper key, one-to-one, mirroring the
teacher's cmd/fuzzer/main.go viper.BindPFlag repetition.
*/

package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BindFlags registers every EngineConfig tunable as a persistent flag on
// cmd and binds it into v, so cobra flag > environment > YAML file > the
// Defaults() layer, in that precedence order (viper's own).
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	d := Defaults()
	flags := cmd.PersistentFlags()

	flags.Int("num-consecutive-mutations", d.NumConsecutiveMutations, "mutation-loop iterations per seed per round")
	flags.Int("num-consecutive-jenerations", d.NumConsecutiveJenerations, "generative engine's per-round generation budget")
	flags.Int("weight-mutation", d.WeightMutation, "hybrid driver weight for the mutation engine stub")
	flags.Int("weight-jeneration", d.WeightJeneration, "hybrid driver weight for the generative engine stub")
	flags.Int("weight-jo-n-mutation", d.WeightJoNMutation, "hybrid driver weight for the JoNM engine")
	flags.Int64("default-max-loop-trip-count-in-jit", d.DefaultMaxLoopTripCountInJIT, "warmup loop trip count bound")
	flags.Int("default-small-code-block-size", d.DefaultSmallCodeBlockSize, "single-execution-wrap block-size veto threshold")
	flags.Int("max-number-of-updates-per-subrt", d.MaxNumberOfUpdatesPerSubrt, "checksum-op injections cap per subroutine")
	flags.Float64("checksum-insertion-probability", d.ChecksumInsertionProbability, "per-site checksum-op injection probability")
	flags.String("checksum-policy", d.ChecksumPolicy, "checksum update-injection policy (aggressive|conservative|modest)")
	flags.Int("determinism-gate-repeats", d.DeterminismGateRepeats, "repeated seed executions required for the determinism gate")
	flags.Int("max-mutation-attempts", d.MaxMutationAttempts, "retries per mutation-loop iteration before falling back to a warmup mutator")
	flags.String("target-path", d.TargetPath, "scripting engine binary the runner drives")
	flags.StringSlice("target-args", d.TargetArgs, "fixed arguments passed to the target binary")
	flags.Int("execution-timeout-ms", d.ExecutionTimeoutMS, "per-execution timeout in milliseconds")
	flags.Bool("use-stdin", d.UseStdin, "feed source text over stdin instead of a temp file path argument")
	flags.Int("corpus-max-size", d.CorpusMaxSize, "maximum retained corpus size before cleanup")
	flags.String("crash-dir", d.CrashDir, "directory crash files are written to")
	flags.String("log-level", d.LogLevel, "logging level")
	flags.String("log-format", d.LogFormat, "log output format (text|json|custom|engine)")
	flags.String("log-dir", d.LogDir, "directory rotated log files are written to")
	flags.Int("log-max-size-mb", d.LogMaxSizeMB, "log rotation size threshold in megabytes")
	flags.Int("log-max-backups", d.LogMaxBackups, "log rotation backup file count")
	flags.Bool("log-compress", d.LogCompress, "compress rotated log backups")
	flags.Int("workers", d.Workers, "number of independent engine+runner pairs to run")
	flags.Bool("dashboard", d.Dashboard, "enable the live terminal dashboard")

	for _, name := range []string{
		"num-consecutive-mutations", "num-consecutive-jenerations",
		"weight-mutation", "weight-jeneration", "weight-jo-n-mutation",
		"default-max-loop-trip-count-in-jit", "default-small-code-block-size",
		"max-number-of-updates-per-subrt", "checksum-insertion-probability",
		"checksum-policy", "determinism-gate-repeats", "max-mutation-attempts",
		"target-path", "target-args", "execution-timeout-ms", "use-stdin",
		"corpus-max-size", "crash-dir", "log-level", "log-format", "log-dir",
		"log-max-size-mb", "log-max-backups", "log-compress", "workers", "dashboard",
	} {
		v.BindPFlag(mapstructureKey(name), flags.Lookup(name))
	}
}

// mapstructureKey converts a kebab-case flag name to the snake_case
// mapstructure key EngineConfig declares for it.
func mapstructureKey(flagName string) string {
	out := make([]byte, 0, len(flagName))
	for _, c := range flagName {
		if c == '-' {
			out = append(out, '_')
			continue
		}
		out = append(out, byte(c))
	}
	return string(out)
}

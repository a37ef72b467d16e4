/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Main command-line interface for the JoNM differential
mutation fuzzer. Mirrors the teacher's cmd/fuzzer cobra command tree
(run, mutate, check), with PersistentFlags bound to viper keys one-to-one
with pkg/config.EngineConfig fields.
*/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rsolene/jonm-fuzzer/pkg/config"
)

func main() {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:     "jonmfuzz",
		Short:   "JoNM differential mutation fuzzer for dynamic scripting language JIT compilers",
		Long: `jonmfuzz drives the JIT on/off Mutation (JoNM) differential engine: it
preprocesses a seed program with checksum instrumentation, gates it for
determinism, captures a referee run, and applies a bounded series of
semantic-preserving JIT mutations, comparing each mutant's output against
the referee to surface miscompilations.`,
		Version: "0.1.0",
	}

	config.BindFlags(rootCmd, v)

	rootCmd.AddCommand(newRunCmd(v))
	rootCmd.AddCommand(newMutateCmd(v))
	rootCmd.AddCommand(newCheckCmd(v))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: mutate.go
Description: "mutate" subcommand: synthesizes one fresh seed program,
preprocesses it, applies a single JoN mutation, and prints both the
referee and mutant lifted source so an operator can inspect the pipeline
end to end without a running target binary.
*/

package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rsolene/jonm-fuzzer/pkg/checksum"
	"github.com/rsolene/jonm-fuzzer/pkg/config"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/jonm"
	"github.com/rsolene/jonm-fuzzer/pkg/lift"
	"github.com/rsolene/jonm-fuzzer/pkg/wire"
)

func newMutateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "mutate",
		Short: "Synthesize a seed program and apply one JoN mutation, printing both",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutate(v)
		},
	}
}

func runMutate(v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("mutate: load config: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	b := il.NewBuilder("")
	jonm.EmitFreshProgram(b, rng)
	seed := b.Build()

	instrumented := checksum.Preprocess(seed, rng, cfg.Policy(), cfg.ChecksumInsertionProbability, cfg.MaxNumberOfUpdatesPerSubrt)

	fmt.Println("=== referee ===")
	fmt.Println(wire.Wrap(wire.IndentGeneratedCode(lift.Source(instrumented))))

	registry := jonm.Registry()
	rng.Shuffle(len(registry), func(i, j int) { registry[i], registry[j] = registry[j], registry[i] })

	for _, m := range registry {
		if !m.CanMutate(instrumented) {
			continue
		}
		mutant, err := m.Mutate(instrumented, rng)
		if err != nil || mutant == nil {
			continue
		}
		mutant = checksum.Postprocess(mutant)
		fmt.Printf("=== mutant (%s) ===\n", m.Name())
		fmt.Println(wire.Wrap(wire.IndentGeneratedCode(lift.Source(mutant))))
		return nil
	}

	fmt.Println("no mutator could be applied to this seed")
	return nil
}

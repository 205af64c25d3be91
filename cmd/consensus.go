package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sanix-darker/streamkernel/internal/config"
	"github.com/sanix-darker/streamkernel/internal/consensus"
	"github.com/sanix-darker/streamkernel/internal/orchestrator"
	"github.com/sanix-darker/streamkernel/internal/telemetry"
)

func init() {
	var flags sessionFlags
	var generations int
	var strategyFlag string
	var schemaPath string

	consensusCmd := &cobra.Command{
		Use:   "consensus [prompt]",
		Short: "Run N generations of the same prompt and resolve a single agreed value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsensus(cmd, args[0], flags, generations, strategyFlag, schemaPath)
		},
	}
	addSessionFlags(consensusCmd, &flags)
	consensusCmd.Flags().IntVar(&generations, "generations", 3, "number of independent generations to run")
	consensusCmd.Flags().StringVar(&strategyFlag, "strategy", "", "resolution strategy: majority, unanimous, weighted, best (prompts interactively if empty and attached to a terminal)")
	consensusCmd.Flags().StringVar(&schemaPath, "schema", "", "JSON Schema file to compare generations structurally instead of as text")
	rootCmd.AddCommand(consensusCmd)
}

func runConsensus(cmd *cobra.Command, prompt string, flags sessionFlags, generations int, strategyFlag, schemaPath string) error {
	if generations < 2 {
		return fmt.Errorf("consensus requires at least 2 generations, got %d", generations)
	}

	strategy, err := resolveStrategy(strategyFlag)
	if err != nil {
		return err
	}

	conf := config.NewDefaultConfig()
	agg := telemetry.NewAggregator()

	genOpts := make([]orchestrator.Options, generations)
	for i := 0; i < generations; i++ {
		stream, reg, err := buildStreamFactory(flags, prompt)
		if err != nil {
			return err
		}
		genOpts[i] = buildSessionOptions(conf, stream, reg, agg)
	}

	opts := consensus.Options{
		Generations: genOpts,
		Strategy:    strategy,
	}

	if schemaPath != "" {
		schema, err := loadSchemaCapability("consensus", schemaPath)
		if err != nil {
			return fmt.Errorf("loading schema: %w", err)
		}
		opts.Schema = asConsensusSchema(schema)
	}

	result := consensus.Run(context.Background(), opts)
	if result.Err != nil {
		color.Red("consensus failed: %v", result.Err)
		return result.Err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", result.Resolved.Text)
	color.Cyan("confidence=%.2f agreements=%d disagreements=%d", result.Confidence, len(result.Agreements), len(result.Disagreements))
	return nil
}

func resolveStrategy(flag string) (consensus.Strategy, error) {
	switch flag {
	case string(consensus.StrategyMajority), string(consensus.StrategyUnanimous), string(consensus.StrategyWeighted), string(consensus.StrategyBest):
		return consensus.Strategy(flag), nil
	case "":
		prompt := promptui.Select{
			Label: "Resolution strategy",
			Items: []string{
				string(consensus.StrategyMajority),
				string(consensus.StrategyUnanimous),
				string(consensus.StrategyWeighted),
				string(consensus.StrategyBest),
			},
		}
		_, choice, err := prompt.Run()
		if err != nil {
			return consensus.StrategyMajority, nil
		}
		return consensus.Strategy(choice), nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want majority, unanimous, weighted, or best)", flag)
	}
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sanix-darker/streamkernel/internal/config"
	"github.com/sanix-darker/streamkernel/internal/structured"
	"github.com/sanix-darker/streamkernel/internal/telemetry"
)

func init() {
	var flags sessionFlags
	var schemaPath string
	var autoCorrect bool

	structuredCmd := &cobra.Command{
		Use:   "structured [prompt]",
		Short: "Drive one generation and parse/validate its output against a JSON Schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStructured(cmd, args[0], flags, schemaPath, autoCorrect)
		},
	}
	addSessionFlags(structuredCmd, &flags)
	structuredCmd.Flags().StringVar(&schemaPath, "schema", "", "JSON Schema file the output must validate against (required)")
	structuredCmd.Flags().BoolVar(&autoCorrect, "auto-correct", true, "repair common JSON malformations before validating")
	_ = structuredCmd.MarkFlagRequired("schema")
	rootCmd.AddCommand(structuredCmd)
}

func runStructured(cmd *cobra.Command, prompt string, flags sessionFlags, schemaPath string, autoCorrect bool) error {
	schema, err := loadSchemaCapability("structured-output", schemaPath)
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}

	conf := config.NewDefaultConfig()
	agg := telemetry.NewAggregator()

	stream, reg, err := buildStreamFactory(flags, prompt)
	if err != nil {
		return err
	}
	session := buildSessionOptions(conf, stream, reg, agg)

	outcome := structured.Run(context.Background(), structured.Options{
		Session:     session,
		SchemaName:  "structured-output",
		Schema:      schema,
		AutoCorrect: autoCorrect,
	})
	if outcome.Err != nil {
		color.Red("structured run failed: %v", outcome.Err)
		return outcome.Err
	}

	out, err := json.MarshalIndent(outcome.Value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if outcome.Telemetry.Corrections > 0 {
		color.Yellow("auto-corrections applied: %d (%v)", outcome.Telemetry.Corrections, outcome.Telemetry.CorrectionTypes)
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sanix-darker/streamkernel/internal/config"
	"github.com/sanix-darker/streamkernel/internal/orchestrator"
	"github.com/sanix-darker/streamkernel/internal/render"
	"github.com/sanix-darker/streamkernel/internal/telemetry"
)

func init() {
	var flags sessionFlags
	runCmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Drive one streamed generation through the orchestrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGeneration(cmd, args[0], flags)
		},
	}
	addSessionFlags(runCmd, &flags)
	rootCmd.AddCommand(runCmd)
}

func runGeneration(cmd *cobra.Command, prompt string, flags sessionFlags) error {
	conf := config.NewDefaultConfig()

	stream, reg, err := buildStreamFactory(flags, prompt)
	if err != nil {
		return err
	}
	agg := telemetry.NewAggregator()
	opts := buildSessionOptions(conf, stream, reg, agg)

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " streaming..."
	sp.Start()

	events, resultCh := orchestrator.Run(context.Background(), opts)
	content := render.RenderStream(os.Stdout, events)
	result := <-resultCh
	sp.Stop()

	if result.Err != nil {
		color.Red("session failed: %v", result.Err)
		return result.Err
	}
	agg.Record(result.Telemetry)
	if content == "" {
		color.Yellow("session completed with no content")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", color.GreenString("tokens=%d duration=%s", result.TokenCount, result.Telemetry.Duration))
	return nil
}

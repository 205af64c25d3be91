package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sanix-darker/streamkernel/internal/config"
	"github.com/sanix-darker/streamkernel/internal/eventlog"
	"github.com/sanix-darker/streamkernel/internal/kernelid"
	"github.com/sanix-darker/streamkernel/internal/printers"
)

func init() {
	var verify bool
	var tokensOnly bool

	replayCmd := &cobra.Command{
		Use:   "replay [stream-id]",
		Short: "Reconstruct session state from a recorded event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, kernelid.StreamID(args[0]), verify, tokensOnly)
		},
	}
	replayCmd.Flags().BoolVar(&verify, "verify", false, "check log integrity before replaying")
	replayCmd.Flags().BoolVar(&tokensOnly, "tokens", false, "print only the recorded token sequence")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, streamID kernelid.StreamID, verify, tokensOnly bool) error {
	cacheDir, err := config.GetCacheDirPath(config.NewDefaultConfig())
	if err != nil {
		return err
	}

	store, err := eventlog.NewFileStore(cacheDir)
	if err != nil {
		return fmt.Errorf("opening event log at %s: %w", cacheDir, err)
	}
	replayer := eventlog.NewReplayer(store)

	if verify {
		events, err := store.GetEvents(context.Background(), streamID)
		if err != nil {
			return fmt.Errorf("reading events for %s: %w", streamID, err)
		}
		report := eventlog.CheckIntegrity(events)
		if !report.Clean() {
			color.Red("log integrity check failed for %s:", streamID)
			for _, issue := range report.Issues {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", issue)
			}
			if !printers.Confirm("replay anyway despite integrity issues?") {
				return fmt.Errorf("replay aborted: %d integrity issue(s)", len(report.Issues))
			}
		}
	}

	if tokensOnly {
		tokens, err := replayer.ReplayTokens(context.Background(), streamID)
		if err != nil {
			return err
		}
		for _, t := range tokens {
			fmt.Fprint(cmd.OutOrStdout(), t)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	}

	state, err := replayer.ReplayToState(context.Background(), streamID)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding replayed state: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

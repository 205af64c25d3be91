package cmd

import (
	"fmt"

	mangocobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

func init() {
	manCmd := &cobra.Command{
		Use:    "man",
		Short:  "Generate a man page for this command tree",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			manPage, err := mangocobra.NewManPage(1, rootCmd)
			if err != nil {
				return fmt.Errorf("generating man page: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), manPage.Build(roff.NewDocument()))
			return nil
		},
	}
	rootCmd.AddCommand(manCmd)
}

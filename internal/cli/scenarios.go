package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nbisweden/lega-e2e/internal/scenario"
)

func newScenariosCommand(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the available scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range scenario.DefaultRegistry().List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-36s %-20s %s\n", s.ID, strings.Join(s.ExpectedNames(), "|"), s.Description)
			}
			return nil
		},
	}
}

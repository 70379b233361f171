package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nbisweden/lega-e2e/internal/trace"
)

func newTraceCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Read and write the instance trace file",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get [KEY]",
			Short: "Print one value, or every KEY=value when no key is given",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s := trace.NewFileStore(root.cfg.TraceFile)
				if len(args) == 1 {
					v, err := s.Get(args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), v)
					return nil
				}

				all, err := s.All()
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(all))
				for k := range all {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, all[k])
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Store a value unless the key is already set",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s := trace.NewFileStore(root.cfg.TraceFile)
				wrote, err := s.SetIfAbsent(args[0], args[1])
				if err != nil {
					return err
				}
				if !wrote {
					fmt.Fprintf(cmd.OutOrStdout(), "%s already set, keeping the existing value\n", args[0])
				}
				return nil
			},
		},
	)
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nbisweden/lega-e2e/internal/harness"
)

func newStatusCommand(root *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the ingestion status of a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := harness.New(root.cfg)
			defer a.Close()

			query, err := a.StatusQuery()
			if err != nil {
				return err
			}
			rec, err := query.GetRecord(cmd.Context(), file)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s", rec.FileName, rec.Status)
			if rec.StableID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\t%s", rec.StableID)
			}
			if rec.ArchivePath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\t%s", rec.ArchivePath)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "inbox path of the file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nbisweden/lega-e2e/internal/checksum"
	"github.com/nbisweden/lega-e2e/internal/harness"
	"github.com/nbisweden/lega-e2e/internal/models"
	"github.com/nbisweden/lega-e2e/internal/scenario"
)

type ingestOptions struct {
	file        string
	rawChecksum string
	encChecksum string
	rawFile     string
	encFile     string
	algorithm   string
	expect      []string
}

func newIngestCommand(root *rootOptions) *cobra.Command {
	o := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Publish one ingestion request and wait for its outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, root)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&o.file, "file", "", "inbox path of the encrypted file")
	fs.StringVar(&o.rawChecksum, "raw-checksum", "", "checksum of the unencrypted content")
	fs.StringVar(&o.encChecksum, "enc-checksum", "", "checksum of the encrypted file")
	fs.StringVar(&o.rawFile, "raw-file", "", "local unencrypted copy to compute --raw-checksum from")
	fs.StringVar(&o.encFile, "enc-file", "", "local encrypted copy to compute --enc-checksum from")
	fs.StringVar(&o.algorithm, "algorithm", "md5", "checksum algorithm: md5 or sha256")
	fs.StringSliceVar(&o.expect, "expect", []string{"Completed", "Archived"}, "statuses accepted as success")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (o *ingestOptions) run(cmd *cobra.Command, root *rootOptions) error {
	ctx := cmd.Context()

	algorithm, err := models.ParseChecksumAlgorithm(o.algorithm)
	if err != nil {
		return err
	}
	if o.rawChecksum == "" && o.rawFile != "" {
		if o.rawChecksum, err = checksum.File(o.rawFile, algorithm); err != nil {
			return err
		}
	}
	if o.encChecksum == "" && o.encFile != "" {
		if o.encChecksum, err = checksum.File(o.encFile, algorithm); err != nil {
			return err
		}
	}

	expected := make([]models.IngestionStatus, 0, len(o.expect))
	for _, e := range o.expect {
		st := models.ParseIngestionStatus(e)
		if !st.EqualFold(e) {
			return fmt.Errorf("unknown status %q", e)
		}
		expected = append(expected, st)
	}

	a := harness.New(root.cfg)
	defer a.Close()

	runner, err := a.Runner(ctx, scenario.Input{
		FileName:          o.file,
		RawChecksum:       o.rawChecksum,
		EncryptedChecksum: o.encChecksum,
		Algorithm:         algorithm,
	})
	if err != nil {
		return err
	}

	res := runner.Run(ctx, scenario.Scenario{
		ID:       "ingest",
		Expected: expected,
		Steps: []scenario.Step{
			scenario.CountArchiveBefore(),
			scenario.Ingest(),
			scenario.RetrieveRecord(),
			scenario.VerifyArchived(),
			scenario.VerifyArchivedChecksum(),
		},
	})
	printResult(cmd.OutOrStdout(), res)
	if res.StableID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "      stable id %s\n", res.StableID)
	}
	return res.Failure()
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nbisweden/lega-e2e/internal/harness"
	"github.com/nbisweden/lega-e2e/internal/models"
	"github.com/nbisweden/lega-e2e/internal/scenario"
	"github.com/nbisweden/lega-e2e/pkg/scheduler"
)

type runOptions struct {
	file        string
	rawChecksum string
	encChecksum string
	algorithm   string
}

func newRunCommand(root *rootOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run ingestion scenarios, all of them by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, root, args)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&o.file, "file", "", "inbox path of a correctly uploaded encrypted file")
	fs.StringVar(&o.rawChecksum, "raw-checksum", "", "correct checksum of the unencrypted content")
	fs.StringVar(&o.encChecksum, "enc-checksum", "", "correct checksum of the encrypted file")
	fs.StringVar(&o.algorithm, "algorithm", "md5", "checksum algorithm: md5 or sha256")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (o *runOptions) run(cmd *cobra.Command, root *rootOptions, ids []string) error {
	ctx := cmd.Context()

	selected, err := scenario.DefaultRegistry().Select(ids...)
	if err != nil {
		return err
	}
	algorithm, err := models.ParseChecksumAlgorithm(o.algorithm)
	if err != nil {
		return err
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

	results := runAll(ctx, runner, selected, root.cfg.Ingest.Workers)
	for _, r := range results {
		printResult(cmd.OutOrStdout(), r)
	}
	if failed := printSummary(cmd.OutOrStdout(), results); failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}

// runAll runs the lanes of the scenario plan over workers, then the
// exclusive scenarios one by one. Results keep the input order.
func runAll(ctx context.Context, runner *scenario.Runner, scenarios []scenario.Scenario, workers int) []scenario.Result {
	plan := scenario.NewPlan(scenarios)
	results := make([]scenario.Result, len(scenarios))

	lanes := scheduler.Run(ctx, workers, plan.Lanes, func(ctx context.Context, lane []int) ([]scenario.Result, error) {
		out := make([]scenario.Result, 0, len(lane))
		for _, i := range lane {
			out = append(out, runner.Run(ctx, scenarios[i]))
		}
		return out, nil
	})
	for l, lane := range plan.Lanes {
		for j, i := range lane {
			if lanes[l].Err != nil || j >= len(lanes[l].Data) {
				results[i] = abortedResult(scenarios[i], lanes[l].Err)
				continue
			}
			results[i] = lanes[l].Data[j]
		}
	}

	for _, i := range plan.Exclusive {
		if err := ctx.Err(); err != nil {
			results[i] = abortedResult(scenarios[i], err)
			continue
		}
		results[i] = runner.Run(ctx, scenarios[i])
	}
	return results
}

func abortedResult(s scenario.Scenario, err error) scenario.Result {
	if err == nil {
		err = context.Canceled
	}
	return scenario.Result{ID: s.ID, Expected: s.Expected, Observed: models.IngestionStatusNoEntry, Err: err}
}

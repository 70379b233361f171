package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	v1 "github.com/nbisweden/lega-e2e/api/v1"
	"github.com/nbisweden/lega-e2e/pkg/report"
)

type attemptsOptions struct {
	server    string
	scenarios []string
	failed    bool
	page      int
	pageSize  int
}

func newAttemptsCommand(_ *rootOptions) *cobra.Command {
	o := &attemptsOptions{}
	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List attempts recorded by a running report server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := report.NewClient(o.server)
			if err != nil {
				return err
			}

			params := v1.GetAttemptsParams{Page: &o.page, PageSize: &o.pageSize}
			if len(o.scenarios) > 0 {
				params.Scenario = &o.scenarios
			}
			if o.failed {
				passed := false
				params.Passed = &passed
			}

			resp, err := client.ListAttempts(cmd.Context(), params)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, a := range resp.Attempts {
				label := passLabel("PASS")
				if !a.Passed {
					label = failLabel("FAIL")
				}
				fmt.Fprintf(w, "%s  %s  %-36s %-12s expected %s\n",
					label, a.CreatedAt.Format("2006-01-02 15:04:05"), a.Scenario, a.Observed, strings.Join(a.Expected, "|"))
			}
			fmt.Fprintln(w, dim(fmt.Sprintf("page %d of %d, %d attempts", resp.Page, resp.PageCount, resp.Total)))
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&o.server, "server", "http://localhost:8088", "report server URL")
	fs.StringSliceVar(&o.scenarios, "scenario", nil, "only these scenarios")
	fs.BoolVar(&o.failed, "failed", false, "only failed attempts")
	fs.IntVar(&o.page, "page", 1, "page number")
	fs.IntVar(&o.pageSize, "page-size", 20, "attempts per page")
	return cmd
}

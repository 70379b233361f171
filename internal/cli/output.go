package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/nbisweden/lega-e2e/internal/scenario"
)

var (
	passLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	skipLabel = color.New(color.FgYellow, color.Bold).SprintFunc()
	dim       = color.New(color.Faint).SprintFunc()
)

func printResult(w io.Writer, r scenario.Result) {
	label := passLabel("PASS")
	switch {
	case r.Skipped:
		label = skipLabel("SKIP")
	case !r.Passed:
		label = failLabel("FAIL")
	}
	observed := r.Observed.String()
	if r.Polled != "" && r.Polled != r.Observed {
		observed += " (polled " + r.Polled.String() + ")"
	}
	fmt.Fprintf(w, "%s  %-36s %-12s %s\n", label, r.ID, observed, dim(r.Elapsed.Round(time.Millisecond)))
	if r.Skipped {
		fmt.Fprintf(w, "      %s\n", dim(r.Err))
		return
	}
	if err := r.Failure(); err != nil {
		fmt.Fprintf(w, "      %s\n", err)
	}
}

// printSummary returns the number of failed runs. Skipped runs are not
// failures.
func printSummary(w io.Writer, results []scenario.Result) int {
	failed, skipped := 0, 0
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
		case !r.Passed:
			failed++
		}
	}
	summary := fmt.Sprintf("%d passed, %d failed", len(results)-failed-skipped, failed)
	if skipped > 0 {
		summary += fmt.Sprintf(", %d skipped", skipped)
	}
	if failed > 0 {
		fmt.Fprintln(w, failLabel(summary))
	} else {
		fmt.Fprintln(w, passLabel(summary))
	}
	return failed
}

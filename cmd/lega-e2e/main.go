package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nbisweden/lega-e2e/internal/cli"
)

func main() {
	cmd, err := cli.NewRootCommand()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build command: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

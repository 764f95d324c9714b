// Package main is the entry point for the pipeline CLI.
package main

import (
	"os"

	"github.com/pipeline-crm/pipeline/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

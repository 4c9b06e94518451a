// Package main provides the entry point for the manualrag CLI.
package main

import (
	"os"

	"github.com/docstack/manualrag/cmd/manualrag/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

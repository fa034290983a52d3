// Package main provides the entry point for the fathom CLI.
package main

import (
	"os"

	"github.com/telltale-labs/fathom/cmd/fathom/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

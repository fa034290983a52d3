// Package cmd provides the CLI commands for fathom.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/telltale-labs/fathom/internal/logging"
	"github.com/telltale-labs/fathom/pkg/version"
)

var debugMode bool

// NewRootCmd creates the root command for the fathom CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fathom",
		Short: "Hybrid document retrieval for RAG pipelines",
		Long: `Fathom indexes plain-text documents and serves hybrid queries that
combine BM25 keyword matching with embedding similarity, fused by
reciprocal rank and optionally reranked by an LLM judge.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("fathom version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		logCfg := logging.DefaultConfig()
		if debugMode {
			logCfg.Level = "debug"
		}
		logging.Setup(logCfg, nil)
	}

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

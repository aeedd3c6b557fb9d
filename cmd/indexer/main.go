package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "indexer",
	Short:         "Candidate search indexing pipeline",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "configuration environment (default from ENV, then local)")
	rootCmd.AddCommand(
		initIndicesCmd,
		extractCandidatesCmd,
		extractProfilesCmd,
		consumeResumesCmd,
		consumeBfqCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

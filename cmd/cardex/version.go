package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/cardex/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the cardex version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cardex %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

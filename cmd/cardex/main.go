// Package main is the cardex command: the catalog server and its CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/cardex/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "cardex",
	Short: "In-memory card catalog with a query language",
	Long: `cardex keeps a card catalog in memory, synced from a chunked feed into a
local store, and answers searches written in a small query language.

serve runs the HTTP and websocket API; sync, search and find run the same
engine in process.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("env", config.GetEnv(), "config environment (config/<env>.yaml)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

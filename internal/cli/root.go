// Package cli implements the mnemod CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "mnemod",
	Short: "Temporal memory consolidation and retrieval engine",
	Long: "mnemod condenses daily narrative into weekly, monthly, and annual\n" +
		"summaries, extracts durable memories along the way, and ranks them\n" +
		"for recall by relevance, importance, and recency.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to YAML config (default: environment variables only)")
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

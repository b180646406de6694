package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "losertrack",
	Short: "US stock top-losers tracker",
	Long: `Losertrack CLI

Polls Polygon.io market snapshots, ranks the biggest daily losers among
US common stocks and serves the ranking over HTTP as JSON and HTML.
Tracked picks live in a JSON watchlist evaluated against live prices.

Usage:
  go run ./cmd/losertrack [command]

Examples:
  go run ./cmd/losertrack serve
  go run ./cmd/losertrack refresh
  go run ./cmd/losertrack universe`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Package cli implements the rlusd command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	envFiles   []string
	network    string
	debug      bool
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rlusd",
	Short: "RLUSD transactions on the XRP Ledger and Ethereum",
	Long: `rlusd manages RLUSD trust lines, payments, DEX orders, escrows and ERC-20
transfers, reads balances and order books, and streams ledger events.

Credentials are read from RLUSD_XRPL_SEED and RLUSD_EVM_PRIVATE_KEY, or from a
.env file; they are never accepted as flags.`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path (default rlusd.toml when present)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "dotenv files to load (default .env when present)")
	rootCmd.PersistentFlags().StringVar(&network, "network", "", "network identifier, e.g. xrpl-mainnet or eth-sepolia")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

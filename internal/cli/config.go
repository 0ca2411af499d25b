package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goRLUSD/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create configuration",
}

var configExampleCmd = &cobra.Command{
	Use:   "example [path]",
	Short: "Write an example TOML configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigPath
		if len(args) > 0 {
			path = args[0]
		}
		if err := config.SaveExampleConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(envFiles...); err != nil {
			return err
		}
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}
		if err := applyNetworkFlag(cfg, network); err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), cfg.Redacted())
	},
}

func init() {
	configCmd.AddCommand(configExampleCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
